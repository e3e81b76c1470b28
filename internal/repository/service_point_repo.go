package repository

import (
	"context"

	"gorm.io/gorm"

	"queue-dispatch/internal/model"
)

// ServicePointRepository 服务点数据访问接口
type ServicePointRepository interface {
	Create(ctx context.Context, sp *model.ServicePoint) error
	GetByID(ctx context.Context, id string) (*model.ServicePoint, error)
	List(ctx context.Context) ([]model.ServicePoint, error)
	Update(ctx context.Context, sp *model.ServicePoint) error
}

type servicePointRepo struct {
	db *gorm.DB
}

// NewServicePointRepo 创建 ServicePointRepository 实例
func NewServicePointRepo(db *gorm.DB) ServicePointRepository {
	return &servicePointRepo{db: db}
}

func (r *servicePointRepo) Create(ctx context.Context, sp *model.ServicePoint) error {
	return r.db.WithContext(ctx).Create(sp).Error
}

func (r *servicePointRepo) GetByID(ctx context.Context, id string) (*model.ServicePoint, error) {
	var sp model.ServicePoint
	err := r.db.WithContext(ctx).
		Preload("Capabilities").
		Where("service_point_id = ?", id).
		First(&sp).Error
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (r *servicePointRepo) List(ctx context.Context) ([]model.ServicePoint, error) {
	var sps []model.ServicePoint
	err := r.db.WithContext(ctx).
		Preload("Capabilities").
		Order("code ASC").
		Find(&sps).Error
	return sps, err
}

func (r *servicePointRepo) Update(ctx context.Context, sp *model.ServicePoint) error {
	return r.db.WithContext(ctx).
		Model(sp).
		Where("service_point_id = ?", sp.ServicePointID).
		Updates(map[string]interface{}{
			"name":       sp.Name,
			"enabled":    sp.Enabled,
			"updated_by": sp.UpdatedBy,
		}).Error
}
