package repository

import (
	"context"

	"gorm.io/gorm"

	"queue-dispatch/internal/model"
)

// RequestTypeRepository 请求类型数据访问接口
type RequestTypeRepository interface {
	Create(ctx context.Context, rt *model.RequestType) error
	GetByID(ctx context.Context, id string) (*model.RequestType, error)
	GetByCode(ctx context.Context, code string) (*model.RequestType, error)
	List(ctx context.Context) ([]model.RequestType, error)
	ListEnabledTypes(ctx context.Context) ([]model.RequestType, error)
	Update(ctx context.Context, rt *model.RequestType) error
}

type requestTypeRepo struct {
	db *gorm.DB
}

// NewRequestTypeRepo 创建 RequestTypeRepository 实例
func NewRequestTypeRepo(db *gorm.DB) RequestTypeRepository {
	return &requestTypeRepo{db: db}
}

func (r *requestTypeRepo) Create(ctx context.Context, rt *model.RequestType) error {
	return r.db.WithContext(ctx).Create(rt).Error
}

func (r *requestTypeRepo) GetByID(ctx context.Context, id string) (*model.RequestType, error) {
	var rt model.RequestType
	err := r.db.WithContext(ctx).Where("request_type_id = ?", id).First(&rt).Error
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *requestTypeRepo) GetByCode(ctx context.Context, code string) (*model.RequestType, error) {
	var rt model.RequestType
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&rt).Error
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *requestTypeRepo) List(ctx context.Context) ([]model.RequestType, error) {
	var types []model.RequestType
	err := r.db.WithContext(ctx).Order("priority_weight DESC, code ASC").Find(&types).Error
	return types, err
}

func (r *requestTypeRepo) ListEnabledTypes(ctx context.Context) ([]model.RequestType, error) {
	var types []model.RequestType
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority_weight DESC, code ASC").
		Find(&types).Error
	return types, err
}

func (r *requestTypeRepo) Update(ctx context.Context, rt *model.RequestType) error {
	return r.db.WithContext(ctx).
		Model(rt).
		Where("request_type_id = ?", rt.RequestTypeID).
		Updates(map[string]interface{}{
			"label":           rt.Label,
			"priority_weight": rt.PriorityWeight,
			"enabled":         rt.Enabled,
			"updated_by":      rt.UpdatedBy,
		}).Error
}
