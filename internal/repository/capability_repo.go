package repository

import (
	"context"

	"gorm.io/gorm"

	"queue-dispatch/internal/model"
)

// CapabilityRepository 能力登记数据访问接口
type CapabilityRepository interface {
	// ListEnabledServicePoints 已启用的服务点，按编码排序（分配兜底取第一个）
	ListEnabledServicePoints(ctx context.Context) ([]model.ServicePoint, error)
	ListMappings(ctx context.Context) ([]model.CapabilityMapping, error)
	ListByServicePoint(ctx context.Context, servicePointID string) ([]model.CapabilityMapping, error)
	// ReplaceForServicePoint 以 typeIDs 整体替换服务点的能力映射
	ReplaceForServicePoint(ctx context.Context, servicePointID string, typeIDs []string, operatorID string) error
}

type capabilityRepo struct {
	db *gorm.DB
}

// NewCapabilityRepo 创建 CapabilityRepository 实例
func NewCapabilityRepo(db *gorm.DB) CapabilityRepository {
	return &capabilityRepo{db: db}
}

func (r *capabilityRepo) ListEnabledServicePoints(ctx context.Context) ([]model.ServicePoint, error) {
	var sps []model.ServicePoint
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("code ASC").
		Find(&sps).Error
	return sps, err
}

func (r *capabilityRepo) ListMappings(ctx context.Context) ([]model.CapabilityMapping, error) {
	var mappings []model.CapabilityMapping
	err := r.db.WithContext(ctx).
		Order("service_point_id ASC, request_type_id ASC").
		Find(&mappings).Error
	return mappings, err
}

func (r *capabilityRepo) ListByServicePoint(ctx context.Context, servicePointID string) ([]model.CapabilityMapping, error) {
	var mappings []model.CapabilityMapping
	err := r.db.WithContext(ctx).
		Where("service_point_id = ?", servicePointID).
		Find(&mappings).Error
	return mappings, err
}

func (r *capabilityRepo) ReplaceForServicePoint(ctx context.Context, servicePointID string, typeIDs []string, operatorID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_point_id = ?", servicePointID).
			Delete(&model.CapabilityMapping{}).Error; err != nil {
			return err
		}
		if len(typeIDs) == 0 {
			return nil
		}

		var createdBy *string
		if operatorID != "" {
			createdBy = &operatorID
		}
		rows := make([]model.CapabilityMapping, 0, len(typeIDs))
		for _, id := range typeIDs {
			rows = append(rows, model.CapabilityMapping{
				ServicePointID: servicePointID,
				RequestTypeID:  id,
				BaseModel:      model.BaseModel{CreatedBy: createdBy},
			})
		}
		return tx.Create(&rows).Error
	})
}
