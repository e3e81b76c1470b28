package repository

import (
	"context"

	"gorm.io/gorm"

	"queue-dispatch/internal/model"
)

// QueueSettingRepository 叫号配置数据访问接口
type QueueSettingRepository interface {
	Get(ctx context.Context) (*model.QueueSetting, error)
	Update(ctx context.Context, setting *model.QueueSetting) error
}

type queueSettingRepo struct {
	db *gorm.DB
}

// NewQueueSettingRepo 创建 QueueSettingRepository 实例
func NewQueueSettingRepo(db *gorm.DB) QueueSettingRepository {
	return &queueSettingRepo{db: db}
}

func (r *queueSettingRepo) Get(ctx context.Context) (*model.QueueSetting, error) {
	var setting model.QueueSetting
	err := r.db.WithContext(ctx).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *queueSettingRepo) Update(ctx context.Context, setting *model.QueueSetting) error {
	setting.Singleton = true
	return r.db.WithContext(ctx).Save(setting).Error
}
