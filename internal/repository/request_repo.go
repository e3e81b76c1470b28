package repository

import (
	"context"

	"gorm.io/gorm"

	"queue-dispatch/internal/model"
	pkgerrors "queue-dispatch/pkg/errors"
)

// RequestRepository 排队请求数据访问接口
type RequestRepository interface {
	// CreateNumbered 在周期内分配下一个号码并创建请求（号码单调递增）
	CreateNumbered(ctx context.Context, req *model.Request, period model.Period) error
	GetByID(ctx context.Context, id string) (*model.Request, error)
	// QueryWaiting 查询周期内全部等待中的请求，按创建顺序返回
	QueryWaiting(ctx context.Context, period model.Period) ([]model.Request, error)
	// CountWaiting 统计周期内分配给指定服务点的等待请求数
	CountWaiting(ctx context.Context, servicePointID string, period model.Period) (int64, error)
	// UpdateAssignment 单行原子更新分配字段并清除手动固定标记，仅对仍在等待的请求生效
	UpdateAssignment(ctx context.Context, requestID, servicePointID string) error
	// Update 乐观锁更新状态相关字段
	Update(ctx context.Context, req *model.Request) error
	ListByPeriod(ctx context.Context, period model.Period) ([]model.Request, error)
	ListPageByPeriod(ctx context.Context, period model.Period, offset, limit int) ([]model.Request, int64, error)
}

type requestRepo struct {
	db *gorm.DB
}

func NewRequestRepo(db *gorm.DB) RequestRepository {
	return &requestRepo{db: db}
}

// 号码分配使用事务级 advisory lock 串行化，避免并发取号重复
const requestNumberLockKey = 7301

func (r *requestRepo) CreateNumbered(ctx context.Context, req *model.Request, period model.Period) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", requestNumberLockKey).Error; err != nil {
			return err
		}

		var maxNumber int
		err := tx.Model(&model.Request{}).
			Where("created_at >= ? AND created_at < ?", period.Start, period.End).
			Select("COALESCE(MAX(number), 0)").
			Scan(&maxNumber).Error
		if err != nil {
			return err
		}

		req.Number = maxNumber + 1
		return tx.Create(req).Error
	})
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*model.Request, error) {
	var req model.Request
	err := r.db.WithContext(ctx).
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepo) QueryWaiting(ctx context.Context, period model.Period) ([]model.Request, error) {
	var reqs []model.Request
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at >= ? AND created_at < ?", model.StatusWaiting, period.Start, period.End).
		Order("created_at ASC, number ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *requestRepo) CountWaiting(ctx context.Context, servicePointID string, period model.Period) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Request{}).
		Where("status = ? AND assigned_service_point_id = ? AND created_at >= ? AND created_at < ?",
			model.StatusWaiting, servicePointID, period.Start, period.End).
		Count(&count).Error
	return count, err
}

func (r *requestRepo) UpdateAssignment(ctx context.Context, requestID, servicePointID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Request{}).
		Where("request_id = ? AND status = ?", requestID, model.StatusWaiting).
		Updates(map[string]interface{}{
			"assigned_service_point_id": servicePointID,
			"pinned":                    false,
			"version":                   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrNotWaiting
	}
	return nil
}

func (r *requestRepo) Update(ctx context.Context, req *model.Request) error {
	oldVersion := req.Version
	result := r.db.WithContext(ctx).
		Model(req).
		Where("request_id = ? AND version = ?", req.RequestID, oldVersion).
		Updates(map[string]interface{}{
			"status":                    req.Status,
			"assigned_service_point_id": req.AssignedServicePointID,
			"pinned":                    req.Pinned,
			"paused_at":                 req.PausedAt,
			"called_at":                 req.CalledAt,
			"completed_at":              req.CompletedAt,
			"updated_by":                req.UpdatedBy,
			"version":                   oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version = oldVersion + 1
	return nil
}

func (r *requestRepo) ListByPeriod(ctx context.Context, period model.Period) ([]model.Request, error) {
	var reqs []model.Request
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", period.Start, period.End).
		Order("number ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *requestRepo) ListPageByPeriod(ctx context.Context, period model.Period, offset, limit int) ([]model.Request, int64, error) {
	var reqs []model.Request
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Request{}).
		Where("created_at >= ? AND created_at < ?", period.Start, period.End)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("number DESC").Offset(offset).Limit(limit).Find(&reqs).Error
	return reqs, total, err
}

