package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"queue-dispatch/internal/dto"
	"queue-dispatch/internal/model"
	"queue-dispatch/internal/repository"
	"queue-dispatch/internal/scheduling"
	pkgerrors "queue-dispatch/pkg/errors"
	"queue-dispatch/pkg/metrics"
)

// ── 排队模块业务错误 ──

var (
	ErrRequestNotFound          = errors.New("请求不存在")
	ErrRequestTypeNotFound      = errors.New("请求类型不存在")
	ErrRequestTypeDisabled      = errors.New("请求类型已停用")
	ErrServicePointNotFound     = errors.New("服务点不存在")
	ErrServicePointDisabled     = errors.New("服务点已停用")
	ErrServicePointIncompatible = errors.New("服务点无法办理该类型请求")
	ErrInvalidTransition        = errors.New("当前状态不允许该操作")
	ErrAlreadyHeld              = errors.New("请求已挂起")
	ErrNotHeld                  = errors.New("请求未挂起")
	ErrQueueEmpty               = errors.New("当前没有可叫号的请求")
	ErrInvalidDate              = errors.New("日期格式错误，应为 YYYY-MM-DD")
)

// QueueService 排队与叫号业务接口
type QueueService interface {
	Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.RequestResponse, error)
	GetByID(ctx context.Context, id string) (*dto.RequestResponse, error)
	// CallNext 为服务点叫下一个号：waiting → active
	CallNext(ctx context.Context, servicePointID, callerID string) (*dto.RequestResponse, error)
	Skip(ctx context.Context, id, callerID string) (*dto.RequestResponse, error)
	Hold(ctx context.Context, id, callerID string) (*dto.RequestResponse, error)
	Resume(ctx context.Context, id, callerID string) (*dto.RequestResponse, error)
	Transfer(ctx context.Context, id string, req *dto.TransferRequest, callerID string) (*dto.RequestResponse, error)
	Complete(ctx context.Context, id, callerID string) (*dto.RequestResponse, error)
	ReturnToWaiting(ctx context.Context, id, callerID string) (*dto.RequestResponse, error)
	// OrderedView 只读的叫号顺序
	OrderedView(ctx context.Context, req *dto.OrderedViewRequest) (*dto.OrderedViewResponse, error)
	// ListHistory 某日全部请求（含已办结），按号码倒序分页
	ListHistory(ctx context.Context, req *dto.HistoryListRequest) ([]dto.RequestResponse, int64, error)
}

// QueueOption 排队服务可选项
type QueueOption func(*queueService)

// WithQueueClock 替换时钟
func WithQueueClock(now func() time.Time) QueueOption {
	return func(s *queueService) { s.now = now }
}

// WithQueueMetrics 挂载指标记录器
func WithQueueMetrics(rec *metrics.Recorder) QueueOption {
	return func(s *queueService) { s.metrics = rec }
}

type queueService struct {
	repo      *repository.Repository
	scheduler *scheduling.Scheduler
	setting   QueueSettingService
	notifier  RefreshNotifier
	loc       *time.Location
	now       func() time.Time
	metrics   *metrics.Recorder
	logger    *zap.Logger
}

// NewQueueService 创建 QueueService 实例
func NewQueueService(
	repo *repository.Repository,
	scheduler *scheduling.Scheduler,
	setting QueueSettingService,
	notifier RefreshNotifier,
	loc *time.Location,
	logger *zap.Logger,
	opts ...QueueOption,
) QueueService {
	s := &queueService{
		repo:      repo,
		scheduler: scheduler,
		setting:   setting,
		notifier:  notifier,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ────────────────────── Submit ──────────────────────

func (s *queueService) Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.RequestResponse, error) {
	rt, err := s.repo.RequestType.GetByCode(ctx, req.TypeCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestTypeNotFound
		}
		s.logger.Error("查询请求类型失败", zap.String("code", req.TypeCode), zap.Error(err))
		return nil, err
	}
	if !rt.Enabled {
		return nil, ErrRequestTypeDisabled
	}

	now := s.now()
	r := &model.Request{
		TypeCode: rt.Code,
		Status:   model.StatusWaiting,
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := s.repo.Request.CreateNumbered(ctx, r, model.DayPeriod(now, s.loc)); err != nil {
		s.logger.Error("创建请求失败", zap.String("type_code", rt.Code), zap.Error(err))
		return nil, err
	}

	s.changed("submit")
	return toRequestResponse(r), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *queueService) GetByID(ctx context.Context, id string) (*dto.RequestResponse, error) {
	r, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRequestResponse(r), nil
}

// ────────────────────── CallNext ──────────────────────

func (s *queueService) CallNext(ctx context.Context, servicePointID, callerID string) (*dto.RequestResponse, error) {
	if _, err := s.loadEnabledServicePoint(ctx, servicePointID); err != nil {
		return nil, err
	}

	ordered, err := s.orderFor(ctx, servicePointID, s.setting.CurrentAlgorithm(ctx))
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range ordered.Requests {
		r := &ordered.Requests[i]
		if r.IsHeld() {
			continue
		}
		if r.AssignedServicePointID != nil && !r.AssignedTo(servicePointID) {
			continue
		}

		spID := servicePointID
		r.Status = model.StatusActive
		r.CalledAt = &now
		r.AssignedServicePointID = &spID
		r.UpdatedBy = optionalID(callerID)

		if err := s.repo.Request.Update(ctx, r); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				// 已被其他服务点叫走，继续尝试下一个
				s.logger.Debug("叫号冲突，尝试下一个", zap.String("request_id", r.RequestID))
				continue
			}
			s.logger.Error("叫号失败", zap.String("request_id", r.RequestID), zap.Error(err))
			return nil, err
		}

		s.logger.Info("叫号",
			zap.String("service_point_id", servicePointID),
			zap.String("request_id", r.RequestID),
			zap.Int("number", r.Number),
		)
		s.changed("call")
		return toRequestResponse(r), nil
	}

	return nil, ErrQueueEmpty
}

// ────────────────────── 状态迁移 ──────────────────────

func (s *queueService) Skip(ctx context.Context, id, callerID string) (*dto.RequestResponse, error) {
	return s.transition(ctx, id, callerID, "skip", func(r *model.Request, _ time.Time) error {
		if !r.Status.CanTransitionTo(model.StatusSkipped) {
			return ErrInvalidTransition
		}
		r.Status = model.StatusSkipped
		r.PausedAt = nil
		return nil
	})
}

func (s *queueService) Complete(ctx context.Context, id, callerID string) (*dto.RequestResponse, error) {
	return s.transition(ctx, id, callerID, "complete", func(r *model.Request, now time.Time) error {
		if !r.Status.CanTransitionTo(model.StatusCompleted) {
			return ErrInvalidTransition
		}
		r.Status = model.StatusCompleted
		r.CompletedAt = &now
		r.PausedAt = nil
		return nil
	})
}

func (s *queueService) ReturnToWaiting(ctx context.Context, id, callerID string) (*dto.RequestResponse, error) {
	return s.transition(ctx, id, callerID, "return", func(r *model.Request, _ time.Time) error {
		if !r.Status.CanTransitionTo(model.StatusWaiting) {
			return ErrInvalidTransition
		}
		r.Status = model.StatusWaiting
		r.AssignedServicePointID = nil
		r.Pinned = false
		r.CalledAt = nil
		return nil
	})
}

func (s *queueService) Hold(ctx context.Context, id, callerID string) (*dto.RequestResponse, error) {
	return s.transition(ctx, id, callerID, "hold", func(r *model.Request, now time.Time) error {
		if !r.Status.CanHold() {
			return ErrInvalidTransition
		}
		if r.IsHeld() {
			return ErrAlreadyHeld
		}
		r.PausedAt = &now
		return nil
	})
}

func (s *queueService) Resume(ctx context.Context, id, callerID string) (*dto.RequestResponse, error) {
	return s.transition(ctx, id, callerID, "resume", func(r *model.Request, _ time.Time) error {
		if !r.Status.CanHold() {
			return ErrInvalidTransition
		}
		if !r.IsHeld() {
			return ErrNotHeld
		}
		r.PausedAt = nil
		return nil
	})
}

// ────────────────────── Transfer ──────────────────────

func (s *queueService) Transfer(ctx context.Context, id string, req *dto.TransferRequest, callerID string) (*dto.RequestResponse, error) {
	r, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.StatusWaiting {
		return nil, ErrInvalidTransition
	}

	if _, err := s.loadEnabledServicePoint(ctx, req.ServicePointID); err != nil {
		return nil, err
	}
	filter, err := s.filterFor(ctx, req.ServicePointID)
	if err != nil {
		return nil, err
	}
	if !filter.Allows(r.TypeCode) {
		return nil, ErrServicePointIncompatible
	}

	target := req.ServicePointID
	r.AssignedServicePointID = &target
	r.Pinned = true
	r.UpdatedBy = optionalID(callerID)
	if err := s.repo.Request.Update(ctx, r); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("转移请求失败", zap.String("request_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.changed("transfer")
	return toRequestResponse(r), nil
}

// ────────────────────── OrderedView ──────────────────────

func (s *queueService) OrderedView(ctx context.Context, req *dto.OrderedViewRequest) (*dto.OrderedViewResponse, error) {
	alg := s.setting.CurrentAlgorithm(ctx)
	if req.Algorithm != "" {
		// 无法识别的算法原样传入，由调度器降级并给出告警
		alg, _ = scheduling.ParseAlgorithm(req.Algorithm)
	}

	if req.ServicePointID != "" {
		if _, err := s.loadServicePoint(ctx, req.ServicePointID); err != nil {
			return nil, err
		}
	}

	ordered, err := s.orderFor(ctx, req.ServicePointID, alg)
	if err != nil {
		return nil, err
	}

	resp := &dto.OrderedViewResponse{
		Algorithm:      string(alg),
		ServicePointID: req.ServicePointID,
		Requests:       make([]dto.RequestResponse, 0, len(ordered.Requests)),
	}
	for i := range ordered.Requests {
		resp.Requests = append(resp.Requests, *toRequestResponse(&ordered.Requests[i]))
	}
	for _, w := range ordered.Warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return resp, nil
}

// ────────────────────── ListHistory ──────────────────────

func (s *queueService) ListHistory(ctx context.Context, req *dto.HistoryListRequest) ([]dto.RequestResponse, int64, error) {
	day := s.now().In(s.loc)
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, s.loc)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		day = parsed
	}

	reqs, total, err := s.repo.Request.ListPageByPeriod(ctx, model.DayPeriod(day, s.loc), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询历史请求失败", zap.String("date", req.Date), zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.RequestResponse, 0, len(reqs))
	for i := range reqs {
		list = append(list, *toRequestResponse(&reqs[i]))
	}
	return list, total, nil
}

// ── 内部辅助 ──

// orderFor 读取当前周期的等待请求并排序；servicePointID 为空时不过滤
func (s *queueService) orderFor(ctx context.Context, servicePointID string, alg scheduling.Algorithm) (scheduling.Result, error) {
	period := model.DayPeriod(s.now(), s.loc)
	waiting, err := s.repo.Request.QueryWaiting(ctx, period)
	if err != nil {
		s.logger.Error("查询等待请求失败", zap.Error(err))
		return scheduling.Result{}, err
	}
	types, err := s.repo.RequestType.ListEnabledTypes(ctx)
	if err != nil {
		s.logger.Error("查询请求类型失败", zap.Error(err))
		return scheduling.Result{}, err
	}

	var filter *scheduling.CapabilityFilter
	if servicePointID != "" {
		mappings, err := s.repo.Capability.ListByServicePoint(ctx, servicePointID)
		if err != nil {
			s.logger.Error("查询能力映射失败", zap.String("service_point_id", servicePointID), zap.Error(err))
			return scheduling.Result{}, err
		}
		filter = scheduling.NewCapabilityFilter(servicePointID, mappings, types)
	}

	return s.scheduler.Order(waiting, scheduling.NewWeightTable(types), alg, filter), nil
}

func (s *queueService) filterFor(ctx context.Context, servicePointID string) (*scheduling.CapabilityFilter, error) {
	types, err := s.repo.RequestType.ListEnabledTypes(ctx)
	if err != nil {
		s.logger.Error("查询请求类型失败", zap.Error(err))
		return nil, err
	}
	mappings, err := s.repo.Capability.ListByServicePoint(ctx, servicePointID)
	if err != nil {
		s.logger.Error("查询能力映射失败", zap.String("service_point_id", servicePointID), zap.Error(err))
		return nil, err
	}
	return scheduling.NewCapabilityFilter(servicePointID, mappings, types), nil
}

// transition 读取 → 校验并修改 → 乐观锁写回 → 通知刷新
func (s *queueService) transition(
	ctx context.Context,
	id, callerID, action string,
	apply func(r *model.Request, now time.Time) error,
) (*dto.RequestResponse, error) {
	r, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(r, s.now()); err != nil {
		return nil, err
	}

	r.UpdatedBy = optionalID(callerID)
	if err := s.repo.Request.Update(ctx, r); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新请求状态失败", zap.String("request_id", id), zap.String("action", action), zap.Error(err))
		}
		return nil, err
	}

	s.changed(action)
	return toRequestResponse(r), nil
}

func (s *queueService) changed(action string) {
	s.metrics.RequestTransition(action)
	if s.notifier != nil {
		s.notifier.Trigger(action)
	}
}

func (s *queueService) loadRequest(ctx context.Context, id string) (*model.Request, error) {
	r, err := s.repo.Request.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("查询请求失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return r, nil
}

func (s *queueService) loadServicePoint(ctx context.Context, id string) (*model.ServicePoint, error) {
	sp, err := s.repo.ServicePoint.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServicePointNotFound
		}
		s.logger.Error("查询服务点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return sp, nil
}

func (s *queueService) loadEnabledServicePoint(ctx context.Context, id string) (*model.ServicePoint, error) {
	sp, err := s.loadServicePoint(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sp.Enabled {
		return nil, ErrServicePointDisabled
	}
	return sp, nil
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func toRequestResponse(r *model.Request) *dto.RequestResponse {
	resp := &dto.RequestResponse{
		ID:                     r.RequestID,
		TypeCode:               r.TypeCode,
		Number:                 r.Number,
		Status:                 string(r.Status),
		AssignedServicePointID: r.AssignedServicePointID,
		Pinned:                 r.Pinned,
		Held:                   r.IsHeld(),
		CreatedAt:              r.CreatedAt.Format(time.RFC3339),
	}
	if r.PausedAt != nil {
		resp.PausedAt = r.PausedAt.Format(time.RFC3339)
	}
	if r.CalledAt != nil {
		resp.CalledAt = r.CalledAt.Format(time.RFC3339)
	}
	if r.CompletedAt != nil {
		resp.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return resp
}
