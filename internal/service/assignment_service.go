package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"queue-dispatch/internal/model"
	"queue-dispatch/pkg/metrics"
)

// ── 分配重算配置类结果（非错误） ──

const (
	ReasonNoServicePoints = "没有已启用的服务点，跳过分配"
	ReasonNoRequestTypes  = "没有已启用的请求类型，跳过分配"
	ReasonNoWaiting       = "当前周期没有等待中的请求"
)

// RecalculateResult 一次分配重算的汇总
type RecalculateResult struct {
	AssignedCount   int
	ReassignedCount int
	FailedCount     int
	// Reason 非空表示因配置原因未执行任何写入
	Reason string
}

// Summary 面向操作员的汇总文案
func (r *RecalculateResult) Summary() string {
	if r.Reason != "" {
		return r.Reason
	}
	return fmt.Sprintf("已分配 %d，重新分配 %d，失败 %d", r.AssignedCount, r.ReassignedCount, r.FailedCount)
}

// AssignmentService 服务点分配业务接口
type AssignmentService interface {
	// RecalculateAssignments 为当前周期的全部等待请求重新计算服务点分配
	RecalculateAssignments(ctx context.Context) (*RecalculateResult, error)
}

// AssignmentOption 分配服务可选项
type AssignmentOption func(*assignmentService)

// WithAssignmentClock 替换时钟（决定当前营业周期）
func WithAssignmentClock(now func() time.Time) AssignmentOption {
	return func(s *assignmentService) { s.now = now }
}

// WithAssignmentMetrics 挂载指标记录器
func WithAssignmentMetrics(rec *metrics.Recorder) AssignmentOption {
	return func(s *assignmentService) { s.metrics = rec }
}

type assignmentService struct {
	store   RequestStore
	caps    CapabilityRegistry
	types   RequestTypeRegistry
	loc     *time.Location
	now     func() time.Time
	metrics *metrics.Recorder
	logger  *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(
	store RequestStore,
	caps CapabilityRegistry,
	types RequestTypeRegistry,
	loc *time.Location,
	logger *zap.Logger,
	opts ...AssignmentOption,
) AssignmentService {
	s := &assignmentService{
		store:  store,
		caps:   caps,
		types:  types,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ═══════════════════════════════════════════════════════════
// RecalculateAssignments — 贪心负载均衡
// ═══════════════════════════════════════════════════════════
//
// 逐个请求（按存储返回顺序）决策并立即写入，再处理下一个：
//   - 操作员手动转移（Pinned）且所在服务点仍启用的请求保持不动，但照常计入该点负载
//   - 候选 = 能力映射包含该类型的已启用服务点；无候选时兜底为第一个已启用服务点
//   - 候选多于一个时逐个查询实时等待数，请求自身当前所在服务点的计数扣除自身
//   - 取最小值；平局优先保留当前分配，其次取先出现的候选
//   - 目标与当前分配相同则不写
//
// 基础列表查询失败直接返回错误，此时尚未发生任何写入。

func (s *assignmentService) RecalculateAssignments(ctx context.Context) (*RecalculateResult, error) {
	start := time.Now()
	period := model.DayPeriod(s.now(), s.loc)

	// 1. 基础数据：任一失败即终止，保证零副作用
	waiting, err := s.store.QueryWaiting(ctx, period)
	if err != nil {
		return nil, s.fail(start, "查询等待请求失败", err)
	}
	servicePoints, err := s.caps.ListEnabledServicePoints(ctx)
	if err != nil {
		return nil, s.fail(start, "查询服务点失败", err)
	}
	mappings, err := s.caps.ListMappings(ctx)
	if err != nil {
		return nil, s.fail(start, "查询能力映射失败", err)
	}
	types, err := s.types.ListEnabledTypes(ctx)
	if err != nil {
		return nil, s.fail(start, "查询请求类型失败", err)
	}

	// 2. 配置类结果
	result := &RecalculateResult{}
	switch {
	case len(servicePoints) == 0:
		result.Reason = ReasonNoServicePoints
	case len(types) == 0:
		result.Reason = ReasonNoRequestTypes
	case len(waiting) == 0:
		result.Reason = ReasonNoWaiting
	}
	if result.Reason != "" {
		s.logger.Info("分配重算跳过", zap.String("reason", result.Reason))
		s.metrics.ObservePlan("skipped", 0, 0, 0, time.Since(start))
		return result, nil
	}

	compat := buildCompatibility(servicePoints, mappings, types)
	enabled := make(map[string]bool, len(servicePoints))
	for _, sp := range servicePoints {
		enabled[sp.ServicePointID] = true
	}

	// 3. 逐个决策并写入
	pinned := 0
	for i := range waiting {
		req := &waiting[i]

		// 固定目标已停用时按普通请求重新分配，写入会清除固定标记
		if req.Pinned && req.AssignedServicePointID != nil && enabled[*req.AssignedServicePointID] {
			pinned++
			continue
		}

		candidates := compat[req.TypeCode]
		if len(candidates) == 0 {
			candidates = []string{servicePoints[0].ServicePointID}
			s.logger.Warn("请求类型无可用服务点，兜底分配",
				zap.String("request_id", req.RequestID),
				zap.String("type_code", req.TypeCode),
				zap.String("service_point_id", candidates[0]),
			)
		}

		target, ok := s.pickLeastLoaded(ctx, req, candidates, period)
		if !ok {
			result.FailedCount++
			continue
		}
		if req.AssignedTo(target) {
			continue
		}

		if err := s.store.UpdateAssignment(ctx, req.RequestID, target); err != nil {
			s.logger.Error("写入分配失败",
				zap.String("request_id", req.RequestID),
				zap.String("service_point_id", target),
				zap.Error(err),
			)
			result.FailedCount++
			continue
		}

		if req.AssignedServicePointID == nil {
			result.AssignedCount++
		} else {
			result.ReassignedCount++
		}
	}

	s.logger.Info("分配重算完成",
		zap.Int("waiting", len(waiting)),
		zap.Int("pinned", pinned),
		zap.Int("assigned", result.AssignedCount),
		zap.Int("reassigned", result.ReassignedCount),
		zap.Int("failed", result.FailedCount),
	)
	s.metrics.ObservePlan("completed", result.AssignedCount, result.ReassignedCount, result.FailedCount, time.Since(start))
	return result, nil
}

// fail 记录基础数据查询失败并返回包装后的错误
func (s *assignmentService) fail(start time.Time, what string, err error) error {
	s.logger.Error("分配重算失败", zap.String("stage", what), zap.Error(err))
	s.metrics.ObservePlan("error", 0, 0, 0, time.Since(start))
	return fmt.Errorf("%s: %w", what, err)
}

// pickLeastLoaded 在候选中选出实时等待数最少的服务点；全部计数失败时返回 false
func (s *assignmentService) pickLeastLoaded(ctx context.Context, req *model.Request, candidates []string, period model.Period) (string, bool) {
	if len(candidates) == 1 {
		return candidates[0], true
	}

	best := ""
	var bestCount int64
	for _, spID := range candidates {
		count, err := s.store.CountWaiting(ctx, spID, period)
		if err != nil {
			s.logger.Warn("查询服务点等待数失败，排除该候选",
				zap.String("request_id", req.RequestID),
				zap.String("service_point_id", spID),
				zap.Error(err),
			)
			continue
		}
		// 注意：不同于"平局取先出现候选"的字面规则。扣除自身并在平局时保留当前分配，
		// 均衡快照上重复运行须为零写入，勿改回字面规则
		current := req.AssignedTo(spID)
		if current && count > 0 {
			count--
		}

		switch {
		case best == "":
			best, bestCount = spID, count
		case count < bestCount:
			best, bestCount = spID, count
		case count == bestCount && current:
			best = spID
		}
	}
	return best, best != ""
}

// buildCompatibility 类型编码 → 可办理的已启用服务点 ID（保持服务点列表顺序）
func buildCompatibility(servicePoints []model.ServicePoint, mappings []model.CapabilityMapping, types []model.RequestType) map[string][]string {
	codeByID := make(map[string]string, len(types))
	for _, rt := range types {
		codeByID[rt.RequestTypeID] = rt.Code
	}

	served := make(map[string]map[string]bool)
	for _, m := range mappings {
		code, ok := codeByID[m.RequestTypeID]
		if !ok {
			continue
		}
		if served[m.ServicePointID] == nil {
			served[m.ServicePointID] = make(map[string]bool)
		}
		served[m.ServicePointID][code] = true
	}

	compat := make(map[string][]string, len(types))
	for _, sp := range servicePoints {
		for code := range served[sp.ServicePointID] {
			compat[code] = append(compat[code], sp.ServicePointID)
		}
	}
	return compat
}
