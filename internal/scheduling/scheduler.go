package scheduling

import (
	"time"

	"go.uber.org/zap"

	"queue-dispatch/internal/model"
)

// Scheduler 在 ScheduleOrder 之上附加时钟与日志，告警统一写入日志
type Scheduler struct {
	logger *zap.Logger
	now    func() time.Time
	onWarn func(Warning)
}

// Option Scheduler 可选项
type Option func(*Scheduler)

// WithClock 替换时钟（测试与仿真使用）
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithWarningHook 每条降级告警额外回调（用于指标）
func WithWarningHook(fn func(Warning)) Option {
	return func(s *Scheduler) { s.onWarn = fn }
}

// NewScheduler 创建 Scheduler
func NewScheduler(logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Order 以当前时钟计算顺序，并记录所有降级告警
func (s *Scheduler) Order(requests []model.Request, weights WeightTable, algorithm Algorithm, filter *CapabilityFilter) Result {
	res := ScheduleOrder(requests, weights, algorithm, filter, s.now())
	for _, w := range res.Warnings {
		s.logger.Warn("叫号排序降级",
			zap.String("kind", string(w.Kind)),
			zap.String("detail", w.Detail),
			zap.String("algorithm", string(algorithm)),
		)
		if s.onWarn != nil {
			s.onWarn(w)
		}
	}
	return res
}
