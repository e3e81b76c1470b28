package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SignalPublisher 跨进程广播刷新信号（Redis pub/sub 实现）
type SignalPublisher interface {
	PublishRefresh(ctx context.Context, channel, reason string) error
}

// Refresher 把来自操作、定时器和外部事件的"需要刷新"信号合并后驱动分配重算。
//
// 单 goroutine 运行：收到第一个信号后等待 debounce 窗口，窗口内的后续信号被合并，
// 然后执行一次 RecalculateAssignments。
type Refresher struct {
	planner  AssignmentService
	debounce time.Duration
	signals  chan string
	logger   *zap.Logger

	publisher SignalPublisher
	channel   string

	// 每次重算完成后回调（测试与监控使用）
	onResult func(*RecalculateResult, error)
}

// NewRefresher 创建 Refresher
func NewRefresher(planner AssignmentService, debounce time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{
		planner:  planner,
		debounce: debounce,
		signals:  make(chan string, 1),
		logger:   logger,
	}
}

// UsePublisher 配置跨进程广播；未配置时 Broadcast 退化为本地 Trigger
func (r *Refresher) UsePublisher(pub SignalPublisher, channel string) {
	r.publisher = pub
	r.channel = channel
}

// OnResult 注册重算结果回调
func (r *Refresher) OnResult(fn func(*RecalculateResult, error)) {
	r.onResult = fn
}

// Trigger 非阻塞投递刷新信号；已有待处理信号时直接合并
func (r *Refresher) Trigger(reason string) {
	select {
	case r.signals <- reason:
	default:
	}
}

// Broadcast 通过发布者广播刷新信号，发布失败时回退为本地触发
func (r *Refresher) Broadcast(ctx context.Context, reason string) {
	if r.publisher == nil {
		r.Trigger(reason)
		return
	}
	if err := r.publisher.PublishRefresh(ctx, r.channel, reason); err != nil {
		r.logger.Warn("广播刷新信号失败，改为本地触发", zap.String("reason", reason), zap.Error(err))
		r.Trigger(reason)
	}
}

// Run 阻塞处理刷新信号直到 ctx 取消；interval > 0 时额外定时触发
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		var reason string
		select {
		case <-ctx.Done():
			return
		case reason = <-r.signals:
		case <-tick:
			reason = "interval"
		}

		merged := r.coalesce(ctx)
		if ctx.Err() != nil {
			return
		}
		r.recalculate(ctx, reason, merged)
	}
}

// coalesce 在 debounce 窗口内吞掉后续信号，返回合并的信号数
func (r *Refresher) coalesce(ctx context.Context) int {
	if r.debounce <= 0 {
		return 0
	}
	timer := time.NewTimer(r.debounce)
	defer timer.Stop()

	merged := 0
	for {
		select {
		case <-ctx.Done():
			return merged
		case <-r.signals:
			merged++
		case <-timer.C:
			return merged
		}
	}
}

func (r *Refresher) recalculate(ctx context.Context, reason string, merged int) {
	res, err := r.planner.RecalculateAssignments(ctx)
	if err != nil {
		r.logger.Error("自动分配重算失败", zap.String("trigger", reason), zap.Error(err))
	} else {
		r.logger.Debug("自动分配重算完成",
			zap.String("trigger", reason),
			zap.Int("merged", merged),
			zap.String("summary", res.Summary()),
		)
	}
	if r.onResult != nil {
		r.onResult(res, err)
	}
}
