package simulation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"queue-dispatch/internal/model"
	"queue-dispatch/internal/scheduling"
	"queue-dispatch/internal/service"
)

// previewSize 报告中每个服务点展示的待叫号数量
const previewSize = 5

// Report 一次仿真的汇总
type Report struct {
	Seed           int64                `yaml:"seed"`
	Algorithm      string               `yaml:"algorithm"`
	Arrivals       int                  `yaml:"arrivals"`
	Recalculations int                  `yaml:"recalculations"`
	Assigned       int                  `yaml:"assigned"`
	Reassigned     int                  `yaml:"reassigned"`
	Failed         int                  `yaml:"failed"`
	Unassigned     int                  `yaml:"unassigned"`
	Reason         string               `yaml:"reason,omitempty"`
	ServicePoints  []ServicePointReport `yaml:"service_points"`
	Warnings       []string             `yaml:"warnings,omitempty"`
}

// ServicePointReport 单个服务点的最终负载与叫号预览
type ServicePointReport struct {
	Code    string   `yaml:"code"`
	Waiting int      `yaml:"waiting"`
	Next    []string `yaml:"next,omitempty"` // 形如 "A#3"
}

// Run 将到达序列逐个写入内存存储，按 RecalculateEvery 周期执行分配重算，
// 结束时再重算一次并为每个已启用服务点计算叫号顺序。
// 仿真时钟跟随到达时刻推进；周期按 UTC 自然日划分，跨日的到达不计入最终视图。
func Run(ctx context.Context, spec *WorkloadSpec, start time.Time, logger *zap.Logger) (*Report, error) {
	store := NewMemoryStore(spec)
	arrivals := Generate(spec, start)

	clock := start
	now := func() time.Time { return clock }
	planner := service.NewAssignmentService(store, store, store, time.UTC, logger,
		service.WithAssignmentClock(now))

	report := &Report{
		Seed:      spec.Seed,
		Algorithm: string(spec.algorithm()),
		Arrivals:  len(arrivals),
	}

	recalculate := func() error {
		res, err := planner.RecalculateAssignments(ctx)
		if err != nil {
			return fmt.Errorf("仿真分配重算失败: %w", err)
		}
		report.Recalculations++
		report.Assigned += res.AssignedCount
		report.Reassigned += res.ReassignedCount
		report.Failed += res.FailedCount
		report.Reason = res.Reason
		return nil
	}

	for i, r := range arrivals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clock = r.CreatedAt
		store.Add(r)
		if spec.RecalculateEvery > 0 && (i+1)%spec.RecalculateEvery == 0 {
			if err := recalculate(); err != nil {
				return nil, err
			}
		}
	}
	if err := recalculate(); err != nil {
		return nil, err
	}

	views, err := finalViews(ctx, store, spec.algorithm(), now, logger)
	if err != nil {
		return nil, err
	}
	report.ServicePoints = views.servicePoints
	report.Warnings = views.warnings

	unassigned, err := countUnassigned(ctx, store, model.DayPeriod(clock, time.UTC))
	if err != nil {
		return nil, err
	}
	report.Unassigned = unassigned

	logger.Info("仿真完成",
		zap.Int64("seed", spec.Seed),
		zap.Int("arrivals", report.Arrivals),
		zap.Int("recalculations", report.Recalculations),
		zap.Int("unassigned", report.Unassigned),
	)
	return report, nil
}

type viewSet struct {
	servicePoints []ServicePointReport
	warnings      []string
}

// countUnassigned 统计周期内仍未分配的等待请求
func countUnassigned(ctx context.Context, store service.RequestStore, period model.Period) (int, error) {
	waiting, err := store.QueryWaiting(ctx, period)
	if err != nil {
		return 0, fmt.Errorf("查询等待请求失败: %w", err)
	}
	n := 0
	for i := range waiting {
		if waiting[i].AssignedServicePointID == nil {
			n++
		}
	}
	return n, nil
}

// finalViews 每个服务点的叫号预览：经能力过滤排序后，只保留分配给该服务点或尚未分配的请求
func finalViews(ctx context.Context, store *MemoryStore, alg scheduling.Algorithm, now func() time.Time, logger *zap.Logger) (*viewSet, error) {
	servicePoints, err := store.ListEnabledServicePoints(ctx)
	if err != nil {
		return nil, err
	}
	mappings, err := store.ListMappings(ctx)
	if err != nil {
		return nil, err
	}
	types, err := store.ListEnabledTypes(ctx)
	if err != nil {
		return nil, err
	}
	period := model.DayPeriod(now(), time.UTC)
	waiting, err := store.QueryWaiting(ctx, period)
	if err != nil {
		return nil, err
	}

	scheduler := scheduling.NewScheduler(logger, scheduling.WithClock(now))
	weights := scheduling.NewWeightTable(types)

	out := &viewSet{}
	seen := make(map[string]bool)
	for _, sp := range servicePoints {
		filter := scheduling.NewCapabilityFilter(sp.ServicePointID, mappings, types)
		res := scheduler.Order(waiting, weights, alg, filter)
		for _, w := range res.Warnings {
			if s := w.String(); !seen[s] {
				seen[s] = true
				out.warnings = append(out.warnings, s)
			}
		}

		load, err := store.CountWaiting(ctx, sp.ServicePointID, period)
		if err != nil {
			return nil, err
		}
		spr := ServicePointReport{Code: sp.Code, Waiting: int(load)}
		for i := range res.Requests {
			r := &res.Requests[i]
			if r.AssignedServicePointID != nil && !r.AssignedTo(sp.ServicePointID) {
				continue
			}
			if len(spr.Next) < previewSize {
				spr.Next = append(spr.Next, fmt.Sprintf("%s#%d", r.TypeCode, r.Number))
			}
		}
		out.servicePoints = append(out.servicePoints, spr)
	}
	return out, nil
}
