package scheduling

import (
	"fmt"
	"sort"
	"time"

	"queue-dispatch/internal/model"
)

// AgingInterval 多级反馈队列中每等待该时长，有效优先级 +1
const AgingInterval = 30 * time.Minute

// WarningKind 降级告警类别
type WarningKind string

const (
	WarnFilterWithoutMappings WarningKind = "filter_without_mappings"
	WarnUnknownAlgorithm      WarningKind = "unknown_algorithm"
	WarnUnknownRequestType    WarningKind = "unknown_request_type"
)

// Warning 排序过程中发生的降级
type Warning struct {
	Kind   WarningKind
	Detail string
}

func (w Warning) String() string { return string(w.Kind) + ": " + w.Detail }

// Result 排序结果
type Result struct {
	Requests []model.Request
	Warnings []Warning
}

// ScheduleOrder 按指定算法计算等待请求的服务顺序。
//
//   - requests 不会被修改，返回新切片
//   - filter 为 nil 表示不过滤；filter 无任何映射条目时全部接受并记录告警
//   - 所有算法最终按 CreatedAt 升序（再按 Number、RequestID）打破平局
//   - now 仅用于多级反馈队列的老化计算
func ScheduleOrder(requests []model.Request, weights WeightTable, algorithm Algorithm, filter *CapabilityFilter, now time.Time) Result {
	var warnings []Warning

	if filter != nil && filter.acceptsAll() {
		warnings = append(warnings, Warning{
			Kind:   WarnFilterWithoutMappings,
			Detail: fmt.Sprintf("服务点 %s 未配置任何能力映射，按全部类型处理", filter.ServicePointID),
		})
	}

	out := make([]model.Request, 0, len(requests))
	unknown := make(map[string]bool)
	for _, r := range requests {
		if !filter.Allows(r.TypeCode) {
			continue
		}
		if !weights.Lookup(r.TypeCode).Known && !unknown[r.TypeCode] {
			unknown[r.TypeCode] = true
			warnings = append(warnings, Warning{
				Kind:   WarnUnknownRequestType,
				Detail: fmt.Sprintf("请求类型 %q 未登记，使用默认权重 %d", r.TypeCode, DefaultPriorityWeight),
			})
		}
		out = append(out, r)
	}

	switch algorithm {
	case AlgorithmFIFO:
		sortFIFO(out)
	case AlgorithmPriority:
		sortByPriority(out, func(r *model.Request) int {
			return weights.Lookup(r.TypeCode).Value
		})
	case AlgorithmMultilevelFeedback:
		sortByPriority(out, func(r *model.Request) int {
			return EffectivePriority(weights.Lookup(r.TypeCode).Value, r.CreatedAt, now)
		})
	case AlgorithmMultilevel:
		out = multilevel(out, weights)
	case AlgorithmRoundRobin:
		out = roundRobin(out)
	default:
		warnings = append(warnings, Warning{
			Kind:   WarnUnknownAlgorithm,
			Detail: fmt.Sprintf("未知算法 %q，返回过滤后的原始顺序", string(algorithm)),
		})
	}

	return Result{Requests: out, Warnings: warnings}
}

// EffectivePriority 有效优先级 = 基础权重 + floor(等待分钟数 / 30)
func EffectivePriority(base int, createdAt, now time.Time) int {
	waited := now.Sub(createdAt)
	if waited <= 0 {
		return base
	}
	return base + int(waited/AgingInterval)
}

// olderFirst CreatedAt 升序，其次 Number、RequestID，保证全序
func olderFirst(a, b *model.Request) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if a.Number != b.Number {
		return a.Number < b.Number
	}
	return a.RequestID < b.RequestID
}

func sortFIFO(reqs []model.Request) {
	sort.SliceStable(reqs, func(i, j int) bool {
		return olderFirst(&reqs[i], &reqs[j])
	})
}

func sortByPriority(reqs []model.Request, priority func(r *model.Request) int) {
	type ranked struct {
		req  model.Request
		prio int
	}
	// 先算好再排序，避免比较函数中重复计算
	items := make([]ranked, len(reqs))
	for i := range reqs {
		items[i] = ranked{req: reqs[i], prio: priority(&reqs[i])}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].prio != items[j].prio {
			return items[i].prio > items[j].prio
		}
		return olderFirst(&items[i].req, &items[j].req)
	})
	for i := range items {
		reqs[i] = items[i].req
	}
}

// subQueue 按类型划分的子队列
type subQueue struct {
	code  string
	items []model.Request
}

// partition 按类型拆分子队列，子队列内按 CreatedAt 升序；
// 返回的子队列按各自队首请求的先后排列（稳定的类型顺序）
func partition(reqs []model.Request) []*subQueue {
	sorted := make([]model.Request, len(reqs))
	copy(sorted, reqs)
	sortFIFO(sorted)

	var queues []*subQueue
	index := make(map[string]*subQueue)
	for _, r := range sorted {
		q, ok := index[r.TypeCode]
		if !ok {
			q = &subQueue{code: r.TypeCode}
			index[r.TypeCode] = q
			queues = append(queues, q)
		}
		q.items = append(q.items, r)
	}
	return queues
}

// multilevel 子队列按类型权重降序拼接，高权重子队列全部出队后才轮到低权重
func multilevel(reqs []model.Request, weights WeightTable) []model.Request {
	queues := partition(reqs)
	// partition 已按队首先后排列，稳定排序后同权重类型保持该顺序
	sort.SliceStable(queues, func(i, j int) bool {
		return weights.Lookup(queues[i].code).Value > weights.Lookup(queues[j].code).Value
	})

	out := make([]model.Request, 0, len(reqs))
	for _, q := range queues {
		out = append(out, q.items...)
	}
	return out
}

// roundRobin 每轮从每个类型子队列各取一个，直到全部取完
func roundRobin(reqs []model.Request) []model.Request {
	queues := partition(reqs)
	out := make([]model.Request, 0, len(reqs))
	for round := 0; len(out) < len(reqs); round++ {
		for _, q := range queues {
			if round < len(q.items) {
				out = append(out, q.items[round])
			}
		}
	}
	return out
}
