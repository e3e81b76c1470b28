package simulation

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"queue-dispatch/internal/model"
)

// Generate 按负载描述生成到达序列。
//
//   - 相同 Seed 与 start 生成完全相同的结果（包括请求 ID）
//   - 到达间隔服从均值 1/ArrivalRate 分钟的指数分布
//   - 类型按 Share 加权抽取
//   - 结果按 CreatedAt 升序，Number 从 1 连续递增，状态均为 waiting
func Generate(spec *WorkloadSpec, start time.Time) []model.Request {
	rng := rand.New(rand.NewSource(spec.Seed))
	horizon := start.Add(time.Duration(spec.HorizonMinutes) * time.Minute)
	pick := newTypePicker(spec.RequestTypes)

	var out []model.Request
	at := start
	for {
		gap := time.Duration(rng.ExpFloat64() / spec.ArrivalRate * float64(time.Minute))
		if gap < time.Millisecond {
			gap = time.Millisecond
		}
		at = at.Add(gap)
		if !at.Before(horizon) {
			break
		}

		code := pick(rng)
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			// *rand.Rand 的 Read 不会失败
			panic(err)
		}

		r := model.Request{
			RequestID: id.String(),
			TypeCode:  code,
			Number:    len(out) + 1,
			Status:    model.StatusWaiting,
		}
		r.CreatedAt = at
		r.UpdatedAt = at
		r.Version = 1
		out = append(out, r)
	}
	return out
}

// newTypePicker 按 share 累积分布抽取类型编码
func newTypePicker(types []RequestTypeSpec) func(*rand.Rand) string {
	codes := make([]string, 0, len(types))
	cumulative := make([]float64, 0, len(types))
	var total float64
	for _, t := range types {
		if t.Share <= 0 {
			continue
		}
		total += t.Share
		codes = append(codes, t.Code)
		cumulative = append(cumulative, total)
	}

	return func(rng *rand.Rand) string {
		x := rng.Float64() * total
		for i, c := range cumulative {
			if x < c {
				return codes[i]
			}
		}
		return codes[len(codes)-1]
	}
}
