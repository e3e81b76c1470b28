package simulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"queue-dispatch/internal/model"
	"queue-dispatch/internal/service"
)

func twoPointSpec() *WorkloadSpec {
	return &WorkloadSpec{
		HorizonMinutes: 60,
		ArrivalRate:    1,
		RequestTypes: []RequestTypeSpec{
			{Code: "A", Weight: 5, Share: 1},
			{Code: "B", Weight: 8, Share: 1},
		},
		ServicePoints: []ServicePointSpec{
			{Code: "SP1", Types: []string{"A"}},
			{Code: "SP2", Types: []string{"A", "B"}},
		},
	}
}

// 两个服务点：SP1 只办 A，SP2 办 A、B；依次到达 A1 A2 A3 B1 B2
func TestPlanner_TwoServicePointScenario(t *testing.T) {
	store := NewMemoryStore(twoPointSpec())
	codes := []string{"A", "A", "A", "B", "B"}
	for i, code := range codes {
		r := waitingRequest(code+string(rune('1'+i)), i+1, simStart.Add(time.Duration(i)*time.Minute))
		r.TypeCode = code
		store.Add(r)
	}

	clock := func() time.Time { return simStart.Add(10 * time.Minute) }
	planner := service.NewAssignmentService(store, store, store, time.UTC, zap.NewNop(),
		service.WithAssignmentClock(clock))

	res, err := planner.RecalculateAssignments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.AssignedCount)
	assert.Zero(t, res.ReassignedCount)
	assert.Zero(t, res.FailedCount)

	got := make(map[string][]int)
	for _, r := range store.Requests() {
		require.NotNil(t, r.AssignedServicePointID)
		got[*r.AssignedServicePointID] = append(got[*r.AssignedServicePointID], r.Number)
	}
	assert.Equal(t, []int{1, 3}, got[ServicePointID("SP1")])
	assert.Equal(t, []int{2, 4, 5}, got[ServicePointID("SP2")])

	// 已均衡的快照再次执行不应产生写入
	again, err := planner.RecalculateAssignments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.AssignedCount)
	assert.Zero(t, again.ReassignedCount)
}

func TestRun_Deterministic(t *testing.T) {
	spec := twoPointSpec()
	spec.Seed = 11
	spec.RecalculateEvery = 5
	spec.Algorithm = "priority"

	first, err := Run(context.Background(), spec, simStart, zap.NewNop())
	require.NoError(t, err)
	second, err := Run(context.Background(), spec, simStart, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "priority", first.Algorithm)
	assert.Greater(t, first.Arrivals, 0)
	assert.Greater(t, first.Recalculations, 1)
}

func TestRun_EveryArrivalAssigned(t *testing.T) {
	spec := twoPointSpec()
	spec.Seed = 5

	report, err := Run(context.Background(), spec, simStart, zap.NewNop())
	require.NoError(t, err)

	assert.Zero(t, report.Unassigned)
	assert.Zero(t, report.Failed)
	total := 0
	for _, sp := range report.ServicePoints {
		total += sp.Waiting
		assert.LessOrEqual(t, len(sp.Next), previewSize)
	}
	assert.Equal(t, report.Arrivals, total)
}

func TestRun_UnmappedTypeFallsBack(t *testing.T) {
	spec := twoPointSpec()
	spec.Seed = 9
	spec.RequestTypes = append(spec.RequestTypes, RequestTypeSpec{Code: "C", Weight: 1, Share: 1})

	report, err := Run(context.Background(), spec, simStart, zap.NewNop())
	require.NoError(t, err)

	// C 无任何服务点可办理，兜底到第一个已启用服务点，仍然不会遗留未分配请求
	assert.Zero(t, report.Unassigned)
}

func TestRun_NoServicePointsReportsReason(t *testing.T) {
	spec := twoPointSpec()
	spec.ServicePoints = nil

	report, err := Run(context.Background(), spec, simStart, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, service.ReasonNoServicePoints, report.Reason)
	assert.Equal(t, report.Arrivals, report.Unassigned)
	assert.Empty(t, report.ServicePoints)
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, twoPointSpec(), simStart, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

type failingQueryStore struct {
	*MemoryStore
	err error
}

func (s failingQueryStore) QueryWaiting(context.Context, model.Period) ([]model.Request, error) {
	return nil, s.err
}

func TestCountUnassigned(t *testing.T) {
	store := NewMemoryStore(twoPointSpec())
	store.Add(model.Request{RequestID: "a", TypeCode: "A", Number: 1, Status: model.StatusWaiting,
		VersionedModel: model.VersionedModel{BaseModel: model.BaseModel{CreatedAt: simStart}}})
	period := model.DayPeriod(simStart, time.UTC)

	n, err := countUnassigned(context.Background(), store, period)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	boom := errors.New("store offline")
	_, err = countUnassigned(context.Background(), failingQueryStore{MemoryStore: store, err: boom}, period)
	assert.ErrorIs(t, err, boom)
}
