package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	pkgerrors "queue-dispatch/pkg/errors"
)

// ── 测试辅助 ──

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func setupTestAssignmentService() (AssignmentService, *mockStores) {
	_, st := newMockRepository()
	svc := NewAssignmentService(st.requests, st.caps, st.types, time.UTC, zap.NewNop(),
		WithAssignmentClock(func() time.Time { return testNow }))
	return svc, st
}

func minutesAgo(m int) time.Time {
	return testNow.Add(-time.Duration(m) * time.Minute)
}

// ── 端到端场景 ──

func TestAssignmentService_Recalculate_TwoServicePoints(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	typeB := st.addType("B", 5)
	sp1 := st.addServicePoint("SP1", true, typeA)
	sp2 := st.addServicePoint("SP2", true, typeA, typeB)

	a1 := st.addRequest("A", minutesAgo(50), "")
	a2 := st.addRequest("A", minutesAgo(40), "")
	a3 := st.addRequest("A", minutesAgo(30), "")
	b1 := st.addRequest("B", minutesAgo(20), "")
	b2 := st.addRequest("B", minutesAgo(10), "")

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("RecalculateAssignments 应成功: %v", err)
	}
	if res.AssignedCount != 5 || res.ReassignedCount != 0 || res.FailedCount != 0 {
		t.Fatalf("期望 5/0/0，实际 %d/%d/%d", res.AssignedCount, res.ReassignedCount, res.FailedCount)
	}

	want := map[string]string{
		a1.RequestID: sp1,
		a2.RequestID: sp2,
		a3.RequestID: sp1,
		b1.RequestID: sp2,
		b2.RequestID: sp2,
	}
	for id, sp := range want {
		if got := st.assignmentOf(id); got != sp {
			t.Errorf("请求 %s 期望分配到 %s，实际 %s", id, sp, got)
		}
	}
}

func TestAssignmentService_Recalculate_IdempotentOnBalancedSnapshot(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	typeB := st.addType("B", 5)
	st.addServicePoint("SP1", true, typeA)
	st.addServicePoint("SP2", true, typeA, typeB)
	for i, code := range []string{"A", "A", "A", "B", "B"} {
		st.addRequest(code, minutesAgo(50-i*10), "")
	}

	if _, err := svc.RecalculateAssignments(context.Background()); err != nil {
		t.Fatalf("首次重算应成功: %v", err)
	}
	st.requests.assignCalls = 0

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("再次重算应成功: %v", err)
	}
	if st.requests.assignCalls != 0 {
		t.Errorf("已均衡时不应产生写入，实际写入 %d 次", st.requests.assignCalls)
	}
	if res.AssignedCount != 0 || res.ReassignedCount != 0 || res.FailedCount != 0 {
		t.Errorf("期望 0/0/0，实际 %d/%d/%d", res.AssignedCount, res.ReassignedCount, res.FailedCount)
	}
	if res.Summary() != "已分配 0，重新分配 0，失败 0" {
		t.Errorf("汇总文案不符: %s", res.Summary())
	}
}

func TestAssignmentService_Recalculate_RebalancesOverloadedPoint(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	sp1 := st.addServicePoint("SP1", true, typeA)
	sp2 := st.addServicePoint("SP2", true, typeA)
	r1 := st.addRequest("A", minutesAgo(30), sp1)
	r2 := st.addRequest("A", minutesAgo(20), sp1)
	r3 := st.addRequest("A", minutesAgo(10), sp1)

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("RecalculateAssignments 应成功: %v", err)
	}
	if res.ReassignedCount != 1 || res.AssignedCount != 0 {
		t.Fatalf("期望重新分配 1 个，实际 assigned=%d reassigned=%d", res.AssignedCount, res.ReassignedCount)
	}
	if got := st.assignmentOf(r1.RequestID); got != sp2 {
		t.Errorf("第一个请求应迁移到 SP2，实际 %s", got)
	}
	if st.assignmentOf(r2.RequestID) != sp1 || st.assignmentOf(r3.RequestID) != sp1 {
		t.Error("平局时应保留当前分配")
	}
}

// ── 兜底与配置类结果 ──

func TestAssignmentService_Recalculate_FallbackWhenNoCompatiblePoint(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	st.addType("C", 5)
	sp1 := st.addServicePoint("SP1", true, typeA)
	st.addServicePoint("SP2", true, typeA)
	c := st.addRequest("C", minutesAgo(5), "")

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("RecalculateAssignments 应成功: %v", err)
	}
	if got := st.assignmentOf(c.RequestID); got != sp1 {
		t.Errorf("无兼容服务点时应兜底到第一个已启用服务点 %s，实际 %q", sp1, got)
	}
	if res.AssignedCount != 1 {
		t.Errorf("期望 AssignedCount=1，实际 %d", res.AssignedCount)
	}
}

func TestAssignmentService_Recalculate_FallbackForUnregisteredType(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	sp1 := st.addServicePoint("SP1", true, typeA)
	x := st.addRequest("X", minutesAgo(5), "")

	if _, err := svc.RecalculateAssignments(context.Background()); err != nil {
		t.Fatalf("RecalculateAssignments 应成功: %v", err)
	}
	if got := st.assignmentOf(x.RequestID); got != sp1 {
		t.Errorf("未登记类型也应兜底分配，实际 %q", got)
	}
}

func TestAssignmentService_Recalculate_DisabledPointIsReassigned(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	spOff := st.addServicePoint("SP0", false, typeA)
	sp1 := st.addServicePoint("SP1", true, typeA)
	r := st.addRequest("A", minutesAgo(5), spOff)

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("RecalculateAssignments 应成功: %v", err)
	}
	if res.ReassignedCount != 1 {
		t.Errorf("期望 ReassignedCount=1，实际 %d", res.ReassignedCount)
	}
	if got := st.assignmentOf(r.RequestID); got != sp1 {
		t.Errorf("停用服务点上的请求应迁移到 %s，实际 %s", sp1, got)
	}
}

func TestAssignmentService_Recalculate_NoEnabledServicePoints(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	st.addServicePoint("SP1", false, typeA)
	st.addRequest("A", minutesAgo(5), "")

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("配置类结果不应返回错误: %v", err)
	}
	if res.Reason != ReasonNoServicePoints {
		t.Errorf("期望 Reason=%q，实际 %q", ReasonNoServicePoints, res.Reason)
	}
	if st.requests.assignCalls != 0 {
		t.Errorf("不应产生写入，实际 %d 次", st.requests.assignCalls)
	}
}

func TestAssignmentService_Recalculate_NoEnabledRequestTypes(t *testing.T) {
	svc, st := setupTestAssignmentService()
	st.addServicePoint("SP1", true)
	st.addRequest("A", minutesAgo(5), "")

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("配置类结果不应返回错误: %v", err)
	}
	if res.Reason != ReasonNoRequestTypes {
		t.Errorf("期望 Reason=%q，实际 %q", ReasonNoRequestTypes, res.Reason)
	}
	if res.Summary() != ReasonNoRequestTypes {
		t.Errorf("配置类结果的汇总应为原因本身，实际 %q", res.Summary())
	}
}

func TestAssignmentService_Recalculate_NoWaitingRequests(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	st.addServicePoint("SP1", true, typeA)
	// 昨天的请求不属于当前营业周期
	st.addRequest("A", testNow.AddDate(0, 0, -1), "")

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("RecalculateAssignments 应成功: %v", err)
	}
	if res.Reason != ReasonNoWaiting {
		t.Errorf("期望 Reason=%q，实际 %q", ReasonNoWaiting, res.Reason)
	}
}

// ── 失败语义 ──

func TestAssignmentService_Recalculate_BaseListFailureIsFatal(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	st.addServicePoint("SP1", true, typeA)
	st.addRequest("A", minutesAgo(5), "")
	st.caps.mappingsErr = errors.New("connection refused")

	res, err := svc.RecalculateAssignments(context.Background())
	if err == nil {
		t.Fatal("基础列表查询失败应返回错误")
	}
	if res != nil {
		t.Error("出错时不应返回结果")
	}
	if st.requests.assignCalls != 0 {
		t.Errorf("出错时不应有任何写入，实际 %d 次", st.requests.assignCalls)
	}
}

func TestAssignmentService_Recalculate_QueryWaitingFailureIsFatal(t *testing.T) {
	svc, st := setupTestAssignmentService()
	st.requests.queryErr = errors.New("timeout")

	if _, err := svc.RecalculateAssignments(context.Background()); err == nil {
		t.Fatal("查询等待请求失败应返回错误")
	}
}

func TestAssignmentService_Recalculate_CountFailureExcludesCandidate(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	sp1 := st.addServicePoint("SP1", true, typeA)
	sp2 := st.addServicePoint("SP2", true, typeA)
	r := st.addRequest("A", minutesAgo(5), "")
	st.requests.countErr[sp1] = errors.New("count failed")

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("单个计数失败不应中断: %v", err)
	}
	if got := st.assignmentOf(r.RequestID); got != sp2 {
		t.Errorf("计数失败的候选应被排除，期望 %s，实际 %s", sp2, got)
	}
	if res.FailedCount != 0 {
		t.Errorf("期望 FailedCount=0，实际 %d", res.FailedCount)
	}
}

func TestAssignmentService_Recalculate_AllCountsFailCountsAsFailed(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	sp1 := st.addServicePoint("SP1", true, typeA)
	sp2 := st.addServicePoint("SP2", true, typeA)
	st.addRequest("A", minutesAgo(5), "")
	st.requests.countErr[sp1] = errors.New("count failed")
	st.requests.countErr[sp2] = errors.New("count failed")

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("计数失败不应返回错误: %v", err)
	}
	if res.FailedCount != 1 {
		t.Errorf("期望 FailedCount=1，实际 %d", res.FailedCount)
	}
}

func TestAssignmentService_Recalculate_WriteFailureDoesNotAbortBatch(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	sp1 := st.addServicePoint("SP1", true, typeA)
	r1 := st.addRequest("A", minutesAgo(20), "")
	r2 := st.addRequest("A", minutesAgo(10), "")
	st.requests.assignErr[r1.RequestID] = errors.New("deadlock detected")

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("单条写入失败不应返回错误: %v", err)
	}
	if res.FailedCount != 1 || res.AssignedCount != 1 {
		t.Errorf("期望 assigned=1 failed=1，实际 assigned=%d failed=%d", res.AssignedCount, res.FailedCount)
	}
	if got := st.assignmentOf(r2.RequestID); got != sp1 {
		t.Errorf("后续请求仍应写入，实际 %q", got)
	}
}

func TestAssignmentService_Recalculate_RequestCalledMeanwhileCountsAsFailed(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	st.addServicePoint("SP1", true, typeA)
	r := st.addRequest("A", minutesAgo(5), "")
	st.requests.assignErr[r.RequestID] = pkgerrors.ErrNotWaiting

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("RecalculateAssignments 应成功: %v", err)
	}
	if res.FailedCount != 1 {
		t.Errorf("期望 FailedCount=1，实际 %d", res.FailedCount)
	}
}

// ── 手动固定 ──

func TestAssignmentService_Recalculate_KeepsPinnedRequest(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	sp1 := st.addServicePoint("SP1", true, typeA)
	sp2 := st.addServicePoint("SP2", true, typeA)
	pinned := st.addRequest("A", minutesAgo(30), sp2)
	st.requests.reqs[pinned.RequestID].Pinned = true
	other := st.addRequest("A", minutesAgo(20), sp2)

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("RecalculateAssignments 应成功: %v", err)
	}

	if got := st.assignmentOf(pinned.RequestID); got != sp2 {
		t.Errorf("固定请求不应被移动，实际 %s", got)
	}
	if got := st.assignmentOf(other.RequestID); got != sp1 {
		t.Errorf("期望未固定请求被均衡到 %s，实际 %s", sp1, got)
	}
	if res.ReassignedCount != 1 {
		t.Errorf("期望 ReassignedCount=1，实际 %d", res.ReassignedCount)
	}
}

func TestAssignmentService_Recalculate_PinnedToDisabledPointIsReplanned(t *testing.T) {
	svc, st := setupTestAssignmentService()
	typeA := st.addType("A", 5)
	sp1 := st.addServicePoint("SP1", true, typeA)
	closed := st.addServicePoint("SP9", false, typeA)
	r := st.addRequest("A", minutesAgo(30), closed)
	st.requests.reqs[r.RequestID].Pinned = true

	res, err := svc.RecalculateAssignments(context.Background())
	if err != nil {
		t.Fatalf("RecalculateAssignments 应成功: %v", err)
	}

	if got := st.assignmentOf(r.RequestID); got != sp1 {
		t.Errorf("固定目标停用后应重新分配到 %s，实际 %s", sp1, got)
	}
	if st.requests.reqs[r.RequestID].Pinned {
		t.Error("重新分配后应清除固定标记")
	}
	if res.ReassignedCount != 1 {
		t.Errorf("期望 ReassignedCount=1，实际 %d", res.ReassignedCount)
	}
}
