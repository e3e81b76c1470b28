package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"queue-dispatch/internal/dto"
	"queue-dispatch/internal/model"
	"queue-dispatch/internal/scheduling"
)

func setupTestQueueSettingService() (QueueSettingService, *mockStores) {
	repo, st := newMockRepository()
	return NewQueueSettingService(repo, "fifo", zap.NewNop()), st
}

func TestQueueSettingService_Update_NormalizesAlgorithm(t *testing.T) {
	svc, st := setupTestQueueSettingService()

	resp, err := svc.Update(context.Background(), &dto.UpdateQueueSettingRequest{Algorithm: "Round-Robin"}, "admin-1")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.Algorithm != "round_robin" {
		t.Errorf("期望 round_robin，实际 %s", resp.Algorithm)
	}
	if st.setting.setting == nil || st.setting.setting.Algorithm != "round_robin" {
		t.Error("期望写入规范化后的算法")
	}
	if len(resp.Available) != len(scheduling.Algorithms) {
		t.Errorf("期望列出 %d 种算法，实际 %d", len(scheduling.Algorithms), len(resp.Available))
	}
}

func TestQueueSettingService_Update_RejectsUnknown(t *testing.T) {
	svc, _ := setupTestQueueSettingService()

	_, err := svc.Update(context.Background(), &dto.UpdateQueueSettingRequest{Algorithm: "lottery"}, "admin-1")
	if !errors.Is(err, ErrInvalidAlgorithm) {
		t.Errorf("期望 ErrInvalidAlgorithm，实际: %v", err)
	}
}

func TestQueueSettingService_CurrentAlgorithm_Fallbacks(t *testing.T) {
	svc, st := setupTestQueueSettingService()

	if got := svc.CurrentAlgorithm(context.Background()); got != scheduling.AlgorithmFIFO {
		t.Errorf("无配置行时应使用默认算法，实际 %s", got)
	}

	st.setting.getErr = errors.New("db down")
	if got := svc.CurrentAlgorithm(context.Background()); got != scheduling.AlgorithmFIFO {
		t.Errorf("读取失败时应使用默认算法，实际 %s", got)
	}

	st.setting.getErr = nil
	st.setting.setting = &model.QueueSetting{Singleton: true, Algorithm: "bogus"}
	if got := svc.CurrentAlgorithm(context.Background()); got != scheduling.Algorithm("bogus") {
		t.Errorf("非法值应原样交给调度器降级，实际 %s", got)
	}
}

func TestQueueSettingService_Get_DefaultWhenMissing(t *testing.T) {
	svc, _ := setupTestQueueSettingService()

	resp, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if resp.Algorithm != "fifo" {
		t.Errorf("期望默认 fifo，实际 %s", resp.Algorithm)
	}
}
