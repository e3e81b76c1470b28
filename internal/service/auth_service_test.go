package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"queue-dispatch/config"
	"queue-dispatch/internal/dto"
	"queue-dispatch/internal/model"
	"queue-dispatch/pkg/jwt"
)

// ── 测试辅助 ──

func setupTestAuthService(t *testing.T) (AuthService, *jwt.Manager) {
	t.Helper()
	repo, st := newMockRepository()

	hash, err := bcrypt.GenerateFromPassword([]byte("counter-pass-1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	spID := "sp-SP1"
	st.operators.put(&model.Operator{
		OperatorID:     "op-001",
		Username:       "window1",
		Name:           "一号窗口",
		PasswordHash:   string(hash),
		Role:           "operator",
		ServicePointID: &spID,
	})

	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-at-least-16",
		AccessTokenTTL: time.Hour,
	})
	return NewAuthService(repo, jwtMgr, zap.NewNop()), jwtMgr
}

// ── Login 测试 ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, jwtMgr := setupTestAuthService(t)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "window1", Password: "counter-pass-1"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("期望 ExpiresIn=3600，实际 %d", resp.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("Token 应可解析: %v", err)
	}
	if claims.OperatorID != "op-001" || claims.ServicePointID != "sp-SP1" {
		t.Errorf("Claims 不符: %+v", claims)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _ := setupTestAuthService(t)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "window1", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	svc, _ := setupTestAuthService(t)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "nobody", Password: "x"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_GetCurrentOperator_NotFound(t *testing.T) {
	svc, _ := setupTestAuthService(t)

	_, err := svc.GetCurrentOperator(context.Background(), "op-missing")
	if !errors.Is(err, ErrOperatorNotFound) {
		t.Errorf("期望 ErrOperatorNotFound，实际: %v", err)
	}
}
