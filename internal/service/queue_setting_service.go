package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"queue-dispatch/internal/dto"
	"queue-dispatch/internal/model"
	"queue-dispatch/internal/repository"
	"queue-dispatch/internal/scheduling"
)

// ── 叫号配置模块业务错误 ──

var (
	ErrInvalidAlgorithm = errors.New("不支持的叫号算法")
)

// QueueSettingService 叫号配置业务接口
type QueueSettingService interface {
	Get(ctx context.Context) (*dto.QueueSettingResponse, error)
	Update(ctx context.Context, req *dto.UpdateQueueSettingRequest, callerID string) (*dto.QueueSettingResponse, error)
	// CurrentAlgorithm 读取当前算法；读取失败或值无效时回退到默认算法
	CurrentAlgorithm(ctx context.Context) scheduling.Algorithm
}

type queueSettingService struct {
	repo             *repository.Repository
	defaultAlgorithm scheduling.Algorithm
	logger           *zap.Logger
}

// NewQueueSettingService 创建 QueueSettingService 实例
func NewQueueSettingService(repo *repository.Repository, defaultAlgorithm string, logger *zap.Logger) QueueSettingService {
	alg, ok := scheduling.ParseAlgorithm(defaultAlgorithm)
	if !ok {
		alg = scheduling.AlgorithmFIFO
	}
	return &queueSettingService{repo: repo, defaultAlgorithm: alg, logger: logger}
}

func (s *queueSettingService) Get(ctx context.Context) (*dto.QueueSettingResponse, error) {
	setting, err := s.repo.QueueSetting.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.toResponse(&model.QueueSetting{Algorithm: string(s.defaultAlgorithm)}), nil
		}
		s.logger.Error("查询叫号配置失败", zap.Error(err))
		return nil, err
	}
	return s.toResponse(setting), nil
}

func (s *queueSettingService) Update(ctx context.Context, req *dto.UpdateQueueSettingRequest, callerID string) (*dto.QueueSettingResponse, error) {
	alg, ok := scheduling.ParseAlgorithm(req.Algorithm)
	if !ok {
		return nil, ErrInvalidAlgorithm
	}

	setting := &model.QueueSetting{Algorithm: string(alg)}
	setting.UpdatedBy = &callerID
	if err := s.repo.QueueSetting.Update(ctx, setting); err != nil {
		s.logger.Error("更新叫号配置失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("叫号算法已切换", zap.String("algorithm", string(alg)), zap.String("operator_id", callerID))
	return s.toResponse(setting), nil
}

func (s *queueSettingService) CurrentAlgorithm(ctx context.Context) scheduling.Algorithm {
	setting, err := s.repo.QueueSetting.Get(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("读取叫号配置失败，使用默认算法", zap.Error(err))
		}
		return s.defaultAlgorithm
	}
	alg, ok := scheduling.ParseAlgorithm(setting.Algorithm)
	if !ok {
		// 非法值原样交给调度器，由其降级并记录告警
		return scheduling.Algorithm(setting.Algorithm)
	}
	return alg
}

func (s *queueSettingService) toResponse(setting *model.QueueSetting) *dto.QueueSettingResponse {
	available := make([]string, 0, len(scheduling.Algorithms))
	for _, a := range scheduling.Algorithms {
		available = append(available, string(a))
	}
	resp := &dto.QueueSettingResponse{
		Algorithm: setting.Algorithm,
		Available: available,
	}
	if !setting.UpdatedAt.IsZero() {
		resp.UpdatedAt = setting.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}
