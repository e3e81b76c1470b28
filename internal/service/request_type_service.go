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

// ── 请求类型模块业务错误 ──

var (
	ErrRequestTypeCodeTaken = errors.New("请求类型编码已存在")
)

// RequestTypeService 请求类型业务接口
type RequestTypeService interface {
	Create(ctx context.Context, req *dto.CreateRequestTypeRequest, callerID string) (*dto.RequestTypeResponse, error)
	List(ctx context.Context) ([]dto.RequestTypeResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateRequestTypeRequest, callerID string) (*dto.RequestTypeResponse, error)
}

type requestTypeService struct {
	repo     *repository.Repository
	notifier RefreshNotifier
	logger   *zap.Logger
}

// NewRequestTypeService 创建 RequestTypeService 实例
func NewRequestTypeService(repo *repository.Repository, notifier RefreshNotifier, logger *zap.Logger) RequestTypeService {
	return &requestTypeService{repo: repo, notifier: notifier, logger: logger}
}

func (s *requestTypeService) Create(ctx context.Context, req *dto.CreateRequestTypeRequest, callerID string) (*dto.RequestTypeResponse, error) {
	if _, err := s.repo.RequestType.GetByCode(ctx, req.Code); err == nil {
		return nil, ErrRequestTypeCodeTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询请求类型失败", zap.String("code", req.Code), zap.Error(err))
		return nil, err
	}

	weight := scheduling.DefaultPriorityWeight
	if req.PriorityWeight != nil {
		weight = *req.PriorityWeight
	}
	rt := &model.RequestType{
		Code:           req.Code,
		Label:          req.Label,
		PriorityWeight: weight,
		Enabled:        true,
	}
	rt.CreatedBy = optionalID(callerID)
	rt.UpdatedBy = optionalID(callerID)

	if err := s.repo.RequestType.Create(ctx, rt); err != nil {
		s.logger.Error("创建请求类型失败", zap.String("code", req.Code), zap.Error(err))
		return nil, err
	}

	s.notify("request_type_created")
	return toRequestTypeResponse(rt), nil
}

func (s *requestTypeService) List(ctx context.Context) ([]dto.RequestTypeResponse, error) {
	types, err := s.repo.RequestType.List(ctx)
	if err != nil {
		s.logger.Error("列出请求类型失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.RequestTypeResponse, 0, len(types))
	for i := range types {
		result = append(result, *toRequestTypeResponse(&types[i]))
	}
	return result, nil
}

func (s *requestTypeService) Update(ctx context.Context, id string, req *dto.UpdateRequestTypeRequest, callerID string) (*dto.RequestTypeResponse, error) {
	rt, err := s.repo.RequestType.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestTypeNotFound
		}
		s.logger.Error("查询请求类型失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Label != nil {
		rt.Label = *req.Label
	}
	if req.PriorityWeight != nil {
		rt.PriorityWeight = *req.PriorityWeight
	}
	if req.Enabled != nil {
		rt.Enabled = *req.Enabled
	}
	rt.UpdatedBy = optionalID(callerID)

	if err := s.repo.RequestType.Update(ctx, rt); err != nil {
		s.logger.Error("更新请求类型失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.notify("request_type_updated")
	return toRequestTypeResponse(rt), nil
}

func (s *requestTypeService) notify(reason string) {
	if s.notifier != nil {
		s.notifier.Trigger(reason)
	}
}

func toRequestTypeResponse(rt *model.RequestType) *dto.RequestTypeResponse {
	return &dto.RequestTypeResponse{
		ID:             rt.RequestTypeID,
		Code:           rt.Code,
		Label:          rt.Label,
		PriorityWeight: rt.PriorityWeight,
		Enabled:        rt.Enabled,
		CreatedAt:      rt.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      rt.UpdatedAt.Format(time.RFC3339),
	}
}
