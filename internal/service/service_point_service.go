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
)

// ── 服务点模块业务错误 ──

var (
	ErrServicePointCodeTaken = errors.New("服务点编码已存在")
	ErrUnknownRequestTypeID  = errors.New("能力映射引用了不存在的请求类型")
)

// ServicePointService 服务点与能力登记业务接口
type ServicePointService interface {
	Create(ctx context.Context, req *dto.CreateServicePointRequest, callerID string) (*dto.ServicePointResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ServicePointResponse, error)
	List(ctx context.Context) ([]dto.ServicePointResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateServicePointRequest, callerID string) (*dto.ServicePointResponse, error)
	SetCapabilities(ctx context.Context, id string, req *dto.SetCapabilitiesRequest, callerID string) (*dto.ServicePointResponse, error)
}

type servicePointService struct {
	repo     *repository.Repository
	notifier RefreshNotifier
	logger   *zap.Logger
}

// NewServicePointService 创建 ServicePointService 实例
func NewServicePointService(repo *repository.Repository, notifier RefreshNotifier, logger *zap.Logger) ServicePointService {
	return &servicePointService{repo: repo, notifier: notifier, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *servicePointService) Create(ctx context.Context, req *dto.CreateServicePointRequest, callerID string) (*dto.ServicePointResponse, error) {
	if err := s.checkTypeIDs(ctx, req.RequestTypeIDs); err != nil {
		return nil, err
	}

	sp := &model.ServicePoint{
		Code:    req.Code,
		Name:    req.Name,
		Enabled: true,
	}
	sp.CreatedBy = optionalID(callerID)
	sp.UpdatedBy = optionalID(callerID)

	if err := s.repo.ServicePoint.Create(ctx, sp); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrServicePointCodeTaken
		}
		s.logger.Error("创建服务点失败", zap.String("code", req.Code), zap.Error(err))
		return nil, err
	}

	if len(req.RequestTypeIDs) > 0 {
		if err := s.repo.Capability.ReplaceForServicePoint(ctx, sp.ServicePointID, req.RequestTypeIDs, callerID); err != nil {
			s.logger.Error("写入能力映射失败", zap.String("service_point_id", sp.ServicePointID), zap.Error(err))
			return nil, err
		}
	}

	s.notify("service_point_created")
	return s.GetByID(ctx, sp.ServicePointID)
}

// ────────────────────── GetByID ──────────────────────

func (s *servicePointService) GetByID(ctx context.Context, id string) (*dto.ServicePointResponse, error) {
	sp, err := s.repo.ServicePoint.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServicePointNotFound
		}
		s.logger.Error("查询服务点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toServicePointResponse(sp), nil
}

// ────────────────────── List ──────────────────────

func (s *servicePointService) List(ctx context.Context) ([]dto.ServicePointResponse, error) {
	sps, err := s.repo.ServicePoint.List(ctx)
	if err != nil {
		s.logger.Error("列出服务点失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ServicePointResponse, 0, len(sps))
	for i := range sps {
		result = append(result, *toServicePointResponse(&sps[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *servicePointService) Update(ctx context.Context, id string, req *dto.UpdateServicePointRequest, callerID string) (*dto.ServicePointResponse, error) {
	sp, err := s.repo.ServicePoint.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServicePointNotFound
		}
		s.logger.Error("查询服务点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		sp.Name = *req.Name
	}
	if req.Enabled != nil {
		sp.Enabled = *req.Enabled
	}
	sp.UpdatedBy = optionalID(callerID)

	if err := s.repo.ServicePoint.Update(ctx, sp); err != nil {
		s.logger.Error("更新服务点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 启停变化会改变可分配的服务点集合
	s.notify("service_point_updated")
	return toServicePointResponse(sp), nil
}

// ────────────────────── SetCapabilities ──────────────────────

func (s *servicePointService) SetCapabilities(ctx context.Context, id string, req *dto.SetCapabilitiesRequest, callerID string) (*dto.ServicePointResponse, error) {
	if _, err := s.repo.ServicePoint.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServicePointNotFound
		}
		s.logger.Error("查询服务点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if err := s.checkTypeIDs(ctx, req.RequestTypeIDs); err != nil {
		return nil, err
	}

	if err := s.repo.Capability.ReplaceForServicePoint(ctx, id, dedupe(req.RequestTypeIDs), callerID); err != nil {
		s.logger.Error("替换能力映射失败", zap.String("service_point_id", id), zap.Error(err))
		return nil, err
	}

	s.notify("capabilities_changed")
	return s.GetByID(ctx, id)
}

// checkTypeIDs 校验类型 ID 均已登记（停用类型允许映射）
func (s *servicePointService) checkTypeIDs(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.repo.RequestType.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownRequestTypeID
			}
			s.logger.Error("查询请求类型失败", zap.String("id", id), zap.Error(err))
			return err
		}
	}
	return nil
}

func (s *servicePointService) notify(reason string) {
	if s.notifier != nil {
		s.notifier.Trigger(reason)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toServicePointResponse(sp *model.ServicePoint) *dto.ServicePointResponse {
	typeIDs := make([]string, 0, len(sp.Capabilities))
	for _, c := range sp.Capabilities {
		typeIDs = append(typeIDs, c.RequestTypeID)
	}
	return &dto.ServicePointResponse{
		ID:             sp.ServicePointID,
		Code:           sp.Code,
		Name:           sp.Name,
		Enabled:        sp.Enabled,
		RequestTypeIDs: typeIDs,
		CreatedAt:      sp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      sp.UpdatedAt.Format(time.RFC3339),
	}
}
