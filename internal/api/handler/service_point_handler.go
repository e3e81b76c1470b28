package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"queue-dispatch/internal/dto"
	"queue-dispatch/internal/service"
	"queue-dispatch/pkg/response"
)

// ServicePointHandler 服务点管理 HTTP 处理器
type ServicePointHandler struct {
	servicePointSvc service.ServicePointService
}

// NewServicePointHandler 创建 ServicePointHandler
func NewServicePointHandler(servicePointSvc service.ServicePointService) *ServicePointHandler {
	return &ServicePointHandler{servicePointSvc: servicePointSvc}
}

// Create 创建服务点
// POST /api/v1/service-points
func (h *ServicePointHandler) Create(c *gin.Context) {
	var req dto.CreateServicePointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	result, err := h.servicePointSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleServicePointError(c, err)
		return
	}

	response.Created(c, result)
}

// List 服务点列表
// GET /api/v1/service-points
func (h *ServicePointHandler) List(c *gin.Context) {
	result, err := h.servicePointSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// GetByID 服务点详情
// GET /api/v1/service-points/:id
func (h *ServicePointHandler) GetByID(c *gin.Context) {
	result, err := h.servicePointSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServicePointError(c, err)
		return
	}

	response.OK(c, result)
}

// Update 更新服务点
// PUT /api/v1/service-points/:id
func (h *ServicePointHandler) Update(c *gin.Context) {
	var req dto.UpdateServicePointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	result, err := h.servicePointSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleServicePointError(c, err)
		return
	}

	response.OK(c, result)
}

// SetCapabilities 整体替换服务点可办理的请求类型
// PUT /api/v1/service-points/:id/capabilities
func (h *ServicePointHandler) SetCapabilities(c *gin.Context) {
	var req dto.SetCapabilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	result, err := h.servicePointSvc.SetCapabilities(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleServicePointError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *ServicePointHandler) handleServicePointError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrServicePointNotFound):
		response.NotFound(c, 20004, "服务点不存在")
	case errors.Is(err, service.ErrServicePointCodeTaken):
		response.Conflict(c, 21001, "服务点编码已存在")
	case errors.Is(err, service.ErrUnknownRequestTypeID):
		response.BadRequest(c, 21002, "能力映射引用了不存在的请求类型")
	default:
		response.InternalError(c)
	}
}
