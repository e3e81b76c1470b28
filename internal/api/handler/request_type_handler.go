package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"queue-dispatch/internal/dto"
	"queue-dispatch/internal/service"
	"queue-dispatch/pkg/response"
)

// RequestTypeHandler 请求类型管理 HTTP 处理器
type RequestTypeHandler struct {
	requestTypeSvc service.RequestTypeService
}

// NewRequestTypeHandler 创建 RequestTypeHandler
func NewRequestTypeHandler(requestTypeSvc service.RequestTypeService) *RequestTypeHandler {
	return &RequestTypeHandler{requestTypeSvc: requestTypeSvc}
}

// Create 创建请求类型
// POST /api/v1/request-types
func (h *RequestTypeHandler) Create(c *gin.Context) {
	var req dto.CreateRequestTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	result, err := h.requestTypeSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleRequestTypeError(c, err)
		return
	}

	response.Created(c, result)
}

// List 请求类型列表（含已停用）
// GET /api/v1/request-types
func (h *RequestTypeHandler) List(c *gin.Context) {
	result, err := h.requestTypeSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Update 更新请求类型
// PUT /api/v1/request-types/:id
func (h *RequestTypeHandler) Update(c *gin.Context) {
	var req dto.UpdateRequestTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	result, err := h.requestTypeSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleRequestTypeError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *RequestTypeHandler) handleRequestTypeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRequestTypeNotFound):
		response.NotFound(c, 20002, "请求类型不存在")
	case errors.Is(err, service.ErrRequestTypeCodeTaken):
		response.Conflict(c, 21003, "请求类型编码已存在")
	default:
		response.InternalError(c)
	}
}
