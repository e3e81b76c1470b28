package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"queue-dispatch/internal/api/middleware"
	"queue-dispatch/internal/dto"
	"queue-dispatch/internal/service"
	pkgerrors "queue-dispatch/pkg/errors"
	"queue-dispatch/pkg/response"
)

// QueueHandler 排队与叫号 HTTP 处理器
type QueueHandler struct {
	queueSvc service.QueueService
}

// NewQueueHandler 创建 QueueHandler
func NewQueueHandler(queueSvc service.QueueService) *QueueHandler {
	return &QueueHandler{queueSvc: queueSvc}
}

// Submit 取号
// POST /api/v1/requests
func (h *QueueHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.queueSvc.Submit(c.Request.Context(), &req)
	if err != nil {
		h.handleQueueError(c, err)
		return
	}

	response.Created(c, result)
}

// GetRequest 查询请求
// GET /api/v1/requests/:id
func (h *QueueHandler) GetRequest(c *gin.Context) {
	result, err := h.queueSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleQueueError(c, err)
		return
	}

	response.OK(c, result)
}

// CallNext 为服务点叫下一个号
// POST /api/v1/service-points/:id/call-next
func (h *QueueHandler) CallNext(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	servicePointID := c.Param("id")
	// 绑定了服务点的普通操作员只能为自己的服务点叫号
	if home := GetServicePointID(c); role != middleware.RoleAdmin && home != "" && home != servicePointID {
		response.Forbidden(c, 10003, "只能为所在服务点叫号")
		return
	}

	result, err := h.queueSvc.CallNext(c.Request.Context(), servicePointID, operatorID)
	if err != nil {
		h.handleQueueError(c, err)
		return
	}

	response.OK(c, result)
}

// Skip 过号
// POST /api/v1/requests/:id/skip
func (h *QueueHandler) Skip(c *gin.Context) {
	h.simpleAction(c, h.queueSvc.Skip)
}

// Hold 挂起
// POST /api/v1/requests/:id/hold
func (h *QueueHandler) Hold(c *gin.Context) {
	h.simpleAction(c, h.queueSvc.Hold)
}

// Resume 恢复
// POST /api/v1/requests/:id/resume
func (h *QueueHandler) Resume(c *gin.Context) {
	h.simpleAction(c, h.queueSvc.Resume)
}

// Complete 办结
// POST /api/v1/requests/:id/complete
func (h *QueueHandler) Complete(c *gin.Context) {
	h.simpleAction(c, h.queueSvc.Complete)
}

// ReturnToWaiting 过号后重新排队
// POST /api/v1/requests/:id/return
func (h *QueueHandler) ReturnToWaiting(c *gin.Context) {
	h.simpleAction(c, h.queueSvc.ReturnToWaiting)
}

// Transfer 转移到其他服务点
// POST /api/v1/requests/:id/transfer
func (h *QueueHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	result, err := h.queueSvc.Transfer(c.Request.Context(), c.Param("id"), &req, operatorID)
	if err != nil {
		h.handleQueueError(c, err)
		return
	}

	response.OK(c, result)
}

// OrderedView 叫号顺序
// GET /api/v1/queue/order?service_point_id=&algorithm=
func (h *QueueHandler) OrderedView(c *gin.Context) {
	var req dto.OrderedViewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.queueSvc.OrderedView(c.Request.Context(), &req)
	if err != nil {
		h.handleQueueError(c, err)
		return
	}

	response.OK(c, result)
}

// ListHistory 某日请求历史
// GET /api/v1/requests?date=YYYY-MM-DD&page=&page_size=
func (h *QueueHandler) ListHistory(c *gin.Context) {
	var req dto.HistoryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.queueSvc.ListHistory(c.Request.Context(), &req)
	if err != nil {
		h.handleQueueError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

type requestAction func(ctx context.Context, id, callerID string) (*dto.RequestResponse, error)

func (h *QueueHandler) simpleAction(c *gin.Context, action requestAction) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	result, err := action(c.Request.Context(), c.Param("id"), operatorID)
	if err != nil {
		h.handleQueueError(c, err)
		return
	}

	response.OK(c, result)
}

// handleQueueError 统一处理排队模块业务错误
func (h *QueueHandler) handleQueueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRequestNotFound):
		response.NotFound(c, 20001, "请求不存在")
	case errors.Is(err, service.ErrRequestTypeNotFound):
		response.NotFound(c, 20002, "请求类型不存在")
	case errors.Is(err, service.ErrRequestTypeDisabled):
		response.BadRequest(c, 20003, "请求类型已停用")
	case errors.Is(err, service.ErrServicePointNotFound):
		response.NotFound(c, 20004, "服务点不存在")
	case errors.Is(err, service.ErrServicePointDisabled):
		response.BadRequest(c, 20005, "服务点已停用")
	case errors.Is(err, service.ErrServicePointIncompatible):
		response.BadRequest(c, 20006, "服务点无法办理该类型请求")
	case errors.Is(err, service.ErrInvalidTransition):
		response.BadRequest(c, 20007, "当前状态不允许该操作")
	case errors.Is(err, service.ErrAlreadyHeld):
		response.BadRequest(c, 20008, "请求已挂起")
	case errors.Is(err, service.ErrNotHeld):
		response.BadRequest(c, 20009, "请求未挂起")
	case errors.Is(err, service.ErrQueueEmpty):
		response.NotFound(c, 20010, "当前没有可叫号的请求")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 20012, "日期格式错误，应为 YYYY-MM-DD")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20011, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
