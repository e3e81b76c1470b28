package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"queue-dispatch/internal/dto"
	"queue-dispatch/internal/service"
	"queue-dispatch/pkg/response"
)

// QueueSettingHandler 叫号配置 HTTP 处理器
type QueueSettingHandler struct {
	settingSvc service.QueueSettingService
}

// NewQueueSettingHandler 创建 QueueSettingHandler
func NewQueueSettingHandler(settingSvc service.QueueSettingService) *QueueSettingHandler {
	return &QueueSettingHandler{settingSvc: settingSvc}
}

// Get 当前叫号算法
// GET /api/v1/queue-setting
func (h *QueueSettingHandler) Get(c *gin.Context) {
	result, err := h.settingSvc.Get(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Update 切换叫号算法
// PUT /api/v1/queue-setting
func (h *QueueSettingHandler) Update(c *gin.Context) {
	var req dto.UpdateQueueSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	result, err := h.settingSvc.Update(c.Request.Context(), &req, callerID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAlgorithm) {
			response.BadRequest(c, 21004, "不支持的叫号算法")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
