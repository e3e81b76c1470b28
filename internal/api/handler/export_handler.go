package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"queue-dispatch/internal/service"
	"queue-dispatch/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportHistory 导出某日排队记录
// GET /api/v1/export/history?date=YYYY-MM-DD，date 缺省为当天
func (h *ExportHandler) ExportHistory(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportHistory(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportInvalidDate):
		response.BadRequest(c, 22001, "日期格式错误，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrExportNoRequests):
		response.NotFound(c, 22002, "该日期没有排队记录")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 22003, "导出文件生成失败", err.Error())
	default:
		response.InternalError(c)
	}
}
