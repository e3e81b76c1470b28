package dto

// ── 服务点模块 DTO ──

// CreateServicePointRequest 创建服务点
type CreateServicePointRequest struct {
	Code           string   `json:"code"             binding:"required,min=1,max=50"`
	Name           string   `json:"name"             binding:"required,min=1,max=100"`
	RequestTypeIDs []string `json:"request_type_ids" binding:"omitempty,dive,uuid"`
}

// UpdateServicePointRequest 更新服务点
type UpdateServicePointRequest struct {
	Name    *string `json:"name"    binding:"omitempty,min=1,max=100"`
	Enabled *bool   `json:"enabled"`
}

// SetCapabilitiesRequest 整体替换服务点能力
type SetCapabilitiesRequest struct {
	RequestTypeIDs []string `json:"request_type_ids" binding:"dive,uuid"`
}

// ServicePointResponse 服务点响应
type ServicePointResponse struct {
	ID             string   `json:"id"`
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Enabled        bool     `json:"enabled"`
	RequestTypeIDs []string `json:"request_type_ids"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// ── 请求类型模块 DTO ──

// CreateRequestTypeRequest 创建请求类型
type CreateRequestTypeRequest struct {
	Code           string `json:"code"            binding:"required,min=1,max=50"`
	Label          string `json:"label"           binding:"required,min=1,max=100"`
	PriorityWeight *int   `json:"priority_weight" binding:"omitempty,min=0,max=100"`
}

// UpdateRequestTypeRequest 更新请求类型
type UpdateRequestTypeRequest struct {
	Label          *string `json:"label"           binding:"omitempty,min=1,max=100"`
	PriorityWeight *int    `json:"priority_weight" binding:"omitempty,min=0,max=100"`
	Enabled        *bool   `json:"enabled"`
}

// RequestTypeResponse 请求类型响应
type RequestTypeResponse struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	Label          string `json:"label"`
	PriorityWeight int    `json:"priority_weight"`
	Enabled        bool   `json:"enabled"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// ── 叫号配置 DTO ──

// UpdateQueueSettingRequest 修改叫号算法
type UpdateQueueSettingRequest struct {
	Algorithm string `json:"algorithm" binding:"required"`
}

// QueueSettingResponse 叫号配置响应
type QueueSettingResponse struct {
	Algorithm string   `json:"algorithm"`
	Available []string `json:"available"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}
