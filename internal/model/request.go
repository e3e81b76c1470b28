package model

import "time"

// RequestStatus 请求状态
type RequestStatus string

const (
	StatusWaiting   RequestStatus = "waiting"
	StatusActive    RequestStatus = "active"
	StatusCompleted RequestStatus = "completed"
	StatusSkipped   RequestStatus = "skipped"
)

// 合法状态迁移：waiting → active → completed | skipped，skipped → waiting
var statusTransitions = map[RequestStatus][]RequestStatus{
	StatusWaiting: {StatusActive},
	StatusActive:  {StatusCompleted, StatusSkipped},
	StatusSkipped: {StatusWaiting},
}

// Valid 是否为已知状态
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusCompleted, StatusSkipped:
		return true
	}
	return false
}

// CanTransitionTo 判断是否允许从 s 迁移到 next
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, n := range statusTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// CanHold 挂起/恢复只允许在 waiting 或 active 状态下进行
func (s RequestStatus) CanHold() bool {
	return s == StatusWaiting || s == StatusActive
}

// Request 排队请求 — 对应 requests
type Request struct {
	RequestID              string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	TypeCode               string        `gorm:"type:varchar(50);not null;index"                json:"type_code"`
	Number                 int           `gorm:"not null"                                       json:"number"`
	Status                 RequestStatus `gorm:"type:varchar(20);not null;default:'waiting'"    json:"status"`
	AssignedServicePointID *string       `gorm:"type:uuid;index"                                json:"assigned_service_point_id,omitempty"`
	Pinned                 bool          `gorm:"not null;default:false"                         json:"pinned"` // 操作员手动转移，重算时保留
	PausedAt               *time.Time    `json:"paused_at,omitempty"`
	CalledAt               *time.Time    `json:"called_at,omitempty"`
	CompletedAt            *time.Time    `json:"completed_at,omitempty"`
	VersionedModel
}

func (Request) TableName() string { return "requests" }

// IsHeld 是否处于挂起状态（与 status 正交）
func (r *Request) IsHeld() bool { return r.PausedAt != nil }

// AssignedTo 判断是否已分配到指定服务点
func (r *Request) AssignedTo(servicePointID string) bool {
	return r.AssignedServicePointID != nil && *r.AssignedServicePointID == servicePointID
}
