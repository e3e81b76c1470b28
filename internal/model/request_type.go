package model

// RequestType 请求类型 — 对应 request_types
type RequestType struct {
	RequestTypeID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_type_id"`
	Code           string `gorm:"type:varchar(50);not null;uniqueIndex"          json:"code"`
	Label          string `gorm:"type:varchar(100);not null"                     json:"label"`
	PriorityWeight int    `gorm:"not null;default:5"                             json:"priority_weight"`
	Enabled        bool   `gorm:"not null;default:true"                          json:"enabled"`
	SoftDeleteModel
}

// TableName 指定表名
func (RequestType) TableName() string { return "request_types" }
