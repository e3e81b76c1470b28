package model

// Operator 操作员表 — 对应 operators
type Operator struct {
	OperatorID     string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"operator_id"`
	Username       string  `gorm:"type:varchar(50);not null;uniqueIndex"          json:"username"`
	Name           string  `gorm:"type:varchar(100);not null"                     json:"name"`
	PasswordHash   string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role           string  `gorm:"type:varchar(20);not null;default:'operator'"   json:"role"` // admin | operator
	ServicePointID *string `gorm:"type:uuid"                                      json:"service_point_id,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Operator) TableName() string { return "operators" }
