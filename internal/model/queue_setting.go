package model

// QueueSetting 叫号配置表 — 对应 queue_setting（单行强类型）
// 仅由调用方读取后显式传入调度器，调度核心自身不持有该状态
type QueueSetting struct {
	Singleton bool   `gorm:"primaryKey;default:true"                       json:"-"`
	Algorithm string `gorm:"type:varchar(30);not null;default:'fifo'"      json:"algorithm"`
	BaseModel
}

// TableName 指定表名
func (QueueSetting) TableName() string { return "queue_setting" }
