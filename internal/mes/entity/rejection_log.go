package entity

import "time"

// RejectionLog 不良品记录（只追加，不修改不删除）
type RejectionLog struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	WorkOrderID string    `json:"work_order_id" gorm:"type:uuid;not null;index"`
	WorkOrderNo string    `json:"work_order_no" gorm:"size:50;index"`
	Operator    string    `json:"operator" gorm:"size:50;index"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	Reason      string    `json:"reason" gorm:"size:200"`
	Timestamp   time.Time `json:"timestamp" gorm:"index"`
}

func (RejectionLog) TableName() string {
	return "mes_rejection_logs"
}
