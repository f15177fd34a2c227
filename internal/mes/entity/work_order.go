package entity

import (
	"time"
)

// WorkOrderStatus 工单状态
const (
	WOStatusNotStarted      = "Not Started"
	WOStatusInProgress      = "In Progress"
	WOStatusWaitingHandover = "Waiting for Handover"
	WOStatusCompleted       = "Completed"
	// WOStatusPartial 仅在效率统计中出现，状态机本身不会写入该值
	WOStatusPartial = "Partial"
)

// WorkOrder 生产工单
type WorkOrder struct {
	ID          string  `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	WorkOrderNo string  `json:"work_order_no" gorm:"size:50;not null;uniqueIndex"`
	ClientName  string  `json:"client_name" gorm:"size:100"`
	PONumber    string  `json:"po_number" gorm:"size:100"`
	PartName    string  `json:"part_name" gorm:"size:100"`
	Quantity    int     `json:"quantity" gorm:"not null"`
	CompletedQty int    `json:"completed_qty" gorm:"default:0"`
	RejectedQty  int    `json:"rejected_qty" gorm:"default:0"`

	// 刀具尺寸（创建后不可变）
	Diameter      float64 `json:"diameter" gorm:"type:decimal(10,3)"`
	FluteLength   float64 `json:"flute_length" gorm:"type:decimal(10,3)"`
	OverallLength float64 `json:"overall_length" gorm:"type:decimal(10,3)"`

	DueDate string `json:"due_date" gorm:"size:20"`
	Status  string `json:"status" gorm:"size:20;not null;default:'Not Started';index"`

	// 操作员跟踪
	CurrentOperator  string     `json:"current_operator" gorm:"size:50;index"`
	PreviousOperator string     `json:"previous_operator" gorm:"size:50"`
	CurrentMachine   string     `json:"current_machine" gorm:"size:50"`
	StartTime        *time.Time `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	LastHandoverTime *time.Time `json:"last_handover_time"`

	// 最近一次投诉内容（覆盖写，不追加）
	Complaint string `json:"complaint" gorm:"size:200"`

	CreatedBy string    `json:"created_by" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkOrder) TableName() string {
	return "mes_work_orders"
}

// Remaining 剩余可报数量
func (w *WorkOrder) Remaining() int {
	return w.Quantity - w.CompletedQty - w.RejectedQty
}
