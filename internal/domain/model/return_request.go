package model

import "time"

type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusReceived  ReturnStatus = "received"
	ReturnStatusRefunded  ReturnStatus = "refunded"
)

// 返品申請（RMA）。注文明細単位。
type ReturnRequest struct {
	ID          int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderItemID int64        `gorm:"not null;index" json:"order_item_id"`
	Qty         int64        `gorm:"not null" json:"qty"`
	Reason      string       `gorm:"type:varchar(180)" json:"reason"`
	Status      ReturnStatus `gorm:"type:varchar(20);not null;default:'requested';index" json:"status"`

	CreatedAt  time.Time  `gorm:"not null;autoCreateTime;index" json:"created_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	RefundedAt *time.Time `json:"refunded_at,omitempty"`
}
