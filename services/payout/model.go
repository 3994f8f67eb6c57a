package payout

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the payout lifecycle state. Transitions are monotonic:
// pending -> paid or pending -> failed, never back.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusFailed
}

// PayoutRequest reserves part of a user's earned balance for withdrawal.
// Amount is immutable once created.
type PayoutRequest struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Code          string         `gorm:"column:code;uniqueIndex"`
	UserID        string         `gorm:"column:user_id;index;not null"`
	Amount        int64          `gorm:"column:amount;not null"`
	Status        Status         `gorm:"column:status;type:varchar(20);index;default:'pending'"`
	FailureReason string         `gorm:"column:failure_reason;type:text"`
	Metadata      datatypes.JSON `gorm:"column:metadata"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at"`
	PaidAt        *time.Time     `gorm:"column:paid_at"`
}

func (PayoutRequest) TableName() string {
	return "payout_requests"
}
