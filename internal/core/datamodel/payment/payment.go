package payment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusPending   Status = "PENDING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// ValidStatus reports whether s names a known payment status. Used to parse
// the optional status filter on list endpoints.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusCreated, StatusPending, StatusSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Payment is 1:1 with a form submission. Rows are never hard-deleted; all
// lifecycle transitions go through the status column.
type Payment struct {
	ID                string          `gorm:"primaryKey"`
	EventID           string          `gorm:"column:event_id;not null;index"`
	SubmissionID      string          `gorm:"column:submission_id;not null;uniqueIndex"`
	ContactID         *string         `gorm:"column:contact_id"`
	Amount            int64           `gorm:"column:amount;not null"` // minor currency units
	Currency          string          `gorm:"column:currency;not null"`
	RazorpayOrderID   string          `gorm:"column:razorpay_order_id;not null;uniqueIndex"`
	RazorpayPaymentID *string         `gorm:"column:razorpay_payment_id"`
	Status            Status          `gorm:"column:status;default:CREATED"`
	FailureReason     *string         `gorm:"column:failure_reason"`
	Attempts          int             `gorm:"column:attempts;default:0"`
	PaidAt            *time.Time      `gorm:"column:paid_at"`
	WebhookConfirmed  bool            `gorm:"column:webhook_confirmed;default:false"`
	Metadata          json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
