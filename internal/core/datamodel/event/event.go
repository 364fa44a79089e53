package event

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventflow/event-management/internal/core/datamodel/certificate"
)

// Event carries only the columns the payment and certificate pipelines read.
// PaymentAmount is in major currency units as configured by the organizer;
// the orchestrator converts to minor units.
type Event struct {
	ID              string                   `gorm:"primaryKey"`
	Title           string                   `gorm:"column:title;not null"`
	Description     *string                  `gorm:"column:description"`
	Slug            string                   `gorm:"column:slug;not null;uniqueIndex"`
	Date            *time.Time               `gorm:"column:date"`
	PaymentEnabled  bool                     `gorm:"column:payment_enabled;default:false"`
	PaymentAmount   *int64                   `gorm:"column:payment_amount"`
	PaymentCurrency *string                  `gorm:"column:payment_currency"`
	TemplateType    certificate.TemplateType `gorm:"column:template_type;default:COMPLETION"`
	CreatedAt       time.Time                `gorm:"column:created_at;default:now()"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;default:now()"`
}

func (Event) TableName() string {
	return "events"
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
