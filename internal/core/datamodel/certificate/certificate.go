package certificate

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusGenerated  Status = "GENERATED"
	StatusFailed     Status = "FAILED"
)

type TemplateType string

const (
	TemplateAchievement TemplateType = "ACHIEVEMENT"
	TemplateAppointment TemplateType = "APPOINTMENT"
	TemplateCompletion  TemplateType = "COMPLETION"
	TemplateInternship  TemplateType = "INTERNSHIP"
	TemplateWorkshop    TemplateType = "WORKSHOP"
)

// Certificate is 1:1 with a form submission. GENERATED is terminal; the
// file_asset_id is written exactly once, on the GENERATED transition.
type Certificate struct {
	ID           string       `gorm:"primaryKey"`
	SubmissionID string       `gorm:"column:submission_id;not null;uniqueIndex"`
	ContactID    *string      `gorm:"column:contact_id"`
	EventID      string       `gorm:"column:event_id;not null;index"`
	TemplateType TemplateType `gorm:"column:template_type;not null"`
	Status       Status       `gorm:"column:status;default:QUEUED"`
	FileAssetID  *string      `gorm:"column:file_asset_id"`
	IssuedAt     *time.Time   `gorm:"column:issued_at"`
	CreatedAt    time.Time    `gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;default:now()"`
}

func (Certificate) TableName() string {
	return "certificates"
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ContactSummary and EventSummary are the joined projections the worker
// needs to build render data.
type ContactSummary struct {
	ID    string
	Name  *string
	Email *string
	Phone *string
}

type EventSummary struct {
	ID          string
	Title       string
	Description *string
	Date        *time.Time
}

type WithRelations struct {
	Certificate
	Contact *ContactSummary
	Event   EventSummary
}
