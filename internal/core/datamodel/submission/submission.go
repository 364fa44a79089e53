package submission

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Submission struct {
	ID        string    `gorm:"primaryKey"`
	EventID   string    `gorm:"column:event_id;not null;index"`
	ContactID *string   `gorm:"column:contact_id"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

func (Submission) TableName() string {
	return "form_submissions"
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
