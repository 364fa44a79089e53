package file

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Context names the product surface a file belongs to; it decides the
// storage folder layout.
type Context string

const (
	ContextFormSubmission  Context = "FORM_SUBMISSION"
	ContextFormCertificate Context = "FORM_CERTIFICATE"
	ContextEventAsset      Context = "EVENT_ASSET"
)

type File struct {
	ID         string    `gorm:"primaryKey"`
	URL        string    `gorm:"column:url;not null"`
	StorageKey string    `gorm:"column:storage_key;not null"`
	Name       string    `gorm:"column:name;not null"`
	MimeType   string    `gorm:"column:mime_type;not null"`
	Size       int64     `gorm:"column:size;not null"`
	Context    Context   `gorm:"column:context;not null"`
	EventID    *string   `gorm:"column:event_id;index"`
	ContactID  *string   `gorm:"column:contact_id"`
	CreatedAt  time.Time `gorm:"column:created_at;default:now()"`
}

func (File) TableName() string {
	return "file_assets"
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
