package certificate

import (
	"time"

	"github.com/eventflow/event-management/internal/core/common/validation"
	certmodel "github.com/eventflow/event-management/internal/core/datamodel/certificate"
)

type IssueRequest struct {
	SubmissionID string `json:"submissionId"`
}

func (r *IssueRequest) Validate() error {
	validator := validation.NewValidator()
	validator.Field("submissionId", r.SubmissionID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// BulkIssueRequest queues certificates for many submissions of one event.
// When SubmissionIDs is empty every submission of the event is issued.
type BulkIssueRequest struct {
	EventID       string   `json:"eventId"`
	SubmissionIDs []string `json:"submissionIds,omitempty"`
}

func (r *BulkIssueRequest) Validate() error {
	validator := validation.NewValidator()
	validator.Field("eventId", r.EventID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// IssueResult reports the outcome for one submission. Queued is false when
// the certificate already existed in a live or terminal-success state.
type IssueResult struct {
	SubmissionID  string           `json:"submissionId"`
	CertificateID string           `json:"certificateId,omitempty"`
	Status        certmodel.Status `json:"status,omitempty"`
	Queued        bool             `json:"queued"`
	Error         string           `json:"error,omitempty"`
}

type BulkSummary struct {
	Total   int `json:"total"`
	Queued  int `json:"queued"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type BulkResult struct {
	Summary BulkSummary   `json:"summary"`
	Results []IssueResult `json:"results"`
}

type Detail struct {
	ID           string                 `json:"id"`
	SubmissionID string                 `json:"submissionId"`
	EventID      string                 `json:"eventId"`
	ContactID    *string                `json:"contactId,omitempty"`
	TemplateType certmodel.TemplateType `json:"templateType"`
	Status       certmodel.Status       `json:"status"`
	FileAssetID  *string                `json:"fileAssetId,omitempty"`
	IssuedAt     *time.Time             `json:"issuedAt,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// VerificationView is the public answer for a scanned QR code.
type VerificationView struct {
	Valid         bool       `json:"valid"`
	CertificateID string     `json:"certificateId"`
	RecipientName string     `json:"recipientName,omitempty"`
	EventTitle    string     `json:"eventTitle,omitempty"`
	TemplateType  string     `json:"templateType,omitempty"`
	IssuedAt      *time.Time `json:"issuedAt,omitempty"`
}
