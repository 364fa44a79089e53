package postgres

import (
	"errors"

	"gorm.io/gorm"

	submissionmodel "github.com/eventflow/event-management/internal/core/datamodel/submission"
)

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{
		db: db,
	}
}

func (r *SubmissionRepository) GetByID(id string) (*submissionmodel.Submission, error) {
	var s submissionmodel.Submission
	err := r.db.Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListIDsByEvent returns submission ids for an event, used by bulk
// certificate issuance.
func (r *SubmissionRepository) ListIDsByEvent(eventID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&submissionmodel.Submission{}).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
