package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	certmodel "github.com/eventflow/event-management/internal/core/datamodel/certificate"
)

type CertificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{
		db: db,
	}
}

func (r *CertificateRepository) Create(c *certmodel.Certificate) error {
	return r.db.Create(c).Error
}

func (r *CertificateRepository) GetByID(id string) (*certmodel.Certificate, error) {
	return r.getOne("id = ?", id)
}

func (r *CertificateRepository) GetBySubmissionID(submissionID string) (*certmodel.Certificate, error) {
	return r.getOne("submission_id = ?", submissionID)
}

func (r *CertificateRepository) getOne(query string, arg interface{}) (*certmodel.Certificate, error) {
	var c certmodel.Certificate
	err := r.db.Where(query, arg).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// relationRow is the flat scan target for the joined worker lookup.
type relationRow struct {
	certmodel.Certificate
	ContactName      *string
	ContactEmail     *string
	ContactPhone     *string
	EventTitle       string
	EventDescription *string
	EventDate        *time.Time
}

// GetByIDWithRelations loads a certificate together with its contact and
// event, which the render pipeline needs in one round trip.
func (r *CertificateRepository) GetByIDWithRelations(id string) (*certmodel.WithRelations, error) {
	var row relationRow
	err := r.db.Table("certificates").
		Select(`certificates.*,
			contacts.name AS contact_name,
			contacts.email AS contact_email,
			contacts.phone AS contact_phone,
			events.title AS event_title,
			events.description AS event_description,
			events.date AS event_date`).
		Joins("LEFT JOIN contacts ON contacts.id = certificates.contact_id").
		Joins("JOIN events ON events.id = certificates.event_id").
		Where("certificates.id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	result := &certmodel.WithRelations{
		Certificate: row.Certificate,
		Event: certmodel.EventSummary{
			ID:          row.EventID,
			Title:       row.EventTitle,
			Description: row.EventDescription,
			Date:        row.EventDate,
		},
	}
	if row.ContactID != nil {
		result.Contact = &certmodel.ContactSummary{
			ID:    *row.ContactID,
			Name:  row.ContactName,
			Email: row.ContactEmail,
			Phone: row.ContactPhone,
		}
	}
	return result, nil
}

func (r *CertificateRepository) MarkProcessing(id string) error {
	return r.db.Model(&certmodel.Certificate{}).
		Where("id = ? AND status <> ?", id, certmodel.StatusGenerated).
		Updates(map[string]interface{}{
			"status":     certmodel.StatusProcessing,
			"updated_at": time.Now(),
		}).Error
}

// MarkGenerated stamps the terminal state exactly once: the status predicate
// keeps a duplicate job from overwriting issued_at or file_asset_id.
func (r *CertificateRepository) MarkGenerated(id, fileAssetID string, issuedAt time.Time) error {
	return r.db.Model(&certmodel.Certificate{}).
		Where("id = ? AND status <> ?", id, certmodel.StatusGenerated).
		Updates(map[string]interface{}{
			"status":        certmodel.StatusGenerated,
			"file_asset_id": fileAssetID,
			"issued_at":     issuedAt,
			"updated_at":    time.Now(),
		}).Error
}

func (r *CertificateRepository) MarkFailed(id string) error {
	return r.db.Model(&certmodel.Certificate{}).
		Where("id = ? AND status <> ?", id, certmodel.StatusGenerated).
		Updates(map[string]interface{}{
			"status":     certmodel.StatusFailed,
			"updated_at": time.Now(),
		}).Error
}

func (r *CertificateRepository) ListByEvent(eventID string) ([]certmodel.Certificate, error) {
	var rows []certmodel.Certificate
	err := r.db.Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
