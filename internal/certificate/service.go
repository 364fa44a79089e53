package certificate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	errors "github.com/eventflow/event-management/internal"
	certmodel "github.com/eventflow/event-management/internal/core/datamodel/certificate"
	eventmodel "github.com/eventflow/event-management/internal/core/datamodel/event"
	submissionmodel "github.com/eventflow/event-management/internal/core/datamodel/submission"
	"github.com/eventflow/event-management/internal/queue"
)

// batchSize bounds how many submissions are issued concurrently; a larger
// request is processed in sequential chunks of this size.
const batchSize = 50

type Repository interface {
	Create(c *certmodel.Certificate) error
	GetByID(id string) (*certmodel.Certificate, error)
	GetBySubmissionID(submissionID string) (*certmodel.Certificate, error)
	GetByIDWithRelations(id string) (*certmodel.WithRelations, error)
	MarkProcessing(id string) error
	MarkGenerated(id, fileAssetID string, issuedAt time.Time) error
	MarkFailed(id string) error
	ListByEvent(eventID string) ([]certmodel.Certificate, error)
}

type EventRepository interface {
	GetByID(id string) (*eventmodel.Event, error)
}

type SubmissionRepository interface {
	GetByID(id string) (*submissionmodel.Submission, error)
	ListIDsByEvent(eventID string) ([]string, error)
}

// JobQueue is the slice of the queue API the issuer needs. The job id is the
// certificate id, which is what gives issuance its deduplication.
type JobQueue interface {
	Enqueue(ctx context.Context, id string, payload json.RawMessage) (bool, error)
	State(ctx context.Context, id string) (queue.State, error)
	Remove(ctx context.Context, id string) error
}

type ServiceAPI interface {
	Issue(ctx context.Context, submissionID string) (*IssueResult, error)
	IssueBatch(ctx context.Context, eventID string, submissionIDs []string) (*BulkResult, error)
	GetByID(ctx context.Context, id string) (*Detail, error)
	GetBySubmission(ctx context.Context, submissionID string) (*Detail, error)
	ListByEvent(ctx context.Context, eventID string) ([]Detail, error)
	Verify(ctx context.Context, certificateID string) (*VerificationView, error)
}

// jobPayload is what the worker receives; the certificate id doubles as the
// queue job id.
type jobPayload struct {
	CertificateID string `json:"certificateId"`
	SubmissionID  string `json:"submissionId"`
	EventID       string `json:"eventId"`
}

// Service owns the issuance side of the certificate pipeline: it creates the
// QUEUED row and enqueues the generation job. Rendering happens in
// WorkerService.
type Service struct {
	repo           Repository
	eventRepo      EventRepository
	submissionRepo SubmissionRepository
	jobs           JobQueue
	logger         *slog.Logger
}

func NewService(repo Repository, eventRepo EventRepository, submissionRepo SubmissionRepository, jobs JobQueue, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		eventRepo:      eventRepo,
		submissionRepo: submissionRepo,
		jobs:           jobs,
		logger:         logger,
	}
}

// Issue queues certificate generation for one submission. Calling it again
// is safe: a GENERATED certificate is returned as-is, a live job is left
// alone, and a failed job is replaced with a fresh one.
func (s *Service) Issue(ctx context.Context, submissionID string) (*IssueResult, error) {
	submission, err := s.submissionRepo.GetByID(submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if submission == nil {
		return nil, errors.ErrSubmissionNotFound
	}

	event, err := s.eventRepo.GetByID(submission.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, errors.ErrEventNotFound
	}

	cert, err := s.repo.GetBySubmissionID(submissionID)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}

	if cert != nil {
		if cert.Status == certmodel.StatusGenerated {
			return &IssueResult{
				SubmissionID:  submissionID,
				CertificateID: cert.ID,
				Status:        cert.Status,
				Queued:        false,
			}, nil
		}
		return s.enqueue(ctx, cert, false)
	}

	cert = &certmodel.Certificate{
		SubmissionID: submissionID,
		ContactID:    submission.ContactID,
		EventID:      event.ID,
		TemplateType: event.TemplateType,
		Status:       certmodel.StatusQueued,
	}
	if err := s.repo.Create(cert); err != nil {
		return nil, fmt.Errorf("persist certificate: %w", err)
	}

	return s.enqueue(ctx, cert, true)
}

// enqueue pushes the generation job, replacing a stale failed job if one is
// parked under the same certificate id.
func (s *Service) enqueue(ctx context.Context, cert *certmodel.Certificate, created bool) (*IssueResult, error) {
	payload, err := json.Marshal(jobPayload{
		CertificateID: cert.ID,
		SubmissionID:  cert.SubmissionID,
		EventID:       cert.EventID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}

	state, err := s.jobs.State(ctx, cert.ID)
	if err != nil {
		return nil, errors.NewExternalError("certificate queue unavailable", errors.ErrCodeQueueError, err)
	}
	if state == queue.StateFailed {
		if err := s.jobs.Remove(ctx, cert.ID); err != nil {
			return nil, errors.NewExternalError("certificate queue unavailable", errors.ErrCodeQueueError, err)
		}
	}

	queued, err := s.jobs.Enqueue(ctx, cert.ID, payload)
	if err != nil {
		return nil, errors.NewExternalError("certificate queue unavailable", errors.ErrCodeQueueError, err)
	}

	status := cert.Status
	if queued {
		status = certmodel.StatusQueued
		s.logger.Info("certificate generation queued",
			"certificate_id", cert.ID,
			"submission_id", cert.SubmissionID,
			"created", created)
	}

	return &IssueResult{
		SubmissionID:  cert.SubmissionID,
		CertificateID: cert.ID,
		Status:        status,
		Queued:        queued,
	}, nil
}

// IssueBatch issues certificates for every given submission: sequential
// chunks of batchSize, full concurrency inside each chunk. Each submission
// succeeds or fails on its own; one bad id never aborts the batch.
func (s *Service) IssueBatch(ctx context.Context, eventID string, submissionIDs []string) (*BulkResult, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, errors.ErrEventNotFound
	}

	if len(submissionIDs) == 0 {
		submissionIDs, err = s.submissionRepo.ListIDsByEvent(eventID)
		if err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
	}

	results := make([]IssueResult, len(submissionIDs))
	for start := 0; start < len(submissionIDs); start += batchSize {
		end := start + batchSize
		if end > len(submissionIDs) {
			end = len(submissionIDs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int, submissionID string) {
				defer wg.Done()
				res, err := s.Issue(ctx, submissionID)
				if err != nil {
					results[i] = IssueResult{SubmissionID: submissionID, Error: err.Error()}
					return
				}
				results[i] = *res
			}(i, submissionIDs[i])
		}
		wg.Wait()
	}

	summary := BulkSummary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Error != "":
			summary.Failed++
		case r.Queued:
			summary.Queued++
		default:
			summary.Skipped++
		}
	}

	s.logger.Info("bulk certificate issuance dispatched",
		"event_id", eventID,
		"total", summary.Total,
		"queued", summary.Queued,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	return &BulkResult{Summary: summary, Results: results}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Detail, error) {
	cert, err := s.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	if cert == nil {
		return nil, errors.ErrCertificateNotFound
	}
	return toDetail(cert), nil
}

func (s *Service) GetBySubmission(ctx context.Context, submissionID string) (*Detail, error) {
	cert, err := s.repo.GetBySubmissionID(submissionID)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	if cert == nil {
		return nil, errors.ErrCertificateNotFound
	}
	return toDetail(cert), nil
}

func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]Detail, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, errors.ErrEventNotFound
	}

	certs, err := s.repo.ListByEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}

	details := make([]Detail, 0, len(certs))
	for i := range certs {
		details = append(details, *toDetail(&certs[i]))
	}
	return details, nil
}

// Verify answers the public QR verification link. Only a GENERATED
// certificate is valid.
func (s *Service) Verify(ctx context.Context, certificateID string) (*VerificationView, error) {
	cert, err := s.repo.GetByIDWithRelations(certificateID)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	if cert == nil {
		return nil, errors.ErrCertificateNotFound
	}

	view := &VerificationView{
		Valid:         cert.Status == certmodel.StatusGenerated,
		CertificateID: cert.ID,
	}
	if view.Valid {
		view.RecipientName = recipientName(cert.Contact)
		view.EventTitle = cert.Event.Title
		view.TemplateType = string(cert.TemplateType)
		view.IssuedAt = cert.IssuedAt
	}
	return view, nil
}

func toDetail(c *certmodel.Certificate) *Detail {
	return &Detail{
		ID:           c.ID,
		SubmissionID: c.SubmissionID,
		EventID:      c.EventID,
		ContactID:    c.ContactID,
		TemplateType: c.TemplateType,
		Status:       c.Status,
		FileAssetID:  c.FileAssetID,
		IssuedAt:     c.IssuedAt,
		CreatedAt:    c.CreatedAt,
	}
}

func recipientName(contact *certmodel.ContactSummary) string {
	if contact != nil && contact.Name != nil && *contact.Name != "" {
		return *contact.Name
	}
	return "Participant"
}
