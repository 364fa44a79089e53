package certificate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eventflow/event-management/internal/certificate/templates"
	certmodel "github.com/eventflow/event-management/internal/core/datamodel/certificate"
	filemodel "github.com/eventflow/event-management/internal/core/datamodel/file"
	"github.com/eventflow/event-management/internal/file"
	"github.com/eventflow/event-management/internal/queue"
)

// WorkerService renders one certificate per job: resolve template, draw the
// PDF, store it, stamp GENERATED. Any error marks the row FAILED and is
// returned so the queue applies its retry policy.
type WorkerService struct {
	repo          Repository
	fileService   file.ServiceAPI
	verifyBaseURL string
	logger        *slog.Logger
}

func NewWorkerService(repo Repository, fileService file.ServiceAPI, verifyBaseURL string, logger *slog.Logger) *WorkerService {
	return &WorkerService{
		repo:          repo,
		fileService:   fileService,
		verifyBaseURL: verifyBaseURL,
		logger:        logger,
	}
}

// HandleJob adapts Generate to the queue's handler signature.
func (w *WorkerService) HandleJob(ctx context.Context, job *queue.Job) error {
	var payload jobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode job payload: %w", err)
	}
	return w.Generate(ctx, payload.CertificateID)
}

func (w *WorkerService) Generate(ctx context.Context, certificateID string) error {
	cert, err := w.repo.GetByIDWithRelations(certificateID)
	if err != nil {
		return fmt.Errorf("load certificate: %w", err)
	}
	if cert == nil {
		w.logger.Warn("job for missing certificate", "certificate_id", certificateID)
		return fmt.Errorf("certificate %s not found", certificateID)
	}

	if cert.Status == certmodel.StatusGenerated {
		w.logger.Info("certificate already generated, skipping", "certificate_id", certificateID)
		return nil
	}

	if err := w.repo.MarkProcessing(certificateID); err != nil {
		w.markFailed(certificateID)
		return fmt.Errorf("mark processing: %w", err)
	}

	fileRecord, err := w.render(ctx, cert)
	if err != nil {
		w.markFailed(certificateID)
		return err
	}

	issuedAt := time.Now()
	if err := w.repo.MarkGenerated(certificateID, fileRecord.ID, issuedAt); err != nil {
		w.markFailed(certificateID)
		return fmt.Errorf("mark generated: %w", err)
	}

	w.logger.Info("certificate generated",
		"certificate_id", certificateID,
		"submission_id", cert.SubmissionID,
		"file_asset_id", fileRecord.ID,
		"template", string(cert.TemplateType))
	return nil
}

// markFailed is best-effort; the caller already carries the real error.
func (w *WorkerService) markFailed(certificateID string) {
	if err := w.repo.MarkFailed(certificateID); err != nil {
		w.logger.Error("mark failed errored", "certificate_id", certificateID, "error", err)
	}
}

func (w *WorkerService) render(ctx context.Context, cert *certmodel.WithRelations) (*filemodel.File, error) {
	tpl, err := templates.Resolve(cert.TemplateType)
	if err != nil {
		return nil, err
	}

	pdf, err := templates.Generate(tpl, w.renderData(cert))
	if err != nil {
		return nil, err
	}

	fileRecord, err := w.fileService.Upload(ctx, file.UploadParams{
		Name:        fmt.Sprintf("certificate_%s.pdf", cert.ID),
		Body:        pdf,
		ContentType: "application/pdf",
		Context:     filemodel.ContextFormCertificate,
		EventID:     &cert.EventID,
		ContactID:   cert.ContactID,
	})
	if err != nil {
		return nil, fmt.Errorf("store certificate pdf: %w", err)
	}
	return fileRecord, nil
}

// renderData flattens the joined row into what the templates consume.
func (w *WorkerService) renderData(cert *certmodel.WithRelations) templates.RenderData {
	data := templates.RenderData{
		CertificateID: cert.ID,
		RecipientName: recipientName(cert.Contact),
		EventTitle:    cert.Event.Title,
		IssuedOn:      time.Now().Format("2 January 2006"),
		VerifyURL:     w.verifyURL(cert.ID),
	}
	if cert.Contact != nil {
		if cert.Contact.Email != nil {
			data.RecipientEmail = *cert.Contact.Email
		}
		if cert.Contact.Phone != nil {
			data.RecipientPhone = *cert.Contact.Phone
		}
	}
	if cert.Event.Description != nil {
		data.EventDescription = *cert.Event.Description
	}
	if cert.Event.Date != nil {
		data.EventDate = cert.Event.Date.Format("2 January 2006")
	}
	return data
}

func (w *WorkerService) verifyURL(certificateID string) string {
	if w.verifyBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/certificates/verify?certificateId=%s",
		w.verifyBaseURL, url.QueryEscape(certificateID))
}
