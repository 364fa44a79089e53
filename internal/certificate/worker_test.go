package certificate_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/eventflow/event-management/internal/certificate"
	certmodel "github.com/eventflow/event-management/internal/core/datamodel/certificate"
	filemodel "github.com/eventflow/event-management/internal/core/datamodel/file"
	"github.com/eventflow/event-management/internal/file"
	"github.com/eventflow/event-management/internal/queue"
)

// mockFileService captures the uploaded PDF instead of writing it anywhere.
type mockFileService struct {
	uploads     []file.UploadParams
	uploadError error
}

func (m *mockFileService) Upload(ctx context.Context, params file.UploadParams) (*filemodel.File, error) {
	if m.uploadError != nil {
		return nil, m.uploadError
	}
	m.uploads = append(m.uploads, params)
	return &filemodel.File{
		ID:         "file-1",
		Name:       params.Name,
		MimeType:   params.ContentType,
		Size:       int64(len(params.Body)),
		Context:    params.Context,
		EventID:    params.EventID,
		ContactID:  params.ContactID,
		StorageKey: "events/evt-1/certificates/file-1_" + params.Name,
	}, nil
}

func (m *mockFileService) GetByID(ctx context.Context, id string) (*filemodel.File, error) {
	return nil, nil
}

func (m *mockFileService) Delete(ctx context.Context, id string) error {
	return nil
}

var _ = Describe("CertificateWorker", func() {
	var (
		worker   *certificate.WorkerService
		mockRepo *mockCertificateRepository
		files    *mockFileService
		ctx      context.Context
	)

	const certID = "cert-1"

	name := "Grace Hopper"
	eventDate := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

	newRelations := func(status certmodel.Status, template certmodel.TemplateType) *certmodel.WithRelations {
		contactID := "contact-1"
		return &certmodel.WithRelations{
			Certificate: certmodel.Certificate{
				ID:           certID,
				SubmissionID: "sub-1",
				ContactID:    &contactID,
				EventID:      "evt-1",
				TemplateType: template,
				Status:       status,
			},
			Contact: &certmodel.ContactSummary{ID: "contact-1", Name: &name},
			Event:   certmodel.EventSummary{ID: "evt-1", Title: "Distributed Systems Workshop", Date: &eventDate},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockCertificateRepository()
		files = &mockFileService{}

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		worker = certificate.NewWorkerService(mockRepo, files, "https://events.example.com", logger)
	})

	Describe("Generate", func() {
		Context("with a queued certificate", func() {
			BeforeEach(func() {
				rel := newRelations(certmodel.StatusQueued, certmodel.TemplateWorkshop)
				mockRepo.put(&rel.Certificate)
				mockRepo.relations[certID] = rel
			})

			It("renders a PDF, stores it, and stamps the row GENERATED", func() {
				err := worker.Generate(ctx, certID)
				Expect(err).ToNot(HaveOccurred())

				Expect(files.uploads).To(HaveLen(1))
				upload := files.uploads[0]
				Expect(upload.Name).To(Equal("certificate_cert-1.pdf"))
				Expect(upload.ContentType).To(Equal("application/pdf"))
				Expect(upload.Context).To(Equal(filemodel.ContextFormCertificate))
				Expect(bytes.HasPrefix(upload.Body, []byte("%PDF"))).To(BeTrue())

				cert := mockRepo.byID[certID]
				Expect(cert.Status).To(Equal(certmodel.StatusGenerated))
				Expect(cert.FileAssetID).ToNot(BeNil())
				Expect(*cert.FileAssetID).To(Equal("file-1"))
				Expect(cert.IssuedAt).ToNot(BeNil())
			})
		})

		Context("when the certificate is already GENERATED", func() {
			It("does nothing", func() {
				rel := newRelations(certmodel.StatusGenerated, certmodel.TemplateWorkshop)
				mockRepo.put(&rel.Certificate)
				mockRepo.relations[certID] = rel

				err := worker.Generate(ctx, certID)
				Expect(err).ToNot(HaveOccurred())
				Expect(files.uploads).To(BeEmpty())
				Expect(mockRepo.byID[certID].Status).To(Equal(certmodel.StatusGenerated))
			})
		})

		Context("when the certificate row no longer exists", func() {
			It("fails the job so the queue surfaces it", func() {
				err := worker.Generate(ctx, "gone")
				Expect(err).To(MatchError(ContainSubstring("not found")))
				Expect(files.uploads).To(BeEmpty())
			})
		})

		Context("when the template type is unknown", func() {
			It("marks the certificate FAILED and returns the error", func() {
				rel := newRelations(certmodel.StatusQueued, certmodel.TemplateType("HOLOGRAM"))
				mockRepo.put(&rel.Certificate)
				mockRepo.relations[certID] = rel

				err := worker.Generate(ctx, certID)
				Expect(err).To(HaveOccurred())
				Expect(mockRepo.byID[certID].Status).To(Equal(certmodel.StatusFailed))
			})
		})

		Context("when the upload fails", func() {
			It("marks the certificate FAILED and returns the error", func() {
				rel := newRelations(certmodel.StatusQueued, certmodel.TemplateCompletion)
				mockRepo.put(&rel.Certificate)
				mockRepo.relations[certID] = rel
				files.uploadError = context.DeadlineExceeded

				err := worker.Generate(ctx, certID)
				Expect(err).To(HaveOccurred())
				Expect(mockRepo.byID[certID].Status).To(Equal(certmodel.StatusFailed))
			})
		})

		Context("when stamping GENERATED fails", func() {
			It("marks the certificate FAILED and returns the error", func() {
				rel := newRelations(certmodel.StatusQueued, certmodel.TemplateCompletion)
				mockRepo.put(&rel.Certificate)
				mockRepo.relations[certID] = rel
				mockRepo.markGeneratedErr = context.DeadlineExceeded

				err := worker.Generate(ctx, certID)
				Expect(err).To(HaveOccurred())
				Expect(mockRepo.byID[certID].Status).To(Equal(certmodel.StatusFailed))
			})
		})

		Context("when the PROCESSING transition fails", func() {
			It("marks the certificate FAILED and returns the error", func() {
				rel := newRelations(certmodel.StatusQueued, certmodel.TemplateCompletion)
				mockRepo.put(&rel.Certificate)
				mockRepo.relations[certID] = rel
				mockRepo.markProcessingErr = context.DeadlineExceeded

				err := worker.Generate(ctx, certID)
				Expect(err).To(HaveOccurred())
				Expect(files.uploads).To(BeEmpty())
			})
		})
	})

	Describe("HandleJob", func() {
		It("decodes the payload and generates the certificate", func() {
			rel := newRelations(certmodel.StatusQueued, certmodel.TemplateAchievement)
			mockRepo.put(&rel.Certificate)
			mockRepo.relations[certID] = rel

			payload, err := json.Marshal(map[string]string{
				"certificateId": certID,
				"submissionId":  "sub-1",
				"eventId":       "evt-1",
			})
			Expect(err).ToNot(HaveOccurred())

			err = worker.HandleJob(ctx, &queue.Job{ID: certID, Payload: payload})
			Expect(err).ToNot(HaveOccurred())
			Expect(mockRepo.byID[certID].Status).To(Equal(certmodel.StatusGenerated))
		})

		It("rejects a malformed payload", func() {
			err := worker.HandleJob(ctx, &queue.Job{ID: certID, Payload: json.RawMessage(`{`)})
			Expect(err).To(HaveOccurred())
		})
	})
})
