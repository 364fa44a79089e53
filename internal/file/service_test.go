package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/eventflow/event-management/internal"
	filemodel "github.com/eventflow/event-management/internal/core/datamodel/file"
	"github.com/eventflow/event-management/internal/storage"
)

func TestFileService(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "File Service Suite")
}

type mockFileRepository struct {
	files       map[string]*filemodel.File
	deleteError error
}

func newMockFileRepository() *mockFileRepository {
	return &mockFileRepository{files: make(map[string]*filemodel.File)}
}

func (m *mockFileRepository) Create(f *filemodel.File) error {
	if f.ID == "" {
		f.ID = fmt.Sprintf("file-%d", len(m.files)+1)
	}
	m.files[f.ID] = f
	return nil
}

func (m *mockFileRepository) GetByID(id string) (*filemodel.File, error) {
	return m.files[id], nil
}

func (m *mockFileRepository) Delete(id string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	delete(m.files, id)
	return nil
}

type mockProvider struct {
	uploaded    map[string][]byte
	uploadError error
	deleteError error
	deleted     []string
}

func newMockProvider() *mockProvider {
	return &mockProvider{uploaded: make(map[string][]byte)}
}

func (m *mockProvider) Upload(ctx context.Context, params storage.UploadParams) (*storage.UploadResult, error) {
	if m.uploadError != nil {
		return nil, m.uploadError
	}
	m.uploaded[params.Key] = params.Body
	return &storage.UploadResult{
		Key: params.Key,
		URL: "https://cdn.example.com/" + params.Key,
	}, nil
}

func (m *mockProvider) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return m.deleteError
}

var _ = ginkgo.Describe("FileService", func() {
	var (
		service  *Service
		repo     *mockFileRepository
		provider *mockProvider
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		repo = newMockFileRepository()
		provider = newMockProvider()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(repo, provider, logger)
	})

	ginkgo.Describe("Upload", func() {
		ginkgo.It("stores the blob and persists the metadata row", func() {
			eventID := "evt-1"
			record, err := service.Upload(ctx, UploadParams{
				Name:        "cert.pdf",
				Body:        []byte("%PDF-1.4"),
				ContentType: "application/pdf",
				Context:     filemodel.ContextFormCertificate,
				EventID:     &eventID,
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.ID).ToNot(gomega.BeEmpty())
			gomega.Expect(record.StorageKey).To(gomega.HavePrefix("events/evt-1/certificates/"))
			gomega.Expect(record.StorageKey).To(gomega.HaveSuffix("_cert.pdf"))
			gomega.Expect(record.URL).To(gomega.Equal("https://cdn.example.com/" + record.StorageKey))
			gomega.Expect(provider.uploaded).To(gomega.HaveKey(record.StorageKey))
		})

		ginkgo.It("routes each file context to its own folder", func() {
			eventID := "evt-1"
			cases := map[filemodel.Context]string{
				filemodel.ContextFormSubmission:  "events/evt-1/submissions/",
				filemodel.ContextFormCertificate: "events/evt-1/certificates/",
				filemodel.ContextEventAsset:      "events/evt-1/assets/",
				filemodel.Context("UNKNOWN"):     "events/evt-1/files/",
			}

			for fileContext, prefix := range cases {
				record, err := service.Upload(ctx, UploadParams{
					Name:    "a.txt",
					Body:    []byte("x"),
					Context: fileContext,
					EventID: &eventID,
				})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(record.StorageKey).To(gomega.HavePrefix(prefix))
			}
		})

		ginkgo.It("falls back to a misc scope without an event", func() {
			record, err := service.Upload(ctx, UploadParams{
				Name:    "a.txt",
				Body:    []byte("x"),
				Context: filemodel.ContextEventAsset,
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.StorageKey).To(gomega.HavePrefix("events/misc/assets/"))
		})

		ginkgo.It("rejects an empty file", func() {
			_, err := service.Upload(ctx, UploadParams{Name: "a.txt"})
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(provider.uploaded).To(gomega.BeEmpty())
		})

		ginkgo.It("wraps storage failures as external errors", func() {
			provider.uploadError = fmt.Errorf("bucket unreachable")

			_, err := service.Upload(ctx, UploadParams{Name: "a.txt", Body: []byte("x")})
			gomega.Expect(err).To(gomega.HaveOccurred())

			appErr, ok := apperrors.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(apperrors.ErrCodeStorageError))
			gomega.Expect(repo.files).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("Delete", func() {
		var stored *filemodel.File

		ginkgo.BeforeEach(func() {
			var err error
			stored, err = service.Upload(ctx, UploadParams{Name: "a.txt", Body: []byte("x")})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("removes the blob and the metadata row", func() {
			gomega.Expect(service.Delete(ctx, stored.ID)).To(gomega.Succeed())
			gomega.Expect(provider.deleted).To(gomega.ConsistOf(stored.StorageKey))
			gomega.Expect(repo.files).To(gomega.BeEmpty())
		})

		ginkgo.It("still deletes the row when the blob delete fails", func() {
			provider.deleteError = fmt.Errorf("bucket unreachable")

			gomega.Expect(service.Delete(ctx, stored.ID)).To(gomega.Succeed())
			gomega.Expect(repo.files).To(gomega.BeEmpty())
		})

		ginkgo.It("returns not found for an unknown file", func() {
			err := service.Delete(ctx, "missing")
			gomega.Expect(err).To(gomega.MatchError(apperrors.ErrFileNotFound))
		})
	})
})
