package file

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/google/uuid"

	errors "github.com/eventflow/event-management/internal"
	filemodel "github.com/eventflow/event-management/internal/core/datamodel/file"
	"github.com/eventflow/event-management/internal/storage"
)

type Repository interface {
	Create(f *filemodel.File) error
	GetByID(id string) (*filemodel.File, error)
	Delete(id string) error
}

// UploadParams describes one inbound file plus the ownership metadata
// persisted alongside it.
type UploadParams struct {
	Name        string
	Body        []byte
	ContentType string
	Context     filemodel.Context
	EventID     *string
	ContactID   *string
}

type ServiceAPI interface {
	Upload(ctx context.Context, params UploadParams) (*filemodel.File, error)
	GetByID(ctx context.Context, id string) (*filemodel.File, error)
	Delete(ctx context.Context, id string) error
}

// Service persists file metadata and delegates the bytes to the configured
// storage provider.
type Service struct {
	repo     Repository
	provider storage.Provider
	logger   *slog.Logger
}

func NewService(repo Repository, provider storage.Provider, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		logger:   logger,
	}
}

// resolveFolder maps a file context onto the bucket folder layout.
func resolveFolder(c filemodel.Context, eventID *string) string {
	scope := "misc"
	if eventID != nil && *eventID != "" {
		scope = *eventID
	}

	switch c {
	case filemodel.ContextFormSubmission:
		return path.Join("events", scope, "submissions")
	case filemodel.ContextFormCertificate:
		return path.Join("events", scope, "certificates")
	case filemodel.ContextEventAsset:
		return path.Join("events", scope, "assets")
	default:
		return path.Join("events", scope, "files")
	}
}

func (s *Service) Upload(ctx context.Context, params UploadParams) (*filemodel.File, error) {
	if params.Name == "" || len(params.Body) == 0 {
		return nil, errors.NewValidationError("file name and content are required", errors.ErrCodeValidationFailed)
	}

	key := path.Join(resolveFolder(params.Context, params.EventID),
		fmt.Sprintf("%s_%s", uuid.NewString(), params.Name))

	result, err := s.provider.Upload(ctx, storage.UploadParams{
		Key:         key,
		Body:        params.Body,
		ContentType: params.ContentType,
	})
	if err != nil {
		return nil, errors.NewExternalError("file upload failed", errors.ErrCodeStorageError, err)
	}

	record := &filemodel.File{
		URL:        result.URL,
		StorageKey: result.Key,
		Name:       params.Name,
		MimeType:   params.ContentType,
		Size:       int64(len(params.Body)),
		Context:    params.Context,
		EventID:    params.EventID,
		ContactID:  params.ContactID,
	}
	if err := s.repo.Create(record); err != nil {
		return nil, fmt.Errorf("persist file record: %w", err)
	}

	s.logger.Info("file stored",
		"file_id", record.ID,
		"key", record.StorageKey,
		"context", string(params.Context),
		"size", record.Size)
	return record, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*filemodel.File, error) {
	f, err := s.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("load file: %w", err)
	}
	if f == nil {
		return nil, errors.ErrFileNotFound
	}
	return f, nil
}

// Delete removes the database row; a failure deleting the blob itself is
// logged and swallowed so metadata cleanup always wins.
func (s *Service) Delete(ctx context.Context, id string) error {
	f, err := s.repo.GetByID(id)
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}
	if f == nil {
		return errors.ErrFileNotFound
	}

	if err := s.provider.Delete(ctx, f.StorageKey); err != nil {
		s.logger.Warn("blob delete failed, continuing", "file_id", id, "key", f.StorageKey, "error", err)
	}

	if err := s.repo.Delete(id); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}

	s.logger.Info("file deleted", "file_id", id, "key", f.StorageKey)
	return nil
}
