package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalProvider writes objects under a base directory and serves them from a
// public base URL. Keys map straight onto the filesystem path, so they are
// cleaned against traversal before use.
type LocalProvider struct {
	baseDir       string
	publicBaseURL string
	logger        *slog.Logger
}

func NewLocalProvider(baseDir, publicBaseURL string, logger *slog.Logger) (*LocalProvider, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", baseDir, err)
	}
	return &LocalProvider{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

func (p *LocalProvider) path(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	if cleaned == "/" {
		return "", fmt.Errorf("empty storage key")
	}
	return filepath.Join(p.baseDir, cleaned), nil
}

func (p *LocalProvider) Upload(ctx context.Context, params UploadParams) (*UploadResult, error) {
	path, err := p.path(params.Key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create folder for %s: %w", params.Key, err)
	}
	if err := os.WriteFile(path, params.Body, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", params.Key, err)
	}

	p.logger.Debug("object stored locally", "key", params.Key, "bytes", len(params.Body))
	return &UploadResult{
		Key: params.Key,
		URL: fmt.Sprintf("%s/%s", p.publicBaseURL, strings.TrimLeft(params.Key, "/")),
	}, nil
}

func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	path, err := p.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
