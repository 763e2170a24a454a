package packages

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// ObjectRemover deletes stored objects.
type ObjectRemover interface {
	Delete(ctx context.Context, bucket, key string) error
}

// Service implements package administration.
type Service struct {
	repo    Repository
	objects ObjectRemover
	logger  *slog.Logger
	timeout time.Duration
}

// NewService constructs a Service.
func NewService(repo Repository, objects ObjectRemover, logger *slog.Logger, timeout time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{repo: repo, objects: objects, logger: logger, timeout: timeout}
}

// List returns every package.
func (s *Service) List(ctx context.Context) ([]Package, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, classify("list packages", err)
	}
	return out, nil
}

// Create records an uploaded installer.
func (s *Service) Create(ctx context.Context, in Input, uploadedBy string) (Package, error) {
	if err := checkSize(in.FileSize); err != nil {
		return Package{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.repo.Create(ctx, in, uploadedBy)
	if err != nil {
		return Package{}, classify("create package", err)
	}
	return p, nil
}

// Update overwrites a package record.
func (s *Service) Update(ctx context.Context, id string, in Input) (Package, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Package{}, shared.NotFound("package")
	}
	if err := checkSize(in.FileSize); err != nil {
		return Package{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Package{}, classify("update package", err)
	}
	return p, nil
}

// Delete removes the stored installer, then the record. A failed object
// delete is logged and does not block the record delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return shared.NotFound("package")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return classify("get package", err)
	}
	if p.FilePath != "" && s.objects != nil {
		if err := s.objects.Delete(ctx, Bucket, p.FilePath); err != nil {
			s.logger.Warn("delete package object", slog.String("key", p.FilePath), slog.Any("error", err))
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return classify("delete package", err)
	}
	return nil
}

func checkSize(size int64) error {
	if size > MaxFileSize {
		return shared.Validation("file exceeds %d bytes (%d MiB)", MaxFileSize, MaxFileSize>>20)
	}
	return nil
}

func classify(op string, err error) error {
	if shared.KindOf(err) != shared.KindInternal {
		return err
	}
	return shared.Internal(op, err)
}
