package workflows

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// Objects resolves and deletes stored videos.
type Objects interface {
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

// Service implements workflow administration and the public listing.
type Service struct {
	repo    Repository
	objects Objects
	logger  *slog.Logger
	timeout time.Duration
}

// NewService constructs a Service.
func NewService(repo Repository, objects Objects, logger *slog.Logger, timeout time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{repo: repo, objects: objects, logger: logger, timeout: timeout}
}

// List returns every workflow.
func (s *Service) List(ctx context.Context) ([]Workflow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, classify("list workflows", err)
	}
	return s.withURLs(out), nil
}

// ListPublic returns workflows flagged public.
func (s *Service) ListPublic(ctx context.Context) ([]Workflow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.repo.ListPublic(ctx)
	if err != nil {
		return nil, classify("list public workflows", err)
	}
	return s.withURLs(out), nil
}

// Create records a workflow.
func (s *Service) Create(ctx context.Context, in Input, uploadedBy string) (Workflow, error) {
	if err := checkSize(in.VideoSize); err != nil {
		return Workflow{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	w, err := s.repo.Create(ctx, in, uploadedBy)
	if err != nil {
		return Workflow{}, classify("create workflow", err)
	}
	return s.withURL(w), nil
}

// Update overwrites a workflow.
func (s *Service) Update(ctx context.Context, id string, in Input) (Workflow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Workflow{}, shared.NotFound("workflow")
	}
	if err := checkSize(in.VideoSize); err != nil {
		return Workflow{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	w, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Workflow{}, classify("update workflow", err)
	}
	return s.withURL(w), nil
}

// Delete removes the stored video, then the record. A failed object delete
// is logged and does not block the record delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return shared.NotFound("workflow")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return classify("get workflow", err)
	}
	if w.VideoPath != "" && s.objects != nil {
		if err := s.objects.Delete(ctx, Bucket, w.VideoPath); err != nil {
			s.logger.Warn("delete workflow video", slog.String("key", w.VideoPath), slog.Any("error", err))
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return classify("delete workflow", err)
	}
	return nil
}

func (s *Service) withURLs(in []Workflow) []Workflow {
	for i := range in {
		in[i] = s.withURL(in[i])
	}
	return in
}

func (s *Service) withURL(w Workflow) Workflow {
	if w.VideoPath != "" && s.objects != nil {
		w.VideoURL = s.objects.PublicURL(Bucket, w.VideoPath)
	}
	return w
}

func checkSize(size int64) error {
	if size > MaxVideoSize {
		return shared.Validation("file exceeds %d bytes (%d MiB)", MaxVideoSize, MaxVideoSize>>20)
	}
	return nil
}

func classify(op string, err error) error {
	if shared.KindOf(err) != shared.KindInternal {
		return err
	}
	return shared.Internal(op, err)
}
