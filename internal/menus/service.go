package menus

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Service implements menu administration.
type Service struct {
	repo    Repository
	timeout time.Duration
}

// NewService constructs a Service.
func NewService(repo Repository, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{repo: repo, timeout: timeout}
}

// List returns every menu ordered by sort order.
func (s *Service) List(ctx context.Context) ([]rbac.MenuEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, classify("list menus", err)
	}
	return out, nil
}

// Create adds a menu.
func (s *Service) Create(ctx context.Context, in Input) (rbac.MenuEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	m, err := s.repo.Create(ctx, in)
	if err != nil {
		return rbac.MenuEntry{}, classify("create menu", err)
	}
	return m, nil
}

// Update overwrites a menu. A menu cannot be its own parent.
func (s *Service) Update(ctx context.Context, id string, in Input) (rbac.MenuEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return rbac.MenuEntry{}, shared.NotFound("menu")
	}
	if in.ParentID != nil && *in.ParentID == id {
		return rbac.MenuEntry{}, shared.Validation("menu cannot be its own parent")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	m, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return rbac.MenuEntry{}, classify("update menu", err)
	}
	return m, nil
}

// Delete removes a menu.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return shared.NotFound("menu")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Delete(ctx, id); err != nil {
		return classify("delete menu", err)
	}
	return nil
}

func classify(op string, err error) error {
	if shared.KindOf(err) != shared.KindInternal {
		return err
	}
	return shared.Internal(op, err)
}
