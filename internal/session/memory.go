package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// MemoryRepository is an in-process Repository for tests and local tooling.
type MemoryRepository struct {
	mu       sync.Mutex
	accounts map[string]bool
	byToken  map[string]Session
	nextID   int
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]bool), byToken: make(map[string]Session)}
}

// SetAccount registers an account and its active flag.
func (m *MemoryRepository) SetAccount(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = active
}

// DeleteAccount removes an account and cascades to its sessions.
func (m *MemoryRepository) DeleteAccount(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	for token, s := range m.byToken {
		if s.AccountID == id {
			delete(m.byToken, token)
		}
	}
}

// Count returns the number of stored sessions.
func (m *MemoryRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byToken)
}

// Replace implements Repository.
func (m *MemoryRepository) Replace(ctx context.Context, sess Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[sess.AccountID]; !ok {
		return Session{}, shared.NotFound("account")
	}
	for token, s := range m.byToken {
		if s.AccountID == sess.AccountID {
			delete(m.byToken, token)
		}
	}
	m.nextID++
	sess.ID = strconv.Itoa(m.nextID)
	m.byToken[sess.Token] = sess
	return sess, nil
}

// Lookup implements Repository.
func (m *MemoryRepository) Lookup(ctx context.Context, token string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byToken[token]
	if !ok {
		return Record{}, shared.ErrNotFound
	}
	return Record{Session: s, AccountActive: m.accounts[s.AccountID]}, nil
}

// Delete implements Repository.
func (m *MemoryRepository) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byToken, token)
	return nil
}

// DeleteExpired implements Repository.
func (m *MemoryRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.byToken {
		if s.ExpiresAt.Before(before) {
			delete(m.byToken, token)
			n++
		}
	}
	return n, nil
}

var _ Repository = (*MemoryRepository)(nil)
