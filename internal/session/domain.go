package session

import (
	"errors"
	"time"
)

// DefaultLifetime is the absolute session lifetime from issuance.
const DefaultLifetime = 24 * time.Hour

// Rejection reasons surfaced to clients.
var (
	ErrNoSession = errors.New("no such session")
	ErrExpired   = errors.New("expired")
	ErrDisabled  = errors.New("disabled")
)

// Session is a server-issued proof of prior authentication.
type Session struct {
	ID        string
	Token     string
	AccountID string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Record is a stored session joined with its owner's active flag.
type Record struct {
	Session
	AccountActive bool
}
