// Package session implements the cookie-session engine: a relational
// store adapter, the session manager middleware, and the header-to-cookie
// bridge used by mobile clients that cannot reliably send cookies.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Logger mirrors the root package logger to avoid an import cycle.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Record is a persisted session. UserID stays empty until a login binds
// the session to an account; an issued ID is never rebound to a different
// user without the manager rotating it first.
type Record struct {
	ID        string
	UserID    string
	Data      map[string]any
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the record is past its expiry.
func (r *Record) Expired(now time.Time) bool {
	return r == nil || !r.ExpiresAt.After(now)
}

// Store persists session records. It is the only writer of the sessions
// table; concurrency control is left to the underlying database.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, record *Record) error
	Touch(ctx context.Context, id string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// NewSessionID generates a cryptographically random session identifier.
func NewSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
