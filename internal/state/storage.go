// Package state manages per-chat conversation sessions and the state machine rules.
package state

import (
	"context"
	"time"
)

// Session record field names.
const (
	FieldNextState      = "next_state"
	FieldCurrentProduct = "current_product"
)

// Storage defines the persistence contract for conversation sessions.
type Storage interface {
	// GetField returns one field of the chat's session or ErrFieldNotFound.
	GetField(ctx context.Context, chatID int64, field string) (string, error)
	// SetFields writes all fields of the chat's session in one operation, provided token
	// still holds the chat's lock. Otherwise nothing is written and ErrStateLocked is returned.
	SetFields(ctx context.Context, chatID int64, token string, fields map[string]string) error
	// Sessions returns every stored session.
	Sessions(ctx context.Context) ([]Session, error)
	// TryLock takes the chat's processing lock if nobody holds it.
	TryLock(ctx context.Context, chatID int64, token string, ttl time.Duration) (bool, error)
	// RefreshLock extends the lock's TTL and reports whether token still owns it.
	RefreshLock(ctx context.Context, chatID int64, token string, ttl time.Duration) (bool, error)
	// Unlock releases the chat's processing lock if token still owns it.
	Unlock(ctx context.Context, chatID int64, token string) error
}
