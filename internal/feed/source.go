// Package feed fetches posts of the watched account.
package feed

import (
	"context"
	"errors"

	"post-sniper/internal/domain"
)

var (
	// ErrUnauthorized marks authentication failures (HTTP 401/403).
	// The scheduler reacts to it with a single re-login.
	ErrUnauthorized = errors.New("feed unauthorized")
	// ErrUserNotFound is returned when the handle does not resolve to an account.
	ErrUserNotFound = errors.New("feed user not found")
)

// Source is the post feed collaborator.
type Source interface {
	// Login (re)establishes credentials. It reports whether the session is usable.
	Login(ctx context.Context) (bool, error)

	// FetchRecent returns up to limit most recent posts of handle, newest first.
	FetchRecent(ctx context.Context, handle string, limit int) ([]domain.Post, error)
}
