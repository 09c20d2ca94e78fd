package remote

import (
	"context"
	"errors"

	"parentcompanion/internal/models"
)

var (
	// ErrNotFound means the backend has no profile for the session, or
	// there is no usable session at all.
	ErrNotFound = errors.New("remote profile not found")
	// ErrUnavailable covers transport, server and decode failures
	ErrUnavailable = errors.New("remote profile service unavailable")
)

// ProfileSource fetches the authoritative profile of the current user
type ProfileSource interface {
	FetchCurrentUser(ctx context.Context, creds models.Credentials) (*models.UserProfile, error)
}

// SourceFunc adapts a function to ProfileSource
type SourceFunc func(ctx context.Context, creds models.Credentials) (*models.UserProfile, error)

func (f SourceFunc) FetchCurrentUser(ctx context.Context, creds models.Credentials) (*models.UserProfile, error) {
	return f(ctx, creds)
}
