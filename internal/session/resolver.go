package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"parentcompanion/internal/models"
	"parentcompanion/internal/remote"
)

var (
	// ErrSessionChanged is reported when a fetched profile was discarded because
	// the user logged in or out while the request was in flight.
	ErrSessionChanged = errors.New("session changed during profile fetch")
	// ErrLocalWrite is reported when a profile was fetched but could not be cached
	ErrLocalWrite = errors.New("failed to store fetched profile")
)

// Origin records where the launch profile came from
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
	OriginNone   Origin = "none"
)

// Resolution is the outcome of resolving the launch session
type Resolution struct {
	Profile *models.UserProfile
	Origin  Origin
	// Refresh is the background refresh started for a local profile, or nil
	Refresh *RefreshTask
}

// RefreshTask is a single background profile refresh
type RefreshTask struct {
	done      chan struct{}
	err       error
	startedAt time.Time
}

// Done is closed once the refresh has finished
func (t *RefreshTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the refresh finishes or ctx ends. It returns the
// refresh outcome, or ctx.Err() if ctx ended first.
func (t *RefreshTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartedAt returns when the refresh was launched
func (t *RefreshTask) StartedAt() time.Time {
	return t.startedAt
}

// Resolver decides which profile the app launches with
type Resolver struct {
	session *Manager
	source  remote.ProfileSource

	mu      sync.Mutex
	pending *RefreshTask
}

func NewResolver(session *Manager, source remote.ProfileSource) *Resolver {
	return &Resolver{session: session, source: source}
}

// ResolveInitialSession returns the cached profile straight away when there
// is one and refreshes it in the background. Without a cached profile it
// waits for the backend. It never fails: every error ends as no profile.
func (r *Resolver) ResolveInitialSession(ctx context.Context) Resolution {
	store := r.session.Store()

	if profile, ok := store.Get(ctx); ok {
		return Resolution{
			Profile: profile,
			Origin:  OriginLocal,
			Refresh: r.startRefresh(ctx),
		}
	}

	profile, err := r.fetchAndStore(ctx, r.snapshot(ctx))
	switch {
	case errors.Is(err, ErrLocalWrite):
		// The backend knows this user; launch with the fetched copy even
		// though it will be fetched again next time.
		log.Printf("Local write failure, launching with the fetched profile: %v", err)
		return Resolution{Profile: profile, Origin: OriginRemote}
	case err != nil:
		logFetchFailure("Initial profile fetch failed", err)
		return Resolution{Origin: OriginNone}
	}
	return Resolution{Profile: profile, Origin: OriginRemote}
}

// Sync fetches the profile now and replaces the cached copy
func (r *Resolver) Sync(ctx context.Context) (*models.UserProfile, error) {
	profile, err := r.fetchAndStore(ctx, r.snapshot(ctx))
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Pending returns the most recently started refresh, if any
func (r *Resolver) Pending() *RefreshTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// startRefresh launches one refresh detached from ctx's cancellation.
// A failed refresh leaves the cached profile as it was. The caller already
// holds the local profile it returns, so the launch destination never
// depends on whether the refresh has landed.
func (r *Resolver) startRefresh(ctx context.Context) *RefreshTask {
	task := &RefreshTask{done: make(chan struct{}), startedAt: time.Now()}
	r.mu.Lock()
	r.pending = task
	r.mu.Unlock()

	refreshCtx := context.WithoutCancel(ctx)
	snap := r.snapshot(ctx)
	go func() {
		defer close(task.done)
		if _, err := r.fetchAndStore(refreshCtx, snap); err != nil {
			task.err = err
			logFetchFailure("Background profile refresh failed, keeping local profile", err)
			return
		}
		log.Printf("Background profile refresh completed in %s", time.Since(task.startedAt).Round(time.Millisecond))
	}()
	return task
}

// sessionSnapshot pins the credentials a fetch runs with and the session
// generation its result is valid for.
type sessionSnapshot struct {
	generation uint64
	creds      models.Credentials
}

func (r *Resolver) snapshot(ctx context.Context) sessionSnapshot {
	generation := r.session.currentGeneration()
	return sessionSnapshot{generation: generation, creds: r.session.Credentials(ctx)}
}

// fetchAndStore fetches with snap's credentials and caches the result. On
// ErrLocalWrite the fetched profile is returned alongside the error.
func (r *Resolver) fetchAndStore(ctx context.Context, snap sessionSnapshot) (*models.UserProfile, error) {
	profile, err := r.source.FetchCurrentUser(ctx, snap.creds)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: empty profile", remote.ErrUnavailable)
	}

	written, err := r.session.putIfCurrent(ctx, snap.generation, profile)
	if err != nil {
		return profile, fmt.Errorf("%w: %w", ErrLocalWrite, err)
	}
	if !written {
		return nil, ErrSessionChanged
	}
	return profile, nil
}

func logFetchFailure(prefix string, err error) {
	switch {
	case errors.Is(err, remote.ErrNotFound):
		log.Printf("%s: no remote profile: %v", prefix, err)
	case errors.Is(err, remote.ErrUnavailable):
		log.Printf("%s: remote unavailable: %v", prefix, err)
	default:
		log.Printf("%s: %v", prefix, err)
	}
}
