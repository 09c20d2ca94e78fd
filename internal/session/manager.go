package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"parentcompanion/internal/models"
	"parentcompanion/internal/security"
	"parentcompanion/internal/store"
)

var (
	ErrInvalidToken = errors.New("session token is invalid")
	ErrTokenExpired = errors.New("session token has expired")
	ErrClosed       = errors.New("session manager is closed")
)

// Observer is notified after every persisted auth state change
type Observer interface {
	AuthStateChanged(change models.AuthChange)
}

// ObserverFunc adapts a plain function to Observer
type ObserverFunc func(change models.AuthChange)

func (f ObserverFunc) AuthStateChanged(change models.AuthChange) {
	f(change)
}

type subscription struct {
	id       uint64
	observer Observer
}

// Manager owns the process-wide session: auth state, the session token and
// the cached profile behind them. There is one per process, created at
// startup and closed at shutdown.
type Manager struct {
	store *store.ProfileStore
	now   func() time.Time

	mu          sync.Mutex
	subscribers []subscription
	nextID      uint64
	generation  uint64
	closed      bool
}

// NewManager creates a session manager over the local profile store
func NewManager(ps *store.ProfileStore) *Manager {
	return &Manager{store: ps, now: time.Now}
}

// Store returns the profile store backing this session
func (m *Manager) Store() *store.ProfileStore {
	return m.store
}

// State returns the persisted auth state
func (m *Manager) State(ctx context.Context) models.AuthState {
	return m.store.AuthState(ctx)
}

// Credentials returns the auth state together with the session token, if any
func (m *Manager) Credentials(ctx context.Context) models.Credentials {
	creds := models.Credentials{State: m.store.AuthState(ctx)}
	if creds.State == models.AuthLoggedIn {
		creds.Token, _ = m.store.SessionToken(ctx)
	}
	return creds
}

// LogIn stores a backend-issued session token and moves to logged_in
func (m *Manager) LogIn(ctx context.Context, token string) error {
	info, err := security.InspectToken(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if info.Expired(m.now()) {
		return ErrTokenExpired
	}
	return m.transition(ctx, models.AuthLoggedIn, func() error {
		return m.store.SetSessionToken(ctx, token)
	}, nil)
}

// ContinueAsGuest moves to guest mode; any session token is dropped
func (m *Manager) ContinueAsGuest(ctx context.Context) error {
	return m.transition(ctx, models.AuthGuest, nil, func() error {
		return m.store.ClearSessionToken(ctx)
	})
}

// LogOut drops the session token and the cached profile
func (m *Manager) LogOut(ctx context.Context) error {
	return m.transition(ctx, models.AuthLoggedOut, nil, func() error {
		return m.store.Clear(ctx)
	})
}

// Subscribe registers an observer and returns a function that removes it
func (m *Manager) Subscribe(observer Observer) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.subscribers = append(m.subscribers, subscription{id: id, observer: observer})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, sub := range m.subscribers {
				if sub.id == id {
					m.subscribers = append(m.subscribers[:i:i], m.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Close detaches all observers. Further transitions fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subscribers = nil
	return nil
}

// transition persists a new auth state, bumps the session generation and
// notifies observers in subscription order once the write has landed.
// prepare runs before the state write and must leave the old state usable;
// cleanup is destructive and only runs once the new state is stored.
func (m *Manager) transition(ctx context.Context, to models.AuthState, prepare, cleanup func() error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	from := m.store.AuthState(ctx)
	if prepare != nil {
		if err := prepare(); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	if err := m.store.SetAuthState(ctx, to); err != nil {
		m.mu.Unlock()
		return err
	}
	var cleanupErr error
	if cleanup != nil {
		cleanupErr = cleanup()
	}
	m.generation++
	subscribers := append([]subscription(nil), m.subscribers...)
	m.mu.Unlock()

	if from != to {
		change := models.AuthChange{From: from, To: to, At: m.now()}
		log.Printf("Auth state changed: %s -> %s", from, to)
		for _, sub := range subscribers {
			sub.observer.AuthStateChanged(change)
		}
	}
	if cleanupErr != nil {
		return fmt.Errorf("auth state is %s but cleanup failed: %w", to, cleanupErr)
	}
	return nil
}

// currentGeneration identifies the session; it changes on every transition
func (m *Manager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// putIfCurrent stores a fetched profile unless the session changed since
// generation was read. It reports whether the profile was written.
func (m *Manager) putIfCurrent(ctx context.Context, generation uint64, profile *models.UserProfile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != generation {
		return false, nil
	}
	if err := m.store.Put(ctx, profile); err != nil {
		return false, err
	}
	return true, nil
}
