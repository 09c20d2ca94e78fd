package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"parentcompanion/internal/models"
	"parentcompanion/internal/security"
)

const EventAuthStateChanged = "parent.auth_state_changed"

const publishTimeout = 5 * time.Second

// AuthStateEvent is the payload published for every auth state change
type AuthStateEvent struct {
	EventID        string           `json:"event_id"`
	EventType      string           `json:"event_type"`
	InstallationID string           `json:"installation_id"`
	From           models.AuthState `json:"from"`
	To             models.AuthState `json:"to"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// AuthStateForwarder observes session auth changes and publishes them from
// a background worker, so observers never wait on the broker.
type AuthStateForwarder struct {
	publisher      Publisher
	installationID string
	queue          chan models.AuthChange

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAuthStateForwarder(publisher Publisher, installationID string, buffer int) *AuthStateForwarder {
	if buffer <= 0 {
		buffer = 16
	}
	f := &AuthStateForwarder{
		publisher:      publisher,
		installationID: installationID,
		queue:          make(chan models.AuthChange, buffer),
		done:           make(chan struct{}),
	}
	go f.run()
	return f
}

// AuthStateChanged queues the change. When the queue is full the change is
// dropped and logged.
func (f *AuthStateForwarder) AuthStateChanged(change models.AuthChange) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	select {
	case f.queue <- change:
	default:
		log.Printf("Auth event queue full, dropping %s -> %s", change.From, change.To)
	}
}

// Close stops accepting changes and waits for queued ones to be published
func (f *AuthStateForwarder) Close(ctx context.Context) error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return errors.New("timed out flushing auth events")
	}
}

func (f *AuthStateForwarder) run() {
	defer close(f.done)
	for change := range f.queue {
		if err := f.publish(change); err != nil {
			log.Printf("Failed to publish auth event %s -> %s: %v", change.From, change.To, err)
		}
	}
}

func (f *AuthStateForwarder) publish(change models.AuthChange) error {
	payload, err := json.Marshal(AuthStateEvent{
		EventID:        security.GenerateID(),
		EventType:      EventAuthStateChanged,
		InstallationID: f.installationID,
		From:           change.From,
		To:             change.To,
		OccurredAt:     change.At.UTC(),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return f.publisher.Publish(ctx, EventAuthStateChanged, payload, f.installationID)
}
