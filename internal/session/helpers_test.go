package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"parentcompanion/internal/models"
	"parentcompanion/internal/store"
)

// fakeSource returns a canned result. When gate is set, each call blocks
// until the gate is closed or the context ends.
type fakeSource struct {
	mu      sync.Mutex
	profile *models.UserProfile
	err     error
	gate    chan struct{}
	calls   atomic.Int32
	seen    []models.Credentials
}

func (f *fakeSource) FetchCurrentUser(ctx context.Context, creds models.Credentials) (*models.UserProfile, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, creds)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.profile.Clone(), nil
}

// countingKV records writes so tests can assert the write budget of a launch.
// Writes to failKey fail with errDiskFull.
type countingKV struct {
	store.KeyValue
	sets    atomic.Int32
	failKey string
}

var errDiskFull = errors.New("disk full")

func (c *countingKV) Set(ctx context.Context, key, value string) error {
	c.sets.Add(1)
	if c.failKey != "" && key == c.failKey {
		return errDiskFull
	}
	return c.KeyValue.Set(ctx, key, value)
}

func newTestManager(t *testing.T) (*Manager, *countingKV) {
	t.Helper()
	kv, err := store.NewJSONStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	counting := &countingKV{KeyValue: kv}
	m := NewManager(store.NewProfileStore(counting, nil))
	t.Cleanup(func() { _ = m.Close() })
	return m, counting
}

func testToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(expiresAt)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func strPtr(s string) *string { return &s }
