package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"parentcompanion/internal/config"
)

func TestJSONStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	s, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Fatal("Get() on a fresh store should report absent")
	}
	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, ok, _ := s.Get(ctx, "k"); !ok || got != "v2" {
		t.Fatalf("Get() = %q ok=%v, want v2", got, ok)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("state file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("state file mode = %o, want 600", perm)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file should be renamed away, stat err = %v", err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() of a missing key error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("Get() after Delete() should report absent")
	}
}

func TestJSONStoreRejectsCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewJSONStore(path); err == nil {
		t.Fatal("NewJSONStore() should fail on a corrupt file")
	}
}

func TestJSONStoreRollsBackOnPersistFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// A directory where the file should be makes every write fail.
	path := filepath.Join(dir, "state.json")
	if err := os.MkdirAll(path+".tmp", 0o755); err != nil {
		t.Fatal(err)
	}
	s, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	ctx := context.Background()
	if err := s.Set(ctx, "k", "v"); err == nil {
		t.Fatal("Set() should fail when the file cannot be written")
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("failed Set() must not leave the value in memory")
	}
}

func TestNewByEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := &config.Config{StoreEngine: "JSON", StoreFilePath: filepath.Join(t.TempDir(), "s.json")}
	kv, err := NewByEngine(ctx, cfg)
	if err != nil {
		t.Fatalf("NewByEngine(json) error = %v", err)
	}
	if _, ok := kv.(*JSONStore); !ok {
		t.Errorf("NewByEngine(json) = %T, want *JSONStore", kv)
	}

	if _, err := NewByEngine(ctx, &config.Config{StoreEngine: "redis"}); err == nil || !strings.Contains(err.Error(), "REDIS_URL") {
		t.Errorf("NewByEngine(redis) without url error = %v", err)
	}
	if _, err := NewByEngine(ctx, &config.Config{StoreEngine: "etcd"}); err == nil {
		t.Error("NewByEngine(etcd) should fail")
	}
}

func TestNewByEngineSQLite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	ctx := context.Background()
	cfg := &config.Config{
		StoreEngine:  EngineSQL,
		DatabaseType: "sqlite",
		DatabasePath: filepath.Join(t.TempDir(), "state.db"),
	}

	kv, err := NewByEngine(ctx, cfg)
	if err != nil {
		t.Fatalf("NewByEngine(sql) error = %v", err)
	}
	sqlStore, ok := kv.(*SQLStore)
	if !ok {
		t.Fatalf("NewByEngine(sql) = %T, want *SQLStore", kv)
	}
	defer sqlStore.Close()

	if err := kv.Set(ctx, KeyAuthState, "guest"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, ok, err := kv.Get(ctx, KeyAuthState); err != nil || !ok || got != "guest" {
		t.Errorf("Get() = %q ok=%v err=%v, want guest", got, ok, err)
	}
}
