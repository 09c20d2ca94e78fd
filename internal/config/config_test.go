package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE_ENGINE", "")
	t.Setenv("PORT", "")
	t.Setenv("REMOTE_PROFILE_PATH", "")
	t.Setenv("REMOTE_TIMEOUT", "")

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.StoreEngine != "sql" {
		t.Errorf("StoreEngine = %q, want sql", cfg.StoreEngine)
	}
	if cfg.RemoteProfilePath != "/api/users/me" {
		t.Errorf("RemoteProfilePath = %q, want /api/users/me", cfg.RemoteProfilePath)
	}
	if cfg.RemoteTimeout != 30*time.Second {
		t.Errorf("RemoteTimeout = %v, want 30s", cfg.RemoteTimeout)
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companion.yaml")
	content := `
server:
  port: "9000"
store:
  engine: json
  file_path: /tmp/state.json
remote:
  base_url: https://api.example.com
  timeout_seconds: 5
kafka:
  brokers: [" broker-1:9092 ", ""]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("REMOTE_TIMEOUT", "12")
	t.Setenv("STORE_ENGINE", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("STORE_FILE", "")
	t.Setenv("REMOTE_BASE_URL", "")

	cfg := Load()

	if cfg.ServerPort != "9100" {
		t.Errorf("env PORT should win over file, got %q", cfg.ServerPort)
	}
	if cfg.StoreEngine != "json" {
		t.Errorf("StoreEngine = %q, want json", cfg.StoreEngine)
	}
	if cfg.StoreFilePath != "/tmp/state.json" {
		t.Errorf("StoreFilePath = %q", cfg.StoreFilePath)
	}
	if cfg.RemoteBaseURL != "https://api.example.com" {
		t.Errorf("RemoteBaseURL = %q", cfg.RemoteBaseURL)
	}
	if cfg.RemoteTimeout != 12*time.Second {
		t.Errorf("RemoteTimeout = %v, want 12s", cfg.RemoteTimeout)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "broker-1:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "1m30s", want: 90 * time.Second},
		{name: "plain seconds", value: "7", want: 7 * time.Second},
		{name: "invalid falls back", value: "soon", want: time.Second},
		{name: "empty falls back", value: "", want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getEnvDuration("TEST_DURATION", time.Second); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
