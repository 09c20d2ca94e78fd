package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort string
	Debug      bool

	// Local state storage
	StoreEngine    string // sql, json or redis
	StoreFilePath  string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string
	RedisURL       string

	// Remote profile backend
	RemoteBaseURL     string
	RemoteProfilePath string
	RemoteTimeout     time.Duration

	// Hex-encoded 32 byte key used to seal the session token at rest
	TokenSealingKey string

	KafkaBrokers        []string
	KafkaTopicAuthState string

	// Limits on endpoints that call the remote backend (sync, login)
	RemoteRateLimit  int
	RemoteRateWindow time.Duration

	ShutdownTimeout time.Duration
}

type configFile struct {
	Server struct {
		Port  string `yaml:"port"`
		Debug bool   `yaml:"debug"`
	} `yaml:"server"`
	Store struct {
		Engine         string `yaml:"engine"`
		FilePath       string `yaml:"file_path"`
		DatabaseType   string `yaml:"database_type"`
		DatabasePath   string `yaml:"database_path"`
		DatabaseURL    string `yaml:"database_url"`
		MigrationsPath string `yaml:"migrations_path"`
		RedisURL       string `yaml:"redis_url"`
	} `yaml:"store"`
	Remote struct {
		BaseURL        string `yaml:"base_url"`
		ProfilePath    string `yaml:"profile_path"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"remote"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		TopicAuthState string   `yaml:"topic_auth_state"`
	} `yaml:"kafka"`
}

// Load reads configuration from .env, an optional YAML file named by
// CONFIG_FILE and environment variables, in increasing precedence
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	cfg.applyEnv()
	return cfg
}

func defaults() *Config {
	return &Config{
		ServerPort:          "8080",
		StoreEngine:         "sql",
		StoreFilePath:       "./data/companion.json",
		DatabaseType:        "sqlite",
		DatabasePath:        "./data/companion.db",
		RemoteBaseURL:       "http://localhost:3001",
		RemoteProfilePath:   "/api/users/me",
		RemoteTimeout:       30 * time.Second,
		KafkaTopicAuthState: "parent.auth_state_changed",
		RemoteRateLimit:     10,
		RemoteRateWindow:    time.Minute,
		ShutdownTimeout:     10 * time.Second,
	}
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setIfNotEmpty(&c.ServerPort, f.Server.Port)
	c.Debug = c.Debug || f.Server.Debug
	setIfNotEmpty(&c.StoreEngine, f.Store.Engine)
	setIfNotEmpty(&c.StoreFilePath, f.Store.FilePath)
	setIfNotEmpty(&c.DatabaseType, f.Store.DatabaseType)
	setIfNotEmpty(&c.DatabasePath, f.Store.DatabasePath)
	setIfNotEmpty(&c.DatabaseURL, f.Store.DatabaseURL)
	setIfNotEmpty(&c.MigrationsPath, f.Store.MigrationsPath)
	setIfNotEmpty(&c.RedisURL, f.Store.RedisURL)
	setIfNotEmpty(&c.RemoteBaseURL, f.Remote.BaseURL)
	setIfNotEmpty(&c.RemoteProfilePath, f.Remote.ProfilePath)
	if f.Remote.TimeoutSeconds > 0 {
		c.RemoteTimeout = time.Duration(f.Remote.TimeoutSeconds) * time.Second
	}
	if len(f.Kafka.Brokers) > 0 {
		c.KafkaBrokers = trimNonEmpty(f.Kafka.Brokers)
	}
	setIfNotEmpty(&c.KafkaTopicAuthState, f.Kafka.TopicAuthState)
	return nil
}

func (c *Config) applyEnv() {
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.StoreEngine = strings.ToLower(getEnv("STORE_ENGINE", c.StoreEngine))
	c.StoreFilePath = getEnv("STORE_FILE", c.StoreFilePath)
	c.DatabaseType = getEnv("DATABASE_TYPE", c.DatabaseType)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.MigrationsPath = getEnv("MIGRATIONS_PATH", c.MigrationsPath)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.RemoteBaseURL = getEnv("REMOTE_BASE_URL", c.RemoteBaseURL)
	c.RemoteProfilePath = getEnv("REMOTE_PROFILE_PATH", c.RemoteProfilePath)
	c.RemoteTimeout = getEnvDuration("REMOTE_TIMEOUT", c.RemoteTimeout)
	c.TokenSealingKey = getEnv("TOKEN_SEALING_KEY", c.TokenSealingKey)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.KafkaBrokers = trimNonEmpty(strings.Split(brokers, ","))
	}
	c.KafkaTopicAuthState = getEnv("KAFKA_TOPIC_AUTH_STATE", c.KafkaTopicAuthState)
	c.RemoteRateLimit = getEnvInt("REMOTE_RATE_LIMIT", c.RemoteRateLimit)
	c.RemoteRateWindow = getEnvDuration("REMOTE_RATE_WINDOW", c.RemoteRateWindow)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: ignoring invalid duration %s=%q", key, raw)
	return defaultValue
}

func setIfNotEmpty(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
