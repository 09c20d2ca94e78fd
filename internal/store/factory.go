package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"

	"parentcompanion/internal/config"
	"parentcompanion/internal/database"
	"parentcompanion/internal/repository"
	"parentcompanion/internal/security"
)

const (
	EngineSQL   = "sql"
	EngineJSON  = "json"
	EngineRedis = "redis"

	redisKeyPrefix = "parentcompanion:"
)

// SQLStore is the database-backed engine. It owns the connection.
type SQLStore struct {
	*repository.StateRepository
	db *database.DB
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// NewByEngine opens the storage engine selected by cfg.StoreEngine.
// Callers should close the result when it implements io.Closer.
func NewByEngine(ctx context.Context, cfg *config.Config) (KeyValue, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreEngine)) {
	case "", EngineSQL:
		return openSQL(ctx, cfg)
	case EngineJSON:
		return NewJSONStore(cfg.StoreFilePath)
	case EngineRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("redis store engine requires REDIS_URL")
		}
		client, err := ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, redisKeyPrefix), nil
	default:
		return nil, errors.New("unsupported store engine: " + cfg.StoreEngine)
	}
}

func openSQL(ctx context.Context, cfg *config.Config) (*SQLStore, error) {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var migrations fs.FS = database.EmbeddedMigrations()
	if cfg.MigrationsPath != "" {
		migrations = os.DirFS(cfg.MigrationsPath)
	}
	if err := db.RunMigrations(ctx, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStore{StateRepository: repository.NewStateRepository(db), db: db}, nil
}

// Open builds the ProfileStore described by cfg. The returned func releases
// the underlying engine.
func Open(ctx context.Context, cfg *config.Config) (*ProfileStore, func() error, error) {
	var sealer security.Sealer
	if cfg.TokenSealingKey != "" {
		s, err := security.NewTokenSealer(cfg.TokenSealingKey)
		if err != nil {
			return nil, nil, err
		}
		sealer = s
	} else {
		log.Println("Warning: TOKEN_SEALING_KEY not set, session token will be stored unsealed")
	}

	kv, err := NewByEngine(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return nil }
	if c, ok := kv.(io.Closer); ok {
		closeFn = c.Close
	}
	return NewProfileStore(kv, sealer), closeFn, nil
}
