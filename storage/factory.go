package storage

import (
	"fmt"
	"log/slog"

	"github.com/cyberpaste/cyberpaste/config"
)

// NewStore creates a storage backend based on the configuration. The
// lifecycle service never learns which backend it got; everything behind
// the PasteStore contract is interchangeable.
func NewStore(cfg *config.Config, logger *slog.Logger) (PasteStore, error) {
	switch cfg.Backend {
	case "memory":
		logger.Info("Using in-memory storage (pastes are lost on restart)")
		return NewMemoryStore(), nil

	case "mongodb":
		logger.Info("Using MongoDB storage",
			"uri", cfg.MongoURI,
			"database", cfg.MongoDB)
		return NewMongoStore(cfg.MongoURI, cfg.MongoDB)

	case "dynamodb":
		logger.Info("Using DynamoDB storage",
			"table", cfg.DynamoTable,
			"region", cfg.DynamoRegion)
		return NewDynamoStore(cfg.DynamoTable, cfg.DynamoRegion)

	case "sqlite":
		logger.Info("Using SQLite storage", "path", cfg.SQLitePath)
		return NewSQLiteStore(cfg.SQLitePath)

	case "redis":
		logger.Info("Using Redis storage", "url", cfg.RedisURL)
		return NewRedisStore(cfg.RedisURL)

	case "bolt":
		logger.Info("Using BoltDB storage", "path", cfg.BoltPath)
		return NewBoltStore(cfg.BoltPath)

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (supported: memory, mongodb, dynamodb, sqlite, redis, bolt)", cfg.Backend)
	}
}
