package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the cyberpaste service
type Config struct {
	Port          int           `json:"port"`
	URL           string        `json:"url"`
	Backend       string        `json:"backend"`
	MongoURI      string        `json:"mongo_uri"`
	MongoDB       string        `json:"mongo_db"`
	DynamoTable   string        `json:"dynamo_table"`
	DynamoRegion  string        `json:"dynamo_region"`
	SQLitePath    string        `json:"sqlite_path"`
	RedisURL      string        `json:"redis_url"`
	BoltPath      string        `json:"bolt_path"`
	IDLength      int           `json:"id_length"`
	SweepInterval time.Duration `json:"sweep_interval"`
	Version       string        `json:"version"`
	BuildTime     string        `json:"build_time"`
	CommitHash    string        `json:"commit_hash"`
}

// LoadConfig loads configuration from environment variables and CLI flags
func LoadConfig() *Config {
	config := &Config{
		Port:          8080,
		URL:           "",
		Backend:       "memory",
		MongoURI:      "mongodb://localhost:27017",
		MongoDB:       "cyberpaste",
		DynamoTable:   "cyberpaste",
		DynamoRegion:  "us-east-1",
		SQLitePath:    "cyberpaste.db",
		RedisURL:      "redis://localhost:6379/0",
		BoltPath:      "cyberpaste.bolt",
		IDLength:      10,
		SweepInterval: 10 * time.Minute,
	}

	// Parse CLI flags
	flag.IntVar(&config.Port, "port", config.Port, "Port to listen on")
	flag.StringVar(&config.URL, "url", config.URL, "Base URL for paste links")
	flag.StringVar(&config.Backend, "backend", config.Backend, "Storage backend: memory, mongodb, dynamodb, sqlite, redis, bolt")
	flag.StringVar(&config.MongoURI, "mongo-uri", config.MongoURI, "MongoDB connection URI")
	flag.StringVar(&config.MongoDB, "mongo-db", config.MongoDB, "MongoDB database name")
	flag.StringVar(&config.DynamoTable, "dynamo-table", config.DynamoTable, "DynamoDB table name")
	flag.StringVar(&config.DynamoRegion, "dynamo-region", config.DynamoRegion, "DynamoDB AWS region")
	flag.StringVar(&config.SQLitePath, "sqlite-path", config.SQLitePath, "SQLite database path")
	flag.StringVar(&config.RedisURL, "redis-url", config.RedisURL, "Redis connection URL")
	flag.StringVar(&config.BoltPath, "bolt-path", config.BoltPath, "BoltDB database path")
	flag.IntVar(&config.IDLength, "id-length", config.IDLength, "Length of generated paste ids")
	flag.DurationVar(&config.SweepInterval, "sweep-interval", config.SweepInterval, "Interval between expired-paste sweeps")
	flag.Parse()

	// Override with environment variables if present
	if val := os.Getenv("CYBERPASTE_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Port = port
		}
	}
	if val := os.Getenv("CYBERPASTE_URL"); val != "" {
		config.URL = val
	}
	if val := os.Getenv("CYBERPASTE_BACKEND"); val != "" {
		config.Backend = val
	}
	if val := os.Getenv("CYBERPASTE_MONGO_URI"); val != "" {
		config.MongoURI = val
	}
	if val := os.Getenv("CYBERPASTE_MONGO_DB"); val != "" {
		config.MongoDB = val
	}
	if val := os.Getenv("CYBERPASTE_DYNAMO_TABLE"); val != "" {
		config.DynamoTable = val
	}
	if val := os.Getenv("CYBERPASTE_DYNAMO_REGION"); val != "" {
		config.DynamoRegion = val
	}
	if val := os.Getenv("CYBERPASTE_SQLITE_PATH"); val != "" {
		config.SQLitePath = val
	}
	if val := os.Getenv("CYBERPASTE_REDIS_URL"); val != "" {
		config.RedisURL = val
	}
	if val := os.Getenv("CYBERPASTE_BOLT_PATH"); val != "" {
		config.BoltPath = val
	}
	if val := os.Getenv("CYBERPASTE_ID_LENGTH"); val != "" {
		if length, err := strconv.Atoi(val); err == nil {
			config.IDLength = length
		}
	}
	if val := os.Getenv("CYBERPASTE_SWEEP_INTERVAL"); val != "" {
		if interval, err := time.ParseDuration(val); err == nil {
			config.SweepInterval = interval
		}
	}

	return config
}
