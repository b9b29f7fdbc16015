// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Indexer, Search, Schema, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Schema   SchemaConfig   `yaml:"schema"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// RateLimit is the per-client request rate in requests per second.
	// Zero disables limiting.
	RateLimit   float64  `yaml:"rateLimit"`
	RateBurst   int      `yaml:"rateBurst"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters. Postgres is
// optional; an empty Host disables document status tracking.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest string `yaml:"documentIngest"`
	IndexComplete  string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig controls where segments live and when the in-memory segment
// builder is flushed to disk.
type IndexerConfig struct {
	DataDir        string        `yaml:"dataDir"`
	SegmentMaxDocs int           `yaml:"segmentMaxDocs"`
	FlushInterval  time.Duration `yaml:"flushInterval"`
}

// SearchConfig controls result limits and the per-query segment fan-out.
type SearchConfig struct {
	DefaultLimit       int           `yaml:"defaultLimit"`
	MaxResults         int           `yaml:"maxResults"`
	SegmentConcurrency int           `yaml:"segmentConcurrency"`
	Timeout            time.Duration `yaml:"timeout"`
}

// SchemaConfig declares the document fields of the index.
type SchemaConfig struct {
	Fields []FieldConfig `yaml:"fields"`
}

// FieldConfig declares one field. Type is one of text, u64, i64, f64.
// Options is any combination of indexed, stored and fast.
type FieldConfig struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Options []string `yaml:"options"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values, or an error if the result fails validation.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints that defaults cannot enforce.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit < 1 {
		return fmt.Errorf("search.defaultLimit must be at least 1, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.maxResults (%d) must not be below search.defaultLimit (%d)",
			c.Search.MaxResults, c.Search.DefaultLimit)
	}
	if c.Search.SegmentConcurrency < 1 {
		return fmt.Errorf("search.segmentConcurrency must be at least 1, got %d", c.Search.SegmentConcurrency)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative, got %g", c.Server.RateLimit)
	}
	if c.Indexer.SegmentMaxDocs < 1 {
		return fmt.Errorf("indexer.segmentMaxDocs must be at least 1, got %d", c.Indexer.SegmentMaxDocs)
	}
	if len(c.Schema.Fields) == 0 {
		return fmt.Errorf("schema must declare at least one field")
	}
	seen := make(map[string]struct{}, len(c.Schema.Fields))
	for _, f := range c.Schema.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema field without a name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema field %q declared twice", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateBurst:       20,
		},
		Postgres: PostgresConfig{
			Port:            5432,
			Database:        "topdocs",
			User:            "topdocs",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "topdocs-indexer",
			Topics: KafkaTopics{
				DocumentIngest: "document-ingest",
				IndexComplete:  "index.complete",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexer: IndexerConfig{
			DataDir:        "data/index",
			SegmentMaxDocs: 10000,
			FlushInterval:  30 * time.Second,
		},
		Search: SearchConfig{
			DefaultLimit:       10,
			MaxResults:         100,
			SegmentConcurrency: 8,
			Timeout:            5 * time.Second,
		},
		Schema: SchemaConfig{
			Fields: []FieldConfig{
				{Name: "id", Type: "text", Options: []string{"stored"}},
				{Name: "title", Type: "text", Options: []string{"indexed", "stored"}},
				{Name: "body", Type: "text", Options: []string{"indexed"}},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TD_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("TD_SERVER_PORT", &cfg.Server.Port)
	if v := os.Getenv("TD_SERVER_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}
	if v := os.Getenv("TD_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	setString("TD_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("TD_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("TD_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("TD_POSTGRES_USER", &cfg.Postgres.User)
	setString("TD_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("TD_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	if v := os.Getenv("TD_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("TD_REDIS_ADDR", &cfg.Redis.Addr)
	setString("TD_REDIS_PASSWORD", &cfg.Redis.Password)
	setString("TD_INDEXER_DATA_DIR", &cfg.Indexer.DataDir)
	setInt("TD_SEARCH_DEFAULT_LIMIT", &cfg.Search.DefaultLimit)
	setInt("TD_SEARCH_MAX_RESULTS", &cfg.Search.MaxResults)
	setInt("TD_SEARCH_SEGMENT_CONCURRENCY", &cfg.Search.SegmentConcurrency)
	setString("TD_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("TD_LOGGING_FORMAT", &cfg.Logging.Format)
}
