// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Indexer, Source, Publish, Search, Redis, Kafka, Postgres, etc.).
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
	Indexer  IndexerConfig  `yaml:"indexer"`
	Source   SourceConfig   `yaml:"source"`
	Publish  PublishConfig  `yaml:"publish"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the search service.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimit       float64       `yaml:"rateLimit"`
	RateBurst       int           `yaml:"rateBurst"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// IndexerConfig controls how sections are split and how their filters are
// sized and serialized.
type IndexerConfig struct {
	HeadingSplitLevel      int           `yaml:"headingSplitLevel"`
	FilterKind             string        `yaml:"filterKind"`
	CapacityFactor         int           `yaml:"capacityFactor"`
	BloomFalsePositiveRate float64       `yaml:"bloomFalsePositiveRate"`
	Compression            string        `yaml:"compression"`
	OutputName             string        `yaml:"outputName"`
	WatchDebounce          time.Duration `yaml:"watchDebounce"`
}

// SourceConfig selects where documents are read from.
type SourceConfig struct {
	Kind        string `yaml:"kind"`
	BookDir     string `yaml:"bookDir"`
	Summary     string `yaml:"summary"`
	ReadWorkers int    `yaml:"readWorkers"`
	Table       string `yaml:"table"`
}

// PublishConfig selects the artifact store the index is written to and
// loaded from.
type PublishConfig struct {
	Target      string        `yaml:"target"`
	Dir         string        `yaml:"dir"`
	Bucket      string        `yaml:"bucket"`
	Prefix      string        `yaml:"prefix"`
	Region      string        `yaml:"region"`
	Endpoint    string        `yaml:"endpoint"`
	AccessKey   string        `yaml:"accessKey"`
	SecretKey   string        `yaml:"secretKey"`
	UseSSL      bool          `yaml:"useSSL"`
	MaxAttempts int           `yaml:"maxAttempts"`
	RetryDelay  time.Duration `yaml:"retryDelay"`
}

// SearchConfig controls query limits for the search service.
type SearchConfig struct {
	MaxResults     int `yaml:"maxResults"`
	DefaultLimit   int `yaml:"defaultLimit"`
	LocalCacheSize int `yaml:"localCacheSize"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Database         string        `yaml:"database"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	SSLMode          string        `yaml:"sslMode"`
	MaxOpenConns     int           `yaml:"maxOpenConns"`
	MaxIdleConns     int           `yaml:"maxIdleConns"`
	ConnMaxLifetime  time.Duration `yaml:"connMaxLifetime"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
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
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete   string `yaml:"indexComplete"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server and, for one-shot
// builds, the Pushgateway the build metrics are pushed to.
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Port           int    `yaml:"port"`
	PushgatewayURL string `yaml:"pushgatewayUrl"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
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

// Validate checks the values that would otherwise only fail deep inside a
// build.
func (c *Config) Validate() error {
	if c.Indexer.HeadingSplitLevel < 1 || c.Indexer.HeadingSplitLevel > 6 {
		return fmt.Errorf("indexer.headingSplitLevel must be between 1 and 6, got %d", c.Indexer.HeadingSplitLevel)
	}
	switch c.Indexer.FilterKind {
	case "cuckoo", "bloom":
	default:
		return fmt.Errorf("indexer.filterKind %q is not one of cuckoo, bloom", c.Indexer.FilterKind)
	}
	if c.Indexer.CapacityFactor <= 0 {
		return fmt.Errorf("indexer.capacityFactor must be positive, got %d", c.Indexer.CapacityFactor)
	}
	if c.Indexer.BloomFalsePositiveRate <= 0 || c.Indexer.BloomFalsePositiveRate >= 1 {
		return fmt.Errorf("indexer.bloomFalsePositiveRate must be in (0, 1), got %g", c.Indexer.BloomFalsePositiveRate)
	}
	switch c.Indexer.Compression {
	case "none", "lz4", "zstd":
	default:
		return fmt.Errorf("indexer.compression %q is not one of none, lz4, zstd", c.Indexer.Compression)
	}
	switch c.Source.Kind {
	case "book", "postgres":
	default:
		return fmt.Errorf("source.kind %q is not one of book, postgres", c.Source.Kind)
	}
	switch c.Publish.Target {
	case "file", "s3", "minio":
	default:
		return fmt.Errorf("publish.target %q is not one of file, s3, minio", c.Publish.Target)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.defaultLimit must be positive and not exceed search.maxResults")
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       50,
			RateBurst:       100,
			CORSOrigins:     []string{"*"},
		},
		Indexer: IndexerConfig{
			HeadingSplitLevel:      3,
			FilterKind:             "cuckoo",
			CapacityFactor:         10,
			BloomFalsePositiveRate: 0.01,
			Compression:            "none",
			OutputName:             "searchindex.bin",
			WatchDebounce:          500 * time.Millisecond,
		},
		Source: SourceConfig{
			Kind:        "book",
			BookDir:     "src",
			Summary:     "SUMMARY.md",
			ReadWorkers: 8,
			Table:       "documents",
		},
		Publish: PublishConfig{
			Target:      "file",
			Dir:         "book/searcher",
			Region:      "us-east-1",
			MaxAttempts: 3,
			RetryDelay:  200 * time.Millisecond,
		},
		Search: SearchConfig{
			MaxResults:     100,
			DefaultLimit:   10,
			LocalCacheSize: 1024,
		},
		Postgres: PostgresConfig{
			Host:             "localhost",
			Port:             5432,
			Database:         "staticsearch",
			User:             "staticsearch",
			Password:         "localdev",
			SSLMode:          "disable",
			MaxOpenConns:     10,
			MaxIdleConns:     2,
			ConnMaxLifetime:  5 * time.Minute,
			SnapshotInterval: time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "staticsearch-group",
			Topics: KafkaTopics{
				IndexComplete:   "index.complete",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
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

// applyEnvOverrides reads SS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SS_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SS_INDEXER_HEADING_SPLIT_LEVEL"); v != "" {
		if level, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.HeadingSplitLevel = level
		}
	}
	if v := os.Getenv("SS_INDEXER_FILTER_KIND"); v != "" {
		cfg.Indexer.FilterKind = v
	}
	if v := os.Getenv("SS_INDEXER_COMPRESSION"); v != "" {
		cfg.Indexer.Compression = v
	}
	if v := os.Getenv("SS_SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("SS_SOURCE_BOOK_DIR"); v != "" {
		cfg.Source.BookDir = v
	}
	if v := os.Getenv("SS_PUBLISH_TARGET"); v != "" {
		cfg.Publish.Target = v
	}
	if v := os.Getenv("SS_PUBLISH_DIR"); v != "" {
		cfg.Publish.Dir = v
	}
	if v := os.Getenv("SS_PUBLISH_BUCKET"); v != "" {
		cfg.Publish.Bucket = v
	}
	if v := os.Getenv("SS_PUBLISH_ENDPOINT"); v != "" {
		cfg.Publish.Endpoint = v
	}
	if v := os.Getenv("SS_PUBLISH_ACCESS_KEY"); v != "" {
		cfg.Publish.AccessKey = v
	}
	if v := os.Getenv("SS_PUBLISH_SECRET_KEY"); v != "" {
		cfg.Publish.SecretKey = v
	}
	if v := os.Getenv("SS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SS_METRICS_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
}
