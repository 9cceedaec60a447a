// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Source, Kafka, Redis, Postgres, Indexer, Search, etc.).
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
	Server    ServerConfig    `yaml:"server"`
	RPC       RPCConfig       `yaml:"rpc"`
	Source    SourceConfig    `yaml:"source"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"corsOrigins"`
}

// RPCConfig holds the JSON-over-TCP RPC listener used by the CRUD layer.
type RPCConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	CallTimeout time.Duration `yaml:"callTimeout"`
}

// SourceConfig selects and tunes the catalog object store.
type SourceConfig struct {
	Driver          string        `yaml:"driver"` // s3, gcs, fs or memory
	Bucket          string        `yaml:"bucket"`
	Prefix          string        `yaml:"prefix"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	Dir             string        `yaml:"dir"`
	CredentialsFile string        `yaml:"credentialsFile"`
	FetchTimeout    time.Duration `yaml:"fetchTimeout"`
	RetryAttempts   int           `yaml:"retryAttempts"`
	RetryDelay      time.Duration `yaml:"retryDelay"`
	VisibilityWait  time.Duration `yaml:"visibilityWait"`
	VisibilityPoll  time.Duration `yaml:"visibilityPoll"`
	BreakerFailures int           `yaml:"breakerFailures"`
	BreakerReset    time.Duration `yaml:"breakerReset"`
}

// PostgresConfig holds PostgreSQL connection parameters for the job history.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
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
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CatalogChanges string `yaml:"catalogChanges"`
	IndexPublished string `yaml:"indexPublished"`
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

// IndexerConfig controls the reindex worker pools and verification.
type IndexerConfig struct {
	Workers         int                           `yaml:"workers"`
	BuildWorkers    int                           `yaml:"buildWorkers"`
	QueueSize       int                           `yaml:"queueSize"`
	ExtractTimeout  time.Duration                 `yaml:"extractTimeout"`
	VerifyOnPublish bool                          `yaml:"verifyOnPublish"`
	VerifyInterval  time.Duration                 `yaml:"verifyInterval"`
	JobHistory      int                           `yaml:"jobHistory"`
	WeightOverrides map[string]map[string]float64 `yaml:"weightOverrides"`
}

// TokenizerConfig controls term normalization.
type TokenizerConfig struct {
	MinLength int  `yaml:"minLength"`
	Stem      bool `yaml:"stem"`
	StopWords bool `yaml:"stopWords"`
}

// SearchConfig controls query limits and the admin reindex throttle.
type SearchConfig struct {
	DefaultLimit        int     `yaml:"defaultLimit"`
	MaxLimit            int     `yaml:"maxLimit"`
	SuggestDefaultLimit int     `yaml:"suggestDefaultLimit"`
	SuggestMaxLimit     int     `yaml:"suggestMaxLimit"`
	ReindexPerMinute    float64 `yaml:"reindexPerMinute"`
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

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		RPC: RPCConfig{
			Enabled:     false,
			Addr:        ":9091",
			CallTimeout: 5 * time.Second,
		},
		Source: SourceConfig{
			Driver:          "fs",
			Dir:             "./data",
			FetchTimeout:    10 * time.Second,
			RetryAttempts:   3,
			RetryDelay:      200 * time.Millisecond,
			VisibilityWait:  2 * time.Second,
			VisibilityPoll:  250 * time.Millisecond,
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "catalogsearch",
			User:            "catalogsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "catalog-search",
			Topics: KafkaTopics{
				CatalogChanges: "catalog.changes",
				IndexPublished: "catalog.index.published",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexer: IndexerConfig{
			Workers:         4,
			BuildWorkers:    2,
			QueueSize:       256,
			ExtractTimeout:  2 * time.Second,
			VerifyOnPublish: false,
			VerifyInterval:  10 * time.Minute,
			JobHistory:      200,
		},
		Tokenizer: TokenizerConfig{
			MinLength: 2,
		},
		Search: SearchConfig{
			DefaultLimit:        10,
			MaxLimit:            100,
			SuggestDefaultLimit: 10,
			SuggestMaxLimit:     50,
			ReindexPerMinute:    6,
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

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Source.Driver {
	case "s3", "gcs":
		if c.Source.Bucket == "" {
			return fmt.Errorf("source.bucket is required for driver %q", c.Source.Driver)
		}
	case "fs":
		if c.Source.Dir == "" {
			return fmt.Errorf("source.dir is required for driver fs")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown source driver %q", c.Source.Driver)
	}
	if c.Indexer.Workers < 1 || c.Indexer.BuildWorkers < 1 {
		return fmt.Errorf("indexer workers must be positive")
	}
	if c.Tokenizer.MinLength < 1 {
		return fmt.Errorf("tokenizer.minLength must be at least 1")
	}
	if c.Search.MaxLimit < 1 || c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search limits invalid: default %d, max %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.SuggestMaxLimit < 1 || c.Search.SuggestDefaultLimit < 1 {
		return fmt.Errorf("suggest limits must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// applyEnvOverrides reads CS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("CS_SERVER_PORT", &cfg.Server.Port)
	if v := os.Getenv("CS_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	setBool("CS_RPC_ENABLED", &cfg.RPC.Enabled)
	setString("CS_RPC_ADDR", &cfg.RPC.Addr)

	setString("CS_SOURCE_DRIVER", &cfg.Source.Driver)
	setString("CS_SOURCE_BUCKET", &cfg.Source.Bucket)
	setString("CS_SOURCE_PREFIX", &cfg.Source.Prefix)
	setString("CS_SOURCE_REGION", &cfg.Source.Region)
	setString("CS_SOURCE_ENDPOINT", &cfg.Source.Endpoint)
	setString("CS_SOURCE_DIR", &cfg.Source.Dir)
	setString("CS_SOURCE_CREDENTIALS_FILE", &cfg.Source.CredentialsFile)

	setBool("CS_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	setString("CS_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("CS_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("CS_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("CS_POSTGRES_USER", &cfg.Postgres.User)
	setString("CS_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("CS_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)

	setBool("CS_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("CS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}

	setBool("CS_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("CS_REDIS_ADDR", &cfg.Redis.Addr)
	setString("CS_REDIS_PASSWORD", &cfg.Redis.Password)

	setInt("CS_INDEXER_WORKERS", &cfg.Indexer.Workers)
	setBool("CS_INDEXER_VERIFY_ON_PUBLISH", &cfg.Indexer.VerifyOnPublish)
	setInt("CS_TOKENIZER_MIN_LENGTH", &cfg.Tokenizer.MinLength)
	setInt("CS_SEARCH_MAX_LIMIT", &cfg.Search.MaxLimit)

	setString("CS_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("CS_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("CS_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("CS_METRICS_PORT", &cfg.Metrics.Port)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
