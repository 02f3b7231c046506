// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Content, Postgres, Kafka, Redis, Translate, Search, etc.).
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
	Content   ContentConfig   `yaml:"content"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Translate TranslateConfig `yaml:"translate"`
	Search    SearchConfig    `yaml:"search"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
	// ClientRatePerMinute bounds translate/live requests per client address.
	ClientRatePerMinute int `yaml:"clientRatePerMinute"`
}

// ContentConfig selects the post store backend and its cache policy.
type ContentConfig struct {
	Backend      string        `yaml:"backend"`
	Dir          string        `yaml:"dir"`
	FeaturedFile string        `yaml:"featuredFile"`
	CacheTTL     time.Duration `yaml:"cacheTTL"`
	Watch        bool          `yaml:"watch"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents   string `yaml:"searchEvents"`
	ContentChanged string `yaml:"contentChanged"`
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

// TranslateConfig controls the remote English→Hindi translation call.
type TranslateConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Endpoint         string        `yaml:"endpoint"`
	SourceLang       string        `yaml:"sourceLang"`
	TargetLang       string        `yaml:"targetLang"`
	Timeout          time.Duration `yaml:"timeout"`
	Debounce         time.Duration `yaml:"debounce"`
	RatePerSecond    float64       `yaml:"ratePerSecond"`
	Burst            int           `yaml:"burst"`
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// SearchConfig controls pagination and live session limits.
type SearchConfig struct {
	PageSize           int           `yaml:"pageSize"`
	MaxPageSize        int           `yaml:"maxPageSize"`
	MaxResults         int           `yaml:"maxResults"`
	SessionIdleTimeout time.Duration `yaml:"sessionIdleTimeout"`
}

// AnalyticsConfig controls event batching and snapshot persistence.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging for search requests.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
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

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// Validate rejects configurations that cannot be served.
func (c *Config) Validate() error {
	switch c.Content.Backend {
	case "fs", "postgres":
	default:
		return fmt.Errorf("content.backend must be fs or postgres, got %q", c.Content.Backend)
	}
	if c.Content.Backend == "fs" && c.Content.Dir == "" {
		return fmt.Errorf("content.dir is required for the fs backend")
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("search.pageSize must be positive, got %d", c.Search.PageSize)
	}
	if c.Translate.Timeout <= 0 {
		return fmt.Errorf("translate.timeout must be positive")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                8080,
			ReadTimeout:         15 * time.Second,
			WriteTimeout:        15 * time.Second,
			ShutdownTimeout:     10 * time.Second,
			AllowOrigins:        []string{"*"},
			ClientRatePerMinute: 120,
		},
		Content: ContentConfig{
			Backend:      "fs",
			Dir:          "content/blogs",
			FeaturedFile: "content/featured.json",
			CacheTTL:     5 * time.Minute,
			Watch:        true,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "blog",
			User:            "blog",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "blog",
			Topics: KafkaTopics{
				SearchEvents:   "search-events",
				ContentChanged: "content-changed",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
		},
		Translate: TranslateConfig{
			Enabled:          true,
			Endpoint:         "https://translate.googleapis.com/translate_a/single",
			SourceLang:       "en",
			TargetLang:       "hi",
			Timeout:          3 * time.Second,
			Debounce:         300 * time.Millisecond,
			RatePerSecond:    5,
			Burst:            10,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Search: SearchConfig{
			PageSize:           6,
			MaxPageSize:        50,
			MaxResults:         500,
			SessionIdleTimeout: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: time.Minute,
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

// applyEnvOverrides reads BB_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BB_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BB_CONTENT_BACKEND"); v != "" {
		cfg.Content.Backend = v
	}
	if v := os.Getenv("BB_CONTENT_DIR"); v != "" {
		cfg.Content.Dir = v
	}
	if v := os.Getenv("BB_CONTENT_FEATURED_FILE"); v != "" {
		cfg.Content.FeaturedFile = v
	}
	if v := os.Getenv("BB_CONTENT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Content.CacheTTL = d
		}
	}
	if v := os.Getenv("BB_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("BB_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("BB_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("BB_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("BB_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("BB_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("BB_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = parseBool(v, cfg.Kafka.Enabled)
	}
	if v := os.Getenv("BB_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("BB_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v, cfg.Redis.Enabled)
	}
	if v := os.Getenv("BB_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BB_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BB_TRANSLATE_ENABLED"); v != "" {
		cfg.Translate.Enabled = parseBool(v, cfg.Translate.Enabled)
	}
	if v := os.Getenv("BB_TRANSLATE_ENDPOINT"); v != "" {
		cfg.Translate.Endpoint = v
	}
	if v := os.Getenv("BB_TRANSLATE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Translate.Timeout = d
		}
	}
	if v := os.Getenv("BB_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BB_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
