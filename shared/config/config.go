package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware"
	"github.com/tp-distribuidos-2c2025/measurements/writter"
)

const (
	// DefaultMaxLineBytes bounds the length of a single input line
	DefaultMaxLineBytes = 512 * 1024
	// MinMaxLineBytes is the smallest accepted line limit
	MinMaxLineBytes = 64
	// DefaultBatchSize is the number of lines handed to a worker at once
	DefaultBatchSize = 512

	DefaultFormat       = writter.FormatText
	DefaultResultsQueue = "measurement-results"
	DefaultMaxRetries   = 5
	DefaultRetryDelay   = 2 * time.Second
)

// RabbitMQConfig configures publishing of the final result table
type RabbitMQConfig struct {
	Enabled bool   `yaml:"enabled"`
	Queue   string `yaml:"queue"`
	// Connection attempts before publishing is given up
	MaxRetries    int                          `yaml:"max_retries"`
	RetryInterval time.Duration                `yaml:"retry_interval"`
	Connection    *middleware.ConnectionConfig `yaml:"connection"`
}

// Config holds every tunable of an aggregation run
type Config struct {
	// Number of parallel workers
	Workers int `yaml:"workers"`
	// Per-worker queue capacity; 0 selects an unbounded queue
	QueueDepth   int    `yaml:"queue_depth"`
	BatchSize    int    `yaml:"batch_size"`
	MaxLineBytes int    `yaml:"max_line_bytes"`
	LogLevel     string `yaml:"log_level"`
	Format       string `yaml:"format"`
	// Address of the /health and /metrics server; empty disables it
	MetricsAddr string `yaml:"metrics_addr"`

	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:      runtime.NumCPU(),
		QueueDepth:   0,
		BatchSize:    DefaultBatchSize,
		MaxLineBytes: DefaultMaxLineBytes,
		LogLevel:     "info",
		Format:       DefaultFormat,
		RabbitMQ: RabbitMQConfig{
			Queue:         DefaultResultsQueue,
			MaxRetries:    DefaultMaxRetries,
			RetryInterval: DefaultRetryDelay,
			Connection:    middleware.DefaultConnectionConfig(),
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the environment, in that order of precedence
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.fillDefaults()
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// fillDefaults restores defaults for fields the file left empty
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MaxLineBytes == 0 {
		c.MaxLineBytes = def.MaxLineBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Format == "" {
		c.Format = def.Format
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = def.RabbitMQ.Queue
	}
	if c.RabbitMQ.MaxRetries == 0 {
		c.RabbitMQ.MaxRetries = def.RabbitMQ.MaxRetries
	}
	if c.RabbitMQ.RetryInterval == 0 {
		c.RabbitMQ.RetryInterval = def.RabbitMQ.RetryInterval
	}
	if c.RabbitMQ.Connection == nil {
		c.RabbitMQ.Connection = def.RabbitMQ.Connection
		return
	}

	conn, defConn := c.RabbitMQ.Connection, def.RabbitMQ.Connection
	if conn.Host == "" {
		conn.Host = defConn.Host
	}
	if conn.Port == 0 {
		conn.Port = defConn.Port
	}
	if conn.Username == "" {
		conn.Username = defConn.Username
		conn.Password = defConn.Password
	}
	if conn.VHost == "" {
		conn.VHost = defConn.VHost
	}
}

func (c *Config) applyEnv() error {
	var err error
	if c.Workers, err = getEnvInt("AGGREGATOR_WORKERS", c.Workers); err != nil {
		return err
	}
	if c.QueueDepth, err = getEnvInt("AGGREGATOR_QUEUE_DEPTH", c.QueueDepth); err != nil {
		return err
	}
	if c.BatchSize, err = getEnvInt("AGGREGATOR_BATCH_SIZE", c.BatchSize); err != nil {
		return err
	}
	if c.MaxLineBytes, err = getEnvInt("AGGREGATOR_MAX_LINE", c.MaxLineBytes); err != nil {
		return err
	}
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Format = getEnv("AGGREGATOR_FORMAT", c.Format)
	c.MetricsAddr = getEnv("AGGREGATOR_METRICS_ADDR", c.MetricsAddr)

	conn := c.RabbitMQ.Connection
	conn.Host = getEnv("RABBITMQ_HOST", conn.Host)
	if conn.Port, err = getEnvInt("RABBITMQ_PORT", conn.Port); err != nil {
		return err
	}
	conn.Username = getEnv("RABBITMQ_USER", conn.Username)
	conn.Password = getEnv("RABBITMQ_PASS", conn.Password)
	c.RabbitMQ.Queue = getEnv("RESULTS_QUEUE", c.RabbitMQ.Queue)
	if c.RabbitMQ.MaxRetries, err = getEnvInt("RABBITMQ_MAX_RETRIES", c.RabbitMQ.MaxRetries); err != nil {
		return err
	}
	if c.RabbitMQ.RetryInterval, err = getEnvDuration("RABBITMQ_RETRY_INTERVAL", c.RabbitMQ.RetryInterval); err != nil {
		return err
	}
	return nil
}

// Validate checks that every field holds a usable value
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1 (got %d)", c.Workers))
	}
	if c.QueueDepth < 0 {
		errs = append(errs, fmt.Errorf("queue_depth must not be negative (got %d)", c.QueueDepth))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be at least 1 (got %d)", c.BatchSize))
	}
	if c.MaxLineBytes < MinMaxLineBytes {
		errs = append(errs, fmt.Errorf("max_line_bytes must be at least %d (got %d)", MinMaxLineBytes, c.MaxLineBytes))
	}
	if _, err := middleware.ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(writter.Formats, c.Format) {
		errs = append(errs, fmt.Errorf("unknown format %q, want one of %v", c.Format, writter.Formats))
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.Queue == "" {
		errs = append(errs, errors.New("rabbitmq.queue is required when publishing is enabled"))
	}
	if c.RabbitMQ.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("rabbitmq.max_retries must be at least 1 (got %d)", c.RabbitMQ.MaxRetries))
	}
	if c.RabbitMQ.RetryInterval < 0 {
		errs = append(errs, fmt.Errorf("rabbitmq.retry_interval must not be negative (got %v)", c.RabbitMQ.RetryInterval))
	}
	return errors.Join(errs...)
}

// getEnv returns the environment variable or defaultValue when unset
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
