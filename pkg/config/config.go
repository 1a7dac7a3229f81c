package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topics  struct {
			Emotions       string `yaml:"emotions"`
			Transactions   string `yaml:"transactions"`
			OffersAccepted string `yaml:"offers_accepted"`
			Notifications  string `yaml:"notifications"`
			OpsLogs        string `yaml:"ops_logs"`
		} `yaml:"topics"`
		RequiredAcks int    `yaml:"required_acks"`
		Compression  string `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			RetryDelay time.Duration `yaml:"retry_delay"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Postgres struct {
		DSN             string        `yaml:"dsn"`
		MaxConns        int           `yaml:"max_conns"`
		MinConns        int           `yaml:"min_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		QueryTimeout    time.Duration `yaml:"query_timeout"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Scoring struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
		Breaker struct {
			FailureThreshold int           `yaml:"failure_threshold"`
			Cooldown         time.Duration `yaml:"cooldown"`
		} `yaml:"breaker"`
	} `yaml:"scoring"`
	Analysis struct {
		DecisionTTL        time.Duration `yaml:"decision_ttl"`
		SignalWindowDays   int           `yaml:"signal_window_days"`
		TxWindowDays       int           `yaml:"tx_window_days"`
		OfferValidity      time.Duration `yaml:"offer_validity"`
		RequestsPerMinute  float64       `yaml:"requests_per_minute"`
	} `yaml:"analysis"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		URL            string        `yaml:"url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"stream"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("SCORING_URL"); v != "" {
		c.Scoring.URL = v
	}
	if v := os.Getenv("STREAM_API_KEY"); v != "" {
		c.Stream.APIKey = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Kafka.Topics.Emotions == "" {
		c.Kafka.Topics.Emotions = "user.emotions"
	}
	if c.Kafka.Topics.Transactions == "" {
		c.Kafka.Topics.Transactions = "user.transactions"
	}
	if c.Kafka.Topics.OffersAccepted == "" {
		c.Kafka.Topics.OffersAccepted = "credit.offers.accepted"
	}
	if c.Kafka.Topics.Notifications == "" {
		c.Kafka.Topics.Notifications = "user.notifications"
	}
	if c.Scoring.Breaker.FailureThreshold == 0 {
		c.Scoring.Breaker.FailureThreshold = 5
	}
	if c.Scoring.Breaker.Cooldown == 0 {
		c.Scoring.Breaker.Cooldown = 30 * time.Second
	}
	if c.Scoring.Timeout == 0 {
		c.Scoring.Timeout = 5 * time.Second
	}
	if c.Analysis.DecisionTTL == 0 {
		c.Analysis.DecisionTTL = 5 * time.Minute
	}
	if c.Analysis.SignalWindowDays == 0 {
		c.Analysis.SignalWindowDays = 7
	}
	if c.Analysis.TxWindowDays == 0 {
		c.Analysis.TxWindowDays = 30
	}
	if c.Analysis.OfferValidity == 0 {
		c.Analysis.OfferValidity = 7 * 24 * time.Hour
	}
	if c.Postgres.QueryTimeout == 0 {
		c.Postgres.QueryTimeout = 5 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.Scoring.URL == "" {
		return fmt.Errorf("scoring.url is required")
	}
	if c.Stream.Enabled && c.Stream.URL == "" {
		return fmt.Errorf("stream.url is required when stream is enabled")
	}
	return nil
}
