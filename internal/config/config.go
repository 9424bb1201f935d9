package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/azubrytski-dev/challange-bot/internal/model"
)

// Default values for configuration fields.
const (
	DefaultDatabaseURL       = "sqlite://data/bot.db"
	DefaultPointsPerCircle   = 1
	DefaultPointsPerReaction = 1
	DefaultRatingInterval    = 20 * time.Minute
	DefaultZeroPingLimit     = 10
	DefaultZeroCriteria      = model.ZeroCriteriaPoints
	DefaultTopLimit          = 10
	DefaultLanguage          = "en"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	BotToken          string
	DatabaseURL       string
	PointsPerCircle   int
	PointsPerReaction int
	RatingInterval    time.Duration
	ZeroPingLimit     int
	ZeroCriteria      string
	TopLimit          int
	AdminChatID       int64
	Language          string
	LogLevel          string
	LogFormat         string
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	BotToken          string `yaml:"bot_token"`
	DatabaseURL       string `yaml:"database_url"`
	PointsPerCircle   int    `yaml:"points_per_circle"`
	PointsPerReaction int    `yaml:"points_per_reaction"`
	RatingInterval    string `yaml:"rating_interval"`
	ZeroPingLimit     int    `yaml:"zero_ping_limit"`
	ZeroCriteria      string `yaml:"zero_criteria"`
	TopLimit          int    `yaml:"top_limit"`
	AdminChatID       int64  `yaml:"admin_chat_id"`
	Language          string `yaml:"language"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		DatabaseURL:       DefaultDatabaseURL,
		PointsPerCircle:   DefaultPointsPerCircle,
		PointsPerReaction: DefaultPointsPerReaction,
		RatingInterval:    DefaultRatingInterval,
		ZeroPingLimit:     DefaultZeroPingLimit,
		ZeroCriteria:      DefaultZeroCriteria,
		TopLimit:          DefaultTopLimit,
		Language:          DefaultLanguage,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	if raw.BotToken != "" {
		cfg.BotToken = raw.BotToken
	}

	if raw.DatabaseURL != "" {
		cfg.DatabaseURL = raw.DatabaseURL
	}

	if raw.PointsPerCircle != 0 {
		cfg.PointsPerCircle = raw.PointsPerCircle
	}

	if raw.PointsPerReaction != 0 {
		cfg.PointsPerReaction = raw.PointsPerReaction
	}

	if raw.RatingInterval != "" {
		d, err := time.ParseDuration(raw.RatingInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing rating_interval %q: %w", raw.RatingInterval, err)
		}

		cfg.RatingInterval = d
	}

	if raw.ZeroPingLimit != 0 {
		cfg.ZeroPingLimit = raw.ZeroPingLimit
	}

	if raw.ZeroCriteria != "" {
		cfg.ZeroCriteria = raw.ZeroCriteria
	}

	if raw.TopLimit != 0 {
		cfg.TopLimit = raw.TopLimit
	}

	if raw.AdminChatID != 0 {
		cfg.AdminChatID = raw.AdminChatID
	}

	if raw.Language != "" {
		cfg.Language = raw.Language
	}

	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}

	if raw.LogFormat != "" {
		cfg.LogFormat = raw.LogFormat
	}

	return cfg, nil
}

// Validate checks that the configuration is usable for serving.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("bot_token is required")
	}

	if c.ZeroCriteria != model.ZeroCriteriaPoints && c.ZeroCriteria != model.ZeroCriteriaCircles {
		return fmt.Errorf("zero_criteria must be %q or %q, got %q",
			model.ZeroCriteriaPoints, model.ZeroCriteriaCircles, c.ZeroCriteria)
	}

	if c.RatingInterval <= 0 {
		return fmt.Errorf("rating_interval must be positive")
	}

	return nil
}

// MergeEnv overrides config fields from the deployment's environment variables.
func MergeEnv(cfg *Config) {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}

	if v := os.Getenv("DB_URL"); v != "" {
		cfg.DatabaseURL = v
	}

	if v := os.Getenv("POINTS_PER_CIRCLE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PointsPerCircle = n
		}
	}

	if v := os.Getenv("POINTS_PER_REACTION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PointsPerReaction = n
		}
	}

	if v := os.Getenv("RATING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RatingInterval = d
		}
	}

	if v := os.Getenv("ZERO_PING_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ZeroPingLimit = n
		}
	}

	if v := os.Getenv("ZERO_CRITERIA"); v != "" {
		cfg.ZeroCriteria = v
	}

	if v := os.Getenv("TOP_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TopLimit = n
		}
	}

	if v := os.Getenv("ADMIN_CHAT_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.AdminChatID = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
