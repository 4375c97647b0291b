// Package config loads service configuration from an optional YAML file
// overlaid by environment variables. Environment always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime configuration of the booking service.
type Config struct {
	HTTPPort     int
	SQLiteDSN    string
	SessionTTL   time.Duration
	LogLevel     string
	OccupancyTTL time.Duration
	// RequireReviewForValidatorMove routes validator slot proposals
	// through the PENDING review loop instead of applying them as MOVED.
	RequireReviewForValidatorMove bool
	// AMQPURL enables the queue publisher when non-empty.
	AMQPURL   string
	AMQPQueue string
}

// fileConfig mirrors Config for the optional YAML file.
type fileConfig struct {
	HTTPPort                      int    `yaml:"http_port"`
	SQLiteDSN                     string `yaml:"sqlite_dsn"`
	SessionTTL                    string `yaml:"session_ttl"`
	LogLevel                      string `yaml:"log_level"`
	OccupancyTTL                  string `yaml:"occupancy_ttl"`
	RequireReviewForValidatorMove *bool  `yaml:"require_review_for_validator_move"`
	AMQPURL                       string `yaml:"amqp_url"`
	AMQPQueue                     string `yaml:"amqp_queue"`
}

// Load builds the configuration. When path is non-empty the YAML file is
// read first; LABBOOK_* environment variables then override field by
// field. Missing required values and unparsable ones are reported together.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		SQLiteDSN:    "file:labbooking.db",
		SessionTTL:   12 * time.Hour,
		LogLevel:     "info",
		OccupancyTTL: 30 * time.Second,
		AMQPQueue:    "booking.changed",
	}

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("LABBOOK_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "LABBOOK_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("LABBOOK_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("LABBOOK_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "LABBOOK_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if level := strings.TrimSpace(os.Getenv("LABBOOK_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if ttlValue := strings.TrimSpace(os.Getenv("LABBOOK_OCCUPANCY_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "LABBOOK_OCCUPANCY_TTL")
		} else {
			cfg.OccupancyTTL = ttl
		}
	}

	if reviewValue := strings.TrimSpace(os.Getenv("LABBOOK_REQUIRE_REVIEW_FOR_VALIDATOR_MOVE")); reviewValue != "" {
		review, err := strconv.ParseBool(reviewValue)
		if err != nil {
			invalid = append(invalid, "LABBOOK_REQUIRE_REVIEW_FOR_VALIDATOR_MOVE")
		} else {
			cfg.RequireReviewForValidatorMove = review
		}
	}

	if url := strings.TrimSpace(os.Getenv("LABBOOK_AMQP_URL")); url != "" {
		cfg.AMQPURL = url
	}
	if queue := strings.TrimSpace(os.Getenv("LABBOOK_AMQP_QUEUE")); queue != "" {
		cfg.AMQPQueue = queue
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}

	if file.HTTPPort > 0 {
		cfg.HTTPPort = file.HTTPPort
	}
	if file.SQLiteDSN != "" {
		cfg.SQLiteDSN = file.SQLiteDSN
	}
	if file.SessionTTL != "" {
		ttl, err := time.ParseDuration(file.SessionTTL)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("config file %q: invalid session_ttl %q", path, file.SessionTTL)
		}
		cfg.SessionTTL = ttl
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.OccupancyTTL != "" {
		ttl, err := time.ParseDuration(file.OccupancyTTL)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("config file %q: invalid occupancy_ttl %q", path, file.OccupancyTTL)
		}
		cfg.OccupancyTTL = ttl
	}
	if file.RequireReviewForValidatorMove != nil {
		cfg.RequireReviewForValidatorMove = *file.RequireReviewForValidatorMove
	}
	if file.AMQPURL != "" {
		cfg.AMQPURL = file.AMQPURL
	}
	if file.AMQPQueue != "" {
		cfg.AMQPQueue = file.AMQPQueue
	}
	return nil
}
