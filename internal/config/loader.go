package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "arbiter.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ARBITER_PORT")
	setString(&cfg.Server.CORSOrigin, "ARBITER_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ARBITER_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ARBITER_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ARBITER_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ARBITER_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ARBITER_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "ARBITER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ARBITER_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "ARBITER_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ARBITER_BREAKER_TIMEOUT")
	setFloat64(&cfg.Adjudication.ProceedBelow, "ARBITER_ADJ_PROCEED_BELOW")
	setFloat64(&cfg.Adjudication.RejectAt, "ARBITER_ADJ_REJECT_AT")
	setFloat64(&cfg.Adjudication.ConfidenceFloor, "ARBITER_ADJ_CONFIDENCE_FLOOR")
	setDuration(&cfg.Supervision.PeriodicCheck, "ARBITER_SUP_PERIODIC_CHECK")
	setUint(&cfg.Supervision.PersistMaxTries, "ARBITER_SUP_PERSIST_MAX_TRIES")
	setDuration(&cfg.Supervision.PersistBaseWait, "ARBITER_SUP_PERSIST_BASE_WAIT")
	setFloat64(&cfg.ScopeCreep.LocalDeltaMaxPct, "ARBITER_CREEP_LOCAL_DELTA_MAX_PCT")
	setFloat64(&cfg.ScopeCreep.DefaultTolerancePct, "ARBITER_CREEP_DEFAULT_TOLERANCE_PCT")
	setInt64(&cfg.Dedup.MaxSizeMB, "ARBITER_DEDUP_SIZE_MB")
	setDuration(&cfg.Dedup.TTL, "ARBITER_DEDUP_TTL")
	setBool(&cfg.Telemetry.Enabled, "ARBITER_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "ARBITER_OTEL_ENDPOINT")
	setString(&cfg.Notify.SlackWebhookURL, "ARBITER_SLACK_WEBHOOK_URL")
	setString(&cfg.Notify.DiscordWebhookURL, "ARBITER_DISCORD_WEBHOOK_URL")
	setStrings(&cfg.Notify.EnabledEvents, "ARBITER_NOTIFY_EVENTS")
}

// validate rejects configurations that cannot produce coherent decisions.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port must not be empty")
	}
	if cfg.Adjudication.ProceedBelow <= 0 || cfg.Adjudication.RejectAt <= cfg.Adjudication.ProceedBelow {
		return fmt.Errorf("adjudication thresholds must satisfy 0 < proceed_below < reject_at, got %v and %v",
			cfg.Adjudication.ProceedBelow, cfg.Adjudication.RejectAt)
	}
	if cfg.ScopeCreep.LocalDeltaMaxPct <= 0 {
		return errors.New("scope_creep.local_delta_max_pct must be positive")
	}
	if cfg.Supervision.PersistMaxTries == 0 {
		return errors.New("supervision.persist_max_tries must be at least 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*dst = parts
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint(dst *uint, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			*dst = uint(n)
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
