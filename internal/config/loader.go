package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "routerd.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
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
	setString(&cfg.Server.Port, "ROUTERD_PORT")
	setString(&cfg.Server.CORSOrigin, "ROUTERD_CORS_ORIGIN")
	setString(&cfg.Logging.Level, "ROUTERD_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ROUTERD_LOG_SERVICE")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ROUTERD_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ROUTERD_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ROUTERD_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ROUTERD_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ROUTERD_PG_HEALTH_CHECK")
	setFloat64(&cfg.Routing.ApprovalThreshold, "ROUTERD_APPROVAL_THRESHOLD")
	setBool(&cfg.Routing.GateRewrites, "ROUTERD_GATE_REWRITES")
	setFloat64(&cfg.Routing.DegradedPenalty, "ROUTERD_DEGRADED_PENALTY")
	setDuration(&cfg.Gate.TTL, "ROUTERD_VALIDATION_TTL")
	setDuration(&cfg.Gate.SweepInterval, "ROUTERD_SWEEP_INTERVAL")
	setDuration(&cfg.Gate.Retention, "ROUTERD_VALIDATION_RETENTION")
	setDuration(&cfg.Index.Timeout, "ROUTERD_INDEX_TIMEOUT")
	setFloat64(&cfg.Index.SimilarityThreshold, "ROUTERD_SIMILARITY_THRESHOLD")
	setDuration(&cfg.Index.CacheTTL, "ROUTERD_INDEX_CACHE_TTL")
	setInt(&cfg.Index.MaxLinkSuggestions, "ROUTERD_MAX_LINK_SUGGESTIONS")
	setInt(&cfg.Index.MaxSitemapURLs, "ROUTERD_MAX_SITEMAP_URLS")
	setInt(&cfg.Index.BreakerThreshold, "ROUTERD_INDEX_BREAKER_THRESHOLD")
	setDuration(&cfg.Index.BreakerCooldown, "ROUTERD_INDEX_BREAKER_COOLDOWN")
	setString(&cfg.Agents.CopywriterURL, "COPYWRITER_AGENT_URL")
	setString(&cfg.Agents.RewriterURL, "REWRITER_AGENT_URL")
	setDuration(&cfg.Agents.Timeout, "ROUTERD_AGENT_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "ROUTERD_CACHE_SIZE_MB")
	setFloat64(&cfg.Rate.RequestsPerSecond, "ROUTERD_RATE_RPS")
	setInt(&cfg.Rate.Burst, "ROUTERD_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "ROUTERD_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "ROUTERD_RATE_MAX_IDLE_TIME")
}

// validate checks that required fields are set and thresholds are sane.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Routing.ApprovalThreshold < 0 || cfg.Routing.ApprovalThreshold > 1 {
		return errors.New("routing.approval_threshold must be in [0,1]")
	}
	if cfg.Routing.DegradedPenalty <= 0 || cfg.Routing.DegradedPenalty > 1 {
		return errors.New("routing.degraded_penalty must be in (0,1]")
	}
	if cfg.Gate.TTL <= 0 {
		return errors.New("gate.ttl must be positive")
	}
	if cfg.Index.SimilarityThreshold < 0 || cfg.Index.SimilarityThreshold > 1 {
		return errors.New("index.similarity_threshold must be in [0,1]")
	}
	if cfg.Index.BreakerThreshold < 1 {
		return errors.New("index.breaker_threshold must be >= 1")
	}
	if cfg.Index.BreakerCooldown <= 0 {
		return errors.New("index.breaker_cooldown must be positive")
	}
	if len(cfg.Sites) == 0 {
		return errors.New("at least one site must be configured")
	}
	seen := make(map[int]bool, len(cfg.Sites))
	for _, s := range cfg.Sites {
		if s.SiteID <= 0 {
			return fmt.Errorf("site %q: site_id must be positive", s.Name)
		}
		if seen[s.SiteID] {
			return fmt.Errorf("duplicate site_id %d", s.SiteID)
		}
		seen[s.SiteID] = true
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
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
