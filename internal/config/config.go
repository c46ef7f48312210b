// Package config provides hierarchical configuration loading for routerd.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"time"

	"github.com/contentpipe/routerd/internal/domain/site"
)

// Config holds all runtime configuration for the routerd service.
type Config struct {
	Server   Server         `yaml:"server"`
	Logging  Logging        `yaml:"logging"`
	NATS     NATS           `yaml:"nats"`
	Postgres Postgres       `yaml:"postgres"`
	Routing  Routing        `yaml:"routing"`
	Gate     Gate           `yaml:"gate"`
	Index    Index          `yaml:"index"`
	Agents   Agents         `yaml:"agents"`
	Cache    Cache          `yaml:"cache"`
	Rate     Rate           `yaml:"rate"`
	Sites    []site.Profile `yaml:"sites"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// NATS holds NATS JetStream configuration.
type NATS struct {
	URL string `yaml:"url"`
}

// Postgres holds the optional audit store connection configuration.
// An empty DSN disables audit persistence entirely.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// Routing holds the approval policy for routing decisions.
type Routing struct {
	ApprovalThreshold float64 `yaml:"approval_threshold"` // Decisions below this confidence always require approval
	GateRewrites      bool    `yaml:"gate_rewrites"`      // Rewriter decisions always require approval
	DegradedPenalty   float64 `yaml:"degraded_penalty"`   // Confidence multiplier when the duplication check degraded
}

// Gate holds validation gate lifecycle configuration.
type Gate struct {
	TTL           time.Duration `yaml:"ttl"`            // Max time a validation stays pending
	SweepInterval time.Duration `yaml:"sweep_interval"` // Background expiry sweep cadence
	Retention     time.Duration `yaml:"retention"`      // How long resolved/expired entries stay for duplicate detection
}

// Index holds content index (duplication check) configuration.
type Index struct {
	Timeout             time.Duration `yaml:"timeout"`              // Per-lookup deadline before degrading
	SimilarityThreshold float64       `yaml:"similarity_threshold"` // Minimum match similarity to declare a duplicate
	CacheTTL            time.Duration `yaml:"cache_ttl"`            // TTL for cached lookup results
	MaxLinkSuggestions  int           `yaml:"max_link_suggestions"` // Internal link suggestions per payload
	MaxSitemapURLs      int           `yaml:"max_sitemap_urls"`     // Cap on sitemap entries scanned per site
	BreakerThreshold    int           `yaml:"breaker_threshold"`    // Consecutive lookup failures before the circuit opens
	BreakerCooldown     time.Duration `yaml:"breaker_cooldown"`     // How long an open circuit rejects lookups
}

// Agents holds downstream agent endpoint configuration.
type Agents struct {
	CopywriterURL string        `yaml:"copywriter_url"`
	RewriterURL   string        `yaml:"rewriter_url"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Cache holds in-process cache configuration.
type Cache struct {
	MaxSizeMB int64 `yaml:"max_size_mb"`
}

// Rate holds rate limiter configuration for /route.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Defaults returns a Config with sensible default values for local development.
// The default site catalog mirrors the two production sites.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Logging: Logging{
			Level:   "info",
			Service: "routerd",
		},
		NATS: NATS{
			URL: "nats://localhost:4222",
		},
		Postgres: Postgres{
			DSN:             "",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Routing: Routing{
			ApprovalThreshold: 0.7,
			GateRewrites:      true,
			DegradedPenalty:   0.5,
		},
		Gate: Gate{
			TTL:           5 * time.Minute,
			SweepInterval: 30 * time.Second,
			Retention:     5 * time.Minute,
		},
		Index: Index{
			Timeout:             5 * time.Second,
			SimilarityThreshold: 0.4,
			CacheTTL:            10 * time.Minute,
			MaxLinkSuggestions:  5,
			MaxSitemapURLs:      200,
			BreakerThreshold:    5,
			BreakerCooldown:     30 * time.Second,
		},
		Agents: Agents{
			CopywriterURL: "http://localhost:8083",
			RewriterURL:   "http://localhost:8082",
			Timeout:       60 * time.Second,
		},
		Cache: Cache{
			MaxSizeMB: 64,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       15 * time.Minute,
		},
		Sites: []site.Profile{
			{
				SiteID:          1,
				Name:            "Stuffgaming",
				Domain:          "stuffgaming.fr",
				Niche:           "gaming",
				Theme:           "Gaming hardware, reviews, guides",
				Language:        "FR",
				SitemapURL:      "https://stuffgaming.fr/sitemap.xml",
				WordPressAPIURL: "https://stuffgaming.fr/wp-json/wp/v2/",
				NicheIndicators: []string{"gaming", "gamer", "jeu", "jeux", "console", "pc", "fps", "mmo", "esports", "hardware", "mouse", "souris", "clavier"},
			},
			{
				SiteID:          2,
				Name:            "Motivation Plus",
				Domain:          "motivationplus.fr",
				Niche:           "motivation",
				Theme:           "Personal development, productivity, mindset",
				Language:        "FR",
				SitemapURL:      "https://motivationplus.fr/sitemap.xml",
				WordPressAPIURL: "https://motivationplus.fr/wp-json/wp/v2/",
				NicheIndicators: []string{"motivation", "developpement", "productivite", "confiance", "objectifs", "mindset", "leadership", "habitudes"},
			},
		},
	}
}
