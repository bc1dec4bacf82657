// Package config handles wikiladder configuration via YAML files and
// environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--query-limit, --domain, etc.)
//  2. Environment variables (WIKILADDER_*)
//  3. Config file (config.yaml)
//  4. Built-in defaults
//
// Example Usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
//	fmt.Printf("Searching %s with query limit %d\n",
//		cfg.Wiki.Domain, cfg.Search.QueryLimit)
//
// Environment Variables (all use WIKILADDER_ prefix):
//
// Search:
//   - WIKILADDER_QUERY_LIMIT=500
//   - WIKILADDER_ANCHOR_THRESHOLD=1000
//   - WIKILADDER_FETCH_LIMIT=2
//
// Wiki:
//   - WIKILADDER_DOMAIN="en.wikipedia.org"
//   - WIKILADDER_USER_AGENT="my-bot/1.0 (contact@example.com)"
//   - WIKILADDER_TIMEOUT=30s
//   - WIKILADDER_MAX_LAG=5
//   - WIKILADDER_MAX_RETRIES=2
//
// Cache:
//   - WIKILADDER_CACHE_ENABLED=true
//   - WIKILADDER_CACHE_DIR="./cache"
//
// Logging:
//   - WIKILADDER_LOG_LEVEL="info"
//   - WIKILADDER_LOG_FORMAT="text"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/wikiladder/pkg/graph"
	"github.com/orneryd/wikiladder/pkg/mediawiki"
	"github.com/orneryd/wikiladder/pkg/racer"
)

// Config holds all wikiladder configuration.
//
// Configuration is organized into logical sections:
//   - Search: query budgets and anchoring
//   - Wiki: the MediaWiki installation to search
//   - Cache: the persistent link cache
//   - Logging: logging configuration
//
// Use LoadFromFile() (or LoadDefaults() + applyEnvVars via LoadFromEnv) to
// build a Config, then always call Validate() before use.
type Config struct {
	// Search budgets and anchoring
	Search SearchConfig

	// Wiki endpoint settings
	Wiki WikiConfig

	// Persistent link cache
	Cache CacheConfig

	// Logging
	Logging LoggingConfig
}

// SearchConfig holds the search budgets.
type SearchConfig struct {
	// QueryLimit is the maximum results per backlink page fetch.
	// Capped by the API at 500.
	QueryLimit int
	// AnchorThreshold is the minimum inbound-link count for a page to serve
	// as a search anchor.
	AnchorThreshold int
	// FetchLimit is the maximum paginated fetches per backlink query.
	FetchLimit int
}

// WikiConfig holds the MediaWiki endpoint settings.
type WikiConfig struct {
	// Domain of the wiki, e.g. "en.wikipedia.org"
	Domain string
	// UserAgent sent with every request. Wikipedia policy requires a
	// descriptive one.
	UserAgent string
	// Timeout per HTTP request
	Timeout time.Duration
	// MaxLag threshold sent with API calls
	MaxLag int
	// MaxRetries per API call
	MaxRetries int
}

// CacheConfig holds the persistent link cache settings.
type CacheConfig struct {
	// Enabled controls whether fetched link sets persist across runs
	Enabled bool
	// Dir is the cache directory
	Dir string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (debug, info, warn, error)
	Level string
	// Format (text, json)
	Format string
}

// LoadDefaults returns a Config populated with built-in defaults. The
// defaults target English Wikipedia with conservative budgets.
func LoadDefaults() *Config {
	return &Config{
		Search: SearchConfig{
			QueryLimit:      graph.DefaultQueryLimit,
			AnchorThreshold: racer.DefaultAnchorThreshold,
			FetchLimit:      graph.DefaultFetchLimit,
		},
		Wiki: WikiConfig{
			Domain:     mediawiki.DefaultDomain,
			Timeout:    30 * time.Second,
			MaxLag:     5,
			MaxRetries: 2,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     "./cache",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromEnv builds a Config from defaults overlaid with WIKILADDER_*
// environment variables. No config file is consulted; LoadFromFile is
// preferred as it implements the full precedence chain.
func LoadFromEnv() *Config {
	cfg := LoadDefaults()
	applyEnvVars(cfg)
	return cfg
}

// yamlConfig mirrors the YAML configuration file structure.
type yamlConfig struct {
	Search struct {
		QueryLimit      int `yaml:"query_limit"`
		AnchorThreshold int `yaml:"anchor_threshold"`
		FetchLimit      int `yaml:"fetch_limit"`
	} `yaml:"search"`

	Wiki struct {
		Domain     string `yaml:"domain"`
		UserAgent  string `yaml:"user_agent"`
		Timeout    string `yaml:"timeout"`
		MaxLag     int    `yaml:"max_lag"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"wiki"`

	Cache struct {
		// Pointer so an explicit "enabled: false" is distinguishable from an
		// absent key.
		Enabled *bool  `yaml:"enabled"`
		Dir     string `yaml:"dir"`
	} `yaml:"cache"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadFromFile builds a Config with the full precedence chain: built-in
// defaults, overridden by the YAML file at configPath, overridden by
// environment variables. A missing file is not an error; the defaults and
// environment still apply. An empty configPath skips the file step.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := LoadDefaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			// fall through to env vars
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			var yc yamlConfig
			if err := yaml.Unmarshal(data, &yc); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			applyYAML(cfg, &yc)
		}
	}

	applyEnvVars(cfg)
	return cfg, nil
}

func applyYAML(cfg *Config, yc *yamlConfig) {
	if yc.Search.QueryLimit > 0 {
		cfg.Search.QueryLimit = yc.Search.QueryLimit
	}
	if yc.Search.AnchorThreshold > 0 {
		cfg.Search.AnchorThreshold = yc.Search.AnchorThreshold
	}
	if yc.Search.FetchLimit > 0 {
		cfg.Search.FetchLimit = yc.Search.FetchLimit
	}

	if yc.Wiki.Domain != "" {
		cfg.Wiki.Domain = yc.Wiki.Domain
	}
	if yc.Wiki.UserAgent != "" {
		cfg.Wiki.UserAgent = yc.Wiki.UserAgent
	}
	if yc.Wiki.Timeout != "" {
		if d, err := time.ParseDuration(yc.Wiki.Timeout); err == nil {
			cfg.Wiki.Timeout = d
		}
	}
	if yc.Wiki.MaxLag > 0 {
		cfg.Wiki.MaxLag = yc.Wiki.MaxLag
	}
	if yc.Wiki.MaxRetries > 0 {
		cfg.Wiki.MaxRetries = yc.Wiki.MaxRetries
	}

	if yc.Cache.Enabled != nil {
		cfg.Cache.Enabled = *yc.Cache.Enabled
	}
	if yc.Cache.Dir != "" {
		cfg.Cache.Dir = yc.Cache.Dir
	}

	if yc.Logging.Level != "" {
		cfg.Logging.Level = yc.Logging.Level
	}
	if yc.Logging.Format != "" {
		cfg.Logging.Format = yc.Logging.Format
	}
}

func applyEnvVars(cfg *Config) {
	cfg.Search.QueryLimit = getEnvInt("WIKILADDER_QUERY_LIMIT", cfg.Search.QueryLimit)
	cfg.Search.AnchorThreshold = getEnvInt("WIKILADDER_ANCHOR_THRESHOLD", cfg.Search.AnchorThreshold)
	cfg.Search.FetchLimit = getEnvInt("WIKILADDER_FETCH_LIMIT", cfg.Search.FetchLimit)

	cfg.Wiki.Domain = getEnv("WIKILADDER_DOMAIN", cfg.Wiki.Domain)
	cfg.Wiki.UserAgent = getEnv("WIKILADDER_USER_AGENT", cfg.Wiki.UserAgent)
	cfg.Wiki.Timeout = getEnvDuration("WIKILADDER_TIMEOUT", cfg.Wiki.Timeout)
	cfg.Wiki.MaxLag = getEnvInt("WIKILADDER_MAX_LAG", cfg.Wiki.MaxLag)
	cfg.Wiki.MaxRetries = getEnvInt("WIKILADDER_MAX_RETRIES", cfg.Wiki.MaxRetries)

	cfg.Cache.Enabled = getEnvBool("WIKILADDER_CACHE_ENABLED", cfg.Cache.Enabled)
	cfg.Cache.Dir = getEnv("WIKILADDER_CACHE_DIR", cfg.Cache.Dir)

	cfg.Logging.Level = getEnv("WIKILADDER_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("WIKILADDER_LOG_FORMAT", cfg.Logging.Format)
}

// Validate checks the configuration for values that would make a search
// misbehave or never terminate successfully.
//
// Returns nil if the configuration is valid, or an error describing the
// problem.
func (c *Config) Validate() error {
	if c.Search.QueryLimit < 1 || c.Search.QueryLimit > graph.ProviderPageCap {
		return fmt.Errorf("query limit %d outside [1, %d]", c.Search.QueryLimit, graph.ProviderPageCap)
	}
	if c.Search.FetchLimit < 1 {
		return fmt.Errorf("fetch limit must be positive, got %d", c.Search.FetchLimit)
	}
	if c.Search.AnchorThreshold < 1 {
		return fmt.Errorf("anchor threshold must be positive, got %d", c.Search.AnchorThreshold)
	}
	// Anchoring can never succeed if a full backlink listing cannot reach
	// the threshold.
	if c.Search.QueryLimit*graph.ProviderPageCap < c.Search.AnchorThreshold {
		return fmt.Errorf("anchor threshold %d unreachable with query limit %d",
			c.Search.AnchorThreshold, c.Search.QueryLimit)
	}

	if c.Wiki.Domain == "" {
		return fmt.Errorf("wiki domain must not be empty")
	}
	if c.Wiki.Timeout <= 0 {
		return fmt.Errorf("wiki timeout must be positive, got %s", c.Wiki.Timeout)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	return nil
}

// String returns a string representation of the Config, safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Wiki: %s, QueryLimit: %d, AnchorThreshold: %d, FetchLimit: %d, Cache: %v}",
		c.Wiki.Domain,
		c.Search.QueryLimit, c.Search.AnchorThreshold, c.Search.FetchLimit,
		c.Cache.Enabled,
	)
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path to the first config file found, or empty string if none.
// Search order:
//  1. ~/.wikiladder/config.yaml (user home directory)
//  2. Same directory as the binary (config.yaml, wikiladder.yaml)
//  3. Current working directory (config.yaml, wikiladder.yaml)
//  4. ~/.config/wikiladder/config.yaml (Linux/Unix XDG standard)
func FindConfigFile() string {
	var candidates []string

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".wikiladder", "config.yaml"))
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(exeDir, "config.yaml"),
			filepath.Join(exeDir, "wikiladder.yaml"),
		)
	}

	candidates = append(candidates,
		"config.yaml",
		"wikiladder.yaml",
	)

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "wikiladder", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Try parsing as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
