package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultProductPathPattern matches product-detail pages such as /products/oak-table
const DefaultProductPathPattern = `/products/(.+)`

// Config holds all runtime configuration parameters
type Config struct {
	SeedPath            string `json:"seed_path"`
	OutputPath          string `json:"output_path"`
	ProductPathPattern  string `json:"product_path_pattern"`
	ObeyRobots          bool   `json:"obey_robots"`
	ConcurrentWorkers   int    `json:"concurrent_workers"`
	RequestTimeoutMs    int    `json:"request_timeout_ms"`
	UserAgent           string `json:"user_agent"`
	DBPath              string `json:"db_path"`
	MetricsPath         string `json:"metrics_path"`
	MetricsTextfilePath string `json:"metrics_textfile_path"`
	LogLevel            string `json:"log_level"`
}

// LoadConfig reads and validates configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is present
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// RequestTimeout returns the per-request fetch timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// ProductPattern compiles the product path pattern. validate guarantees it compiles.
func (c *Config) ProductPattern() *regexp.Regexp {
	return regexp.MustCompile(c.ProductPathPattern)
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.SeedPath == "" {
		cfg.SeedPath = "data/stores.csv"
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = "products/products_file.json"
	}
	if cfg.ProductPathPattern == "" {
		cfg.ProductPathPattern = DefaultProductPathPattern
	}
	if cfg.ConcurrentWorkers == 0 {
		cfg.ConcurrentWorkers = 16
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 30000
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "products.db"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	if cfg.SeedPath == "" {
		return fmt.Errorf("seed_path is required")
	}
	if cfg.OutputPath == "" {
		return fmt.Errorf("output_path is required")
	}
	if _, err := regexp.Compile(cfg.ProductPathPattern); err != nil {
		return fmt.Errorf("product_path_pattern does not compile: %w", err)
	}
	if cfg.ConcurrentWorkers < 1 {
		return fmt.Errorf("concurrent_workers must be >= 1")
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
