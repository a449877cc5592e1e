// ABOUTME: Centralized configuration for the strata CLI and MCP server
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"strata/internal/models"
	"strata/internal/store"
)

// Config holds all configuration for a strata run
type Config struct {
	// OpenAI settings
	OpenAIKey   string
	ChatModel   string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration

	// Clustering settings
	ConfidenceThreshold    float64
	MaxClustersPerFragment int
	MaxTotalClusters       int
	BatchSize              int
	BelowThresholdPolicy   string

	// Tree settings
	MaxChildrenPerParent int
	MaxClustersPerLevel  int
	MaxDepth             int
	AutoDepth            bool

	// Retrieval settings
	RetrievalThreshold float64
	TopK               int

	// Storage settings
	StorageBackend string
	StorePath      string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		ChatModel:   getEnv("STRATA_OPENAI_MODEL", "gpt-4o-mini"),
		Temperature: getEnvFloat("STRATA_TEMPERATURE", 0.2),
		Timeout:     getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
		MaxRetries:  getEnvInt("OPENAI_MAX_RETRIES", 3),
		RetryDelay:  getEnvDuration("OPENAI_RETRY_DELAY", 2*time.Second),

		ConfidenceThreshold:    getEnvFloat("STRATA_CONFIDENCE_THRESHOLD", 0.6),
		MaxClustersPerFragment: getEnvInt("STRATA_MAX_CLUSTERS_PER_FRAGMENT", 3),
		MaxTotalClusters:       getEnvInt("STRATA_MAX_TOTAL_CLUSTERS", 50),
		BatchSize:              getEnvInt("STRATA_BATCH_SIZE", 5),
		BelowThresholdPolicy:   getEnv("STRATA_BELOW_THRESHOLD_POLICY", string(models.PolicyAssignAndCreate)),

		MaxChildrenPerParent: getEnvInt("STRATA_MAX_CHILDREN_PER_PARENT", 8),
		MaxClustersPerLevel:  getEnvInt("STRATA_MAX_CLUSTERS_PER_LEVEL", 5),
		MaxDepth:             getEnvInt("STRATA_MAX_DEPTH", 3),
		AutoDepth:            getEnvBool("STRATA_AUTO_DEPTH", true),

		RetrievalThreshold: getEnvFloat("STRATA_RETRIEVAL_THRESHOLD", 0.4),
		TopK:               getEnvInt("STRATA_TOP_K", 5),

		StorageBackend: getEnv("STRATA_STORAGE_BACKEND", string(store.BackendMemory)),
		StorePath:      os.Getenv("STRATA_STORE_PATH"),
	}

	return cfg, cfg.Validate()
}

// Validate surfaces configuration errors before any oracle call is made
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("STRATA_CONFIDENCE_THRESHOLD must be 0-1, got %f", c.ConfidenceThreshold)
	}
	if c.RetrievalThreshold < 0 || c.RetrievalThreshold > 1 {
		return fmt.Errorf("STRATA_RETRIEVAL_THRESHOLD must be 0-1, got %f", c.RetrievalThreshold)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	policy := models.BelowThresholdPolicy(c.BelowThresholdPolicy)
	if !policy.IsValid() {
		return fmt.Errorf("STRATA_BELOW_THRESHOLD_POLICY must be one of assign_and_create, force_assign, create_only; got %q", c.BelowThresholdPolicy)
	}
	switch store.Backend(c.StorageBackend) {
	case store.BackendMemory:
	case store.BackendSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("STRATA_STORE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown STRATA_STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// ClusteringConfig converts the loaded settings into a per-run config
func (c *Config) ClusteringConfig() models.ClusteringConfig {
	return models.ClusteringConfig{
		ConfidenceThreshold:    c.ConfidenceThreshold,
		MaxClustersPerFragment: c.MaxClustersPerFragment,
		MaxTotalClusters:       c.MaxTotalClusters,
		BatchSize:              c.BatchSize,
		BelowThresholdPolicy:   models.BelowThresholdPolicy(c.BelowThresholdPolicy),
	}
}

// TreeConfig converts the loaded settings into a per-run config
func (c *Config) TreeConfig() models.TreeConfig {
	return models.TreeConfig{
		MaxChildrenPerParent: c.MaxChildrenPerParent,
		MaxClustersPerLevel:  c.MaxClustersPerLevel,
		MaxDepth:             c.MaxDepth,
		AutoDepth:            c.AutoDepth,
	}
}

// RetrievalConfig converts the loaded settings into a per-run config
func (c *Config) RetrievalConfig() models.RetrievalConfig {
	return models.RetrievalConfig{
		ConfidenceThreshold: c.RetrievalThreshold,
		TopK:                c.TopK,
	}
}

// StoreOptions converts the loaded settings into backend options
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend: store.Backend(c.StorageBackend),
		Path:    c.StorePath,
	}
}

// Helper functions

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
