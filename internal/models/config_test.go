// ABOUTME: Tests for per-run configuration defaults and validation
// ABOUTME: Covers threshold ranges, positive bounds and policy values
package models

import "testing"

func TestBelowThresholdPolicy_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		policy BelowThresholdPolicy
		want   bool
	}{
		{"assign_and_create is valid", PolicyAssignAndCreate, true},
		{"force_assign is valid", PolicyForceAssign, true},
		{"create_only is valid", PolicyCreateOnly, true},
		{"empty string is invalid", BelowThresholdPolicy(""), false},
		{"arbitrary string is invalid", BelowThresholdPolicy("assign"), false},
		{"uppercase is invalid", BelowThresholdPolicy("FORCE_ASSIGN"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultClusteringConfig(t *testing.T) {
	cfg := DefaultClusteringConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.ConfidenceThreshold != 0.6 {
		t.Errorf("ConfidenceThreshold = %v, want 0.6", cfg.ConfidenceThreshold)
	}
	if cfg.MaxClustersPerFragment != 3 {
		t.Errorf("MaxClustersPerFragment = %d, want 3", cfg.MaxClustersPerFragment)
	}
	if cfg.MaxTotalClusters != 50 {
		t.Errorf("MaxTotalClusters = %d, want 50", cfg.MaxTotalClusters)
	}
	if cfg.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", cfg.BatchSize)
	}
	if cfg.BelowThresholdPolicy != PolicyAssignAndCreate {
		t.Errorf("BelowThresholdPolicy = %q, want %q", cfg.BelowThresholdPolicy, PolicyAssignAndCreate)
	}
}

func TestClusteringConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClusteringConfig)
		wantErr bool
	}{
		{"defaults", func(c *ClusteringConfig) {}, false},
		{"threshold at zero", func(c *ClusteringConfig) { c.ConfidenceThreshold = 0 }, false},
		{"threshold at one", func(c *ClusteringConfig) { c.ConfidenceThreshold = 1 }, false},
		{"threshold below zero", func(c *ClusteringConfig) { c.ConfidenceThreshold = -0.1 }, true},
		{"threshold above one", func(c *ClusteringConfig) { c.ConfidenceThreshold = 1.1 }, true},
		{"zero max clusters per fragment", func(c *ClusteringConfig) { c.MaxClustersPerFragment = 0 }, true},
		{"zero max total clusters", func(c *ClusteringConfig) { c.MaxTotalClusters = 0 }, true},
		{"zero batch size", func(c *ClusteringConfig) { c.BatchSize = 0 }, true},
		{"bad policy", func(c *ClusteringConfig) { c.BelowThresholdPolicy = "maybe" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClusteringConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTreeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TreeConfig)
		wantErr bool
	}{
		{"defaults", func(c *TreeConfig) {}, false},
		{"zero children per parent", func(c *TreeConfig) { c.MaxChildrenPerParent = 0 }, true},
		{"zero clusters per level", func(c *TreeConfig) { c.MaxClustersPerLevel = 0 }, true},
		{"zero depth with auto depth", func(c *TreeConfig) { c.AutoDepth = true; c.MaxDepth = 0 }, false},
		{"zero depth without auto depth", func(c *TreeConfig) { c.AutoDepth = false; c.MaxDepth = 0 }, true},
		{"explicit depth without auto depth", func(c *TreeConfig) { c.AutoDepth = false; c.MaxDepth = 2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTreeConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetrievalConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RetrievalConfig)
		wantErr bool
	}{
		{"defaults", func(c *RetrievalConfig) {}, false},
		{"threshold below zero", func(c *RetrievalConfig) { c.ConfidenceThreshold = -0.5 }, true},
		{"threshold above one", func(c *RetrievalConfig) { c.ConfidenceThreshold = 2 }, true},
		{"zero top k", func(c *RetrievalConfig) { c.TopK = 0 }, true},
		{"negative top k", func(c *RetrievalConfig) { c.TopK = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRetrievalConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
