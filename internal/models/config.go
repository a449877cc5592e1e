// ABOUTME: Immutable per-run configuration for clustering, tree building and retrieval
// ABOUTME: Validation happens before any oracle call is made
package models

import "fmt"

// BelowThresholdPolicy controls what happens to oracle matches that fall
// below the confidence threshold.
type BelowThresholdPolicy string

const (
	// PolicyAssignAndCreate accepts sub-threshold matches and still allows
	// new clusters when the oracle signals them
	PolicyAssignAndCreate BelowThresholdPolicy = "assign_and_create"

	// PolicyForceAssign always lands the fragment in the best existing
	// match and never creates a cluster for it
	PolicyForceAssign BelowThresholdPolicy = "force_assign"

	// PolicyCreateOnly rejects sub-threshold matches; unmatched fragments
	// get a new cluster
	PolicyCreateOnly BelowThresholdPolicy = "create_only"
)

// IsValid reports whether the policy is one of the known values
func (p BelowThresholdPolicy) IsValid() bool {
	switch p {
	case PolicyAssignAndCreate, PolicyForceAssign, PolicyCreateOnly:
		return true
	}
	return false
}

// ClusteringConfig controls the flat clusterer
type ClusteringConfig struct {
	ConfidenceThreshold    float64              `json:"confidence_threshold"`
	MaxClustersPerFragment int                  `json:"max_clusters_per_fragment"`
	MaxTotalClusters       int                  `json:"max_total_clusters"`
	BatchSize              int                  `json:"batch_size"`
	BelowThresholdPolicy   BelowThresholdPolicy `json:"below_threshold_policy"`
}

// DefaultClusteringConfig returns the defaults used by the CLI
func DefaultClusteringConfig() ClusteringConfig {
	return ClusteringConfig{
		ConfidenceThreshold:    0.6,
		MaxClustersPerFragment: 3,
		MaxTotalClusters:       50,
		BatchSize:              5,
		BelowThresholdPolicy:   PolicyAssignAndCreate,
	}
}

// Validate surfaces configuration errors before any oracle work starts
func (c ClusteringConfig) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be 0-1, got %f", c.ConfidenceThreshold)
	}
	if c.MaxClustersPerFragment <= 0 {
		return fmt.Errorf("max_clusters_per_fragment must be positive, got %d", c.MaxClustersPerFragment)
	}
	if c.MaxTotalClusters <= 0 {
		return fmt.Errorf("max_total_clusters must be positive, got %d", c.MaxTotalClusters)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if !c.BelowThresholdPolicy.IsValid() {
		return fmt.Errorf("unknown below_threshold_policy %q", c.BelowThresholdPolicy)
	}
	return nil
}

// TreeConfig controls bottom-up tree construction
type TreeConfig struct {
	MaxChildrenPerParent int  `json:"max_children_per_parent"`
	MaxClustersPerLevel  int  `json:"max_clusters_per_level"`
	MaxDepth             int  `json:"max_depth"`
	AutoDepth            bool `json:"auto_depth"`
}

// DefaultTreeConfig returns the defaults used by the CLI
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		MaxChildrenPerParent: 8,
		MaxClustersPerLevel:  5,
		MaxDepth:             3,
		AutoDepth:            true,
	}
}

// Validate surfaces configuration errors before any oracle work starts
func (c TreeConfig) Validate() error {
	if c.MaxChildrenPerParent <= 0 {
		return fmt.Errorf("max_children_per_parent must be positive, got %d", c.MaxChildrenPerParent)
	}
	if c.MaxClustersPerLevel <= 0 {
		return fmt.Errorf("max_clusters_per_level must be positive, got %d", c.MaxClustersPerLevel)
	}
	if !c.AutoDepth && c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive when auto_depth is off, got %d", c.MaxDepth)
	}
	return nil
}

// RetrievalConfig controls tree-guided retrieval
type RetrievalConfig struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	TopK                int     `json:"top_k"`
}

// DefaultRetrievalConfig returns the defaults used by the CLI
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		ConfidenceThreshold: 0.4,
		TopK:                5,
	}
}

// Validate surfaces configuration errors before any oracle work starts
func (c RetrievalConfig) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be 0-1, got %f", c.ConfidenceThreshold)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	return nil
}
