// ABOUTME: Result types for clustering runs and tree-guided retrieval
// ABOUTME: Includes the navigation trace appended on every retrieval transition
package models

import "time"

// ClusteringResult is the flat output of a clustering run: every cluster,
// the fragment-to-cluster assignment map (multi-membership permitted), the
// optional attached tree, and run counters.
type ClusteringResult struct {
	Clusters           []*Cluster         `json:"clusters"`
	Assignments        map[int64][]string `json:"assignments"`
	Tree               *ClusterTree       `json:"tree,omitempty"`
	FragmentsProcessed int                `json:"fragments_processed"`
	OracleCalls        int                `json:"oracle_calls"`
}

// LeafClusters returns the level-0 clusters in creation order
func (r *ClusteringResult) LeafClusters() []*Cluster {
	leaves := make([]*Cluster, 0, len(r.Clusters))
	for _, c := range r.Clusters {
		if c.IsLeaf() {
			leaves = append(leaves, c)
		}
	}
	return leaves
}

// TotalFragments returns the number of distinct fragments assigned
func (r *ClusteringResult) TotalFragments() int {
	return len(r.Assignments)
}

// NavigationStep records one decision made while descending the tree.
// A step with an empty ChosenClusterID is the failure case where no
// candidate cleared the confidence threshold.
type NavigationStep struct {
	Level             int      `json:"level"`
	ChosenClusterID   string   `json:"chosen_cluster_id,omitempty"`
	ChosenClusterName string   `json:"chosen_cluster_name,omitempty"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning,omitempty"`
	Alternatives      []string `json:"alternatives_considered,omitempty"`
}

// RankedFragment is one retrieval hit with its justification
type RankedFragment struct {
	FragmentID  int64    `json:"fragment_id"`
	Text        string   `json:"text"`
	Confidence  float64  `json:"confidence"`
	Reasoning   string   `json:"reasoning,omitempty"`
	ClusterPath []string `json:"cluster_path"`
}

// RetrievalStats aggregates cost counters for one retrieval
type RetrievalStats struct {
	OracleCalls      int           `json:"oracle_calls"`
	Elapsed          time.Duration `json:"elapsed"`
	ClustersExplored int           `json:"clusters_explored"`
}

// RetrievalResult is the full answer to a query: ranked fragments plus the
// step-by-step navigation trace and aggregate stats
type RetrievalResult struct {
	Query   string           `json:"query"`
	Results []RankedFragment `json:"results"`
	Trace   []NavigationStep `json:"trace"`
	Stats   RetrievalStats   `json:"stats"`
}
