// ABOUTME: ClusterTree is the multi-level hierarchy built on top of flat clusters
// ABOUTME: ClustersByID is the single source of truth; ClustersByLevel is a derived index
package models

import (
	"fmt"
	"sort"
)

// ClusterTree holds every cluster in the hierarchy. ClustersByID owns the
// clusters; ClustersByLevel and the counters are derived and kept in sync
// on every AddCluster call.
type ClusterTree struct {
	RootClusterIDs  []string            `json:"root_cluster_ids"`
	ClustersByID    map[string]*Cluster `json:"clusters_by_id"`
	ClustersByLevel map[int][]string    `json:"clusters_by_level"`
	MaxDepth        int                 `json:"max_depth"`
	TotalClusters   int                 `json:"total_clusters"`
	TotalChunks     int                 `json:"total_chunks"`
}

// NewClusterTree creates an empty tree
func NewClusterTree() *ClusterTree {
	return &ClusterTree{
		RootClusterIDs:  []string{},
		ClustersByID:    make(map[string]*Cluster),
		ClustersByLevel: make(map[int][]string),
	}
}

// AddCluster registers a cluster in the ownership map and keeps the
// per-level index, depth and counters consistent
func (t *ClusterTree) AddCluster(c *Cluster) {
	if _, exists := t.ClustersByID[c.ID]; exists {
		return
	}
	t.ClustersByID[c.ID] = c
	t.ClustersByLevel[c.Level] = append(t.ClustersByLevel[c.Level], c.ID)
	t.TotalClusters++
	if c.Level > t.MaxDepth {
		t.MaxDepth = c.Level
	}
	if c.IsLeaf() {
		t.TotalChunks += c.ChunkCount
	}
}

// Get returns the cluster with the given id, or nil
func (t *ClusterTree) Get(id string) *Cluster {
	return t.ClustersByID[id]
}

// ClustersAtLevel returns the clusters at a level in registration order
func (t *ClusterTree) ClustersAtLevel(level int) []*Cluster {
	ids := t.ClustersByLevel[level]
	clusters := make([]*Cluster, 0, len(ids))
	for _, id := range ids {
		if c := t.ClustersByID[id]; c != nil {
			clusters = append(clusters, c)
		}
	}
	return clusters
}

// Roots returns the root clusters in order
func (t *ClusterTree) Roots() []*Cluster {
	roots := make([]*Cluster, 0, len(t.RootClusterIDs))
	for _, id := range t.RootClusterIDs {
		if c := t.ClustersByID[id]; c != nil {
			roots = append(roots, c)
		}
	}
	return roots
}

// Children returns the child clusters of a parent in attachment order
func (t *ClusterTree) Children(parent *Cluster) []*Cluster {
	children := make([]*Cluster, 0, len(parent.ChildClusterIDs))
	for _, id := range parent.ChildClusterIDs {
		if c := t.ClustersByID[id]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// Levels returns the populated levels in ascending order
func (t *ClusterTree) Levels() []int {
	levels := make([]int, 0, len(t.ClustersByLevel))
	for level := range t.ClustersByLevel {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

// Validate checks the tree invariants: parent/child links are mutual,
// parent chunk counts equal the sum over their children, the per-level
// index matches the ownership map, and MaxDepth is the greatest level.
func (t *ClusterTree) Validate() error {
	indexed := 0
	maxLevel := 0
	for level, ids := range t.ClustersByLevel {
		indexed += len(ids)
		if level > maxLevel {
			maxLevel = level
		}
		for _, id := range ids {
			c, ok := t.ClustersByID[id]
			if !ok {
				return fmt.Errorf("cluster %s indexed at level %d but not owned", id, level)
			}
			if c.Level != level {
				return fmt.Errorf("cluster %s indexed at level %d but has level %d", id, level, c.Level)
			}
		}
	}
	if indexed != len(t.ClustersByID) {
		return fmt.Errorf("level index holds %d clusters, ownership map holds %d", indexed, len(t.ClustersByID))
	}
	if t.TotalClusters != len(t.ClustersByID) {
		return fmt.Errorf("total_clusters = %d, ownership map holds %d", t.TotalClusters, len(t.ClustersByID))
	}
	if len(t.ClustersByID) > 0 && t.MaxDepth != maxLevel {
		return fmt.Errorf("max_depth = %d, greatest level present is %d", t.MaxDepth, maxLevel)
	}

	roots := make(map[string]bool, len(t.RootClusterIDs))
	for _, id := range t.RootClusterIDs {
		roots[id] = true
	}

	for id, c := range t.ClustersByID {
		if err := c.Validate(); err != nil {
			return err
		}
		if !roots[id] && c.ParentID == "" {
			return fmt.Errorf("non-root cluster %s has no parent", id)
		}
		if c.ParentID != "" {
			parent, ok := t.ClustersByID[c.ParentID]
			if !ok {
				return fmt.Errorf("cluster %s references missing parent %s", id, c.ParentID)
			}
			found := false
			for _, childID := range parent.ChildClusterIDs {
				if childID == id {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("parent %s does not list %s as a child", c.ParentID, id)
			}
		}
		if !c.IsLeaf() {
			sum := 0
			for _, childID := range c.ChildClusterIDs {
				child, ok := t.ClustersByID[childID]
				if !ok {
					return fmt.Errorf("cluster %s references missing child %s", id, childID)
				}
				sum += child.ChunkCount
			}
			if c.ChunkCount != sum {
				return fmt.Errorf("cluster %s chunk_count = %d, children sum to %d", id, c.ChunkCount, sum)
			}
		}
	}
	return nil
}
