// ABOUTME: Cluster groups fragments (level 0) or lower-level clusters (level > 0)
// ABOUTME: Metadata is generated once by the oracle and never silently regenerated
package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ClusterMetadata is the oracle-generated description of a cluster.
// It is written exactly once when the cluster is created; consistency of
// naming across the lifetime of a cluster is an invariant.
type ClusterMetadata struct {
	CanonicalName string   `json:"canonical_name"`
	Tags          []string `json:"tags,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Description   string   `json:"description,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Topic         string   `json:"topic,omitempty"`
	Synonyms      []string `json:"synonyms,omitempty"`
}

// Cluster is a named group of fragments or of child clusters. A cluster at
// level > 0 never owns fragments directly; its ChunkCount is the transitive
// sum over descendants.
//
// Fragments and ChunkIDs are never both authoritative at the same time:
// Fragments is populated in in-memory mode, ChunkIDs in lazy mode where the
// text lives in a chunk store.
type Cluster struct {
	ID              string          `json:"id"`
	Level           int             `json:"level"`
	Metadata        ClusterMetadata `json:"metadata"`
	Fragments       []Fragment      `json:"fragments,omitempty"`
	ChunkIDs        []int64         `json:"chunk_ids,omitempty"`
	ChildClusterIDs []string        `json:"child_cluster_ids,omitempty"`
	ParentID        string          `json:"parent_id,omitempty"`
	ChunkCount      int             `json:"chunk_count"`
}

// NewClusterID generates a globally unique cluster id
func NewClusterID() string {
	return fmt.Sprintf("cluster_%s", uuid.New().String()[:8])
}

// NewCluster creates a cluster at the given level with the given metadata
func NewCluster(level int, meta ClusterMetadata) *Cluster {
	return &Cluster{
		ID:       NewClusterID(),
		Level:    level,
		Metadata: meta,
	}
}

// IsLeaf reports whether the cluster sits at the fragment-owning level
func (c *Cluster) IsLeaf() bool {
	return c.Level == 0
}

// AddFragment appends a fragment in in-memory mode and updates ChunkCount
func (c *Cluster) AddFragment(f Fragment) {
	c.Fragments = append(c.Fragments, f)
	c.ChunkCount++
}

// AddChunkID appends a fragment id in lazy mode and updates ChunkCount
func (c *Cluster) AddChunkID(id int64) {
	c.ChunkIDs = append(c.ChunkIDs, id)
	c.ChunkCount++
}

// AddChild attaches a child cluster and accumulates its chunk count.
// Children are never re-parented within a run.
func (c *Cluster) AddChild(child *Cluster) {
	c.ChildClusterIDs = append(c.ChildClusterIDs, child.ID)
	c.ChunkCount += child.ChunkCount
	child.ParentID = c.ID
}

// FragmentIDs returns the ids of the fragments this leaf owns, regardless
// of whether it is in in-memory or lazy mode
func (c *Cluster) FragmentIDs() []int64 {
	if len(c.ChunkIDs) > 0 {
		return c.ChunkIDs
	}
	ids := make([]int64, len(c.Fragments))
	for i, f := range c.Fragments {
		ids[i] = f.ID
	}
	return ids
}

// Validate checks structural invariants for a single cluster
func (c *Cluster) Validate() error {
	if c.ID == "" {
		return errors.New("cluster id cannot be empty")
	}
	if c.Metadata.CanonicalName == "" {
		return errors.New("cluster canonical name cannot be empty")
	}
	if c.Level < 0 {
		return fmt.Errorf("cluster level must be >= 0, got %d", c.Level)
	}
	if c.Level > 0 && (len(c.Fragments) > 0 || len(c.ChunkIDs) > 0) {
		return fmt.Errorf("cluster %s at level %d must not own fragments", c.ID, c.Level)
	}
	if c.Level == 0 && len(c.ChildClusterIDs) > 0 {
		return fmt.Errorf("leaf cluster %s must not have child clusters", c.ID)
	}
	return nil
}
