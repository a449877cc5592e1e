// ABOUTME: TreeBuilder compresses flat clusters into a multi-level cluster tree
// ABOUTME: Parents own child ids and derived counts, never fragments
package core

import (
	"context"
	"fmt"
	"log"

	"strata/internal/llm"
	"strata/internal/models"
)

// parentMatchThreshold is fixed above the clustering threshold because
// misgrouping near the root is costlier than at the leaves.
const parentMatchThreshold = 0.7

// hardDepthCap bounds auto-depth runs against pathological oracle output
// that never reduces the level count.
const hardDepthCap = 16

// TreeBuilder groups clusters level by level until the top level is small
// enough or the depth limit is reached.
type TreeBuilder struct {
	oracle llm.Oracle
	config models.TreeConfig

	oracleCalls    int
	placeholderSeq int
}

// NewTreeBuilder validates the configuration and creates a builder
func NewTreeBuilder(oracle llm.Oracle, config models.TreeConfig) (*TreeBuilder, error) {
	if oracle == nil {
		return nil, fmt.Errorf("oracle is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tree config: %w", err)
	}
	return &TreeBuilder{oracle: oracle, config: config}, nil
}

// OracleCalls returns the number of oracle calls made so far
func (tb *TreeBuilder) OracleCalls() int {
	return tb.oracleCalls
}

// Build constructs a tree over the given leaf clusters. The leaves keep
// their identity; every cluster at level > 0 is created here.
func (tb *TreeBuilder) Build(ctx context.Context, leaves []*models.Cluster) (*models.ClusterTree, error) {
	tree := models.NewClusterTree()
	for _, leaf := range leaves {
		tree.AddCluster(leaf)
	}

	current := leaves
	level := 0
	for tb.needsCompression(current, level) {
		// Level transitions are the cancellation points between oracle
		// call sequences.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		parents := tb.compressLevel(ctx, current, level+1)
		if len(parents) >= len(current) {
			// The oracle failed to group anything; stop rather than grow
			// the tree upward forever.
			log.Printf("Warning: level %d did not compress (%d -> %d), stopping", level, len(current), len(parents))
			for _, p := range parents {
				tree.AddCluster(p)
			}
			current = parents
			break
		}

		for _, p := range parents {
			tree.AddCluster(p)
		}
		current = parents
		level++
	}

	for _, c := range current {
		tree.RootClusterIDs = append(tree.RootClusterIDs, c.ID)
	}
	return tree, nil
}

// needsCompression decides whether another level transition is required
func (tb *TreeBuilder) needsCompression(current []*models.Cluster, level int) bool {
	if len(current) <= tb.config.MaxClustersPerLevel {
		return false
	}
	if tb.config.AutoDepth {
		return level < hardDepthCap
	}
	return level < tb.config.MaxDepth
}

// compressLevel groups the clusters of one level under parents at the
// next level up, in order, one oracle decision at a time.
func (tb *TreeBuilder) compressLevel(ctx context.Context, current []*models.Cluster, parentLevel int) []*models.Cluster {
	var parents []*models.Cluster

	for _, c := range current {
		parent := tb.matchParent(ctx, c, parents)
		if parent == nil {
			parent = tb.createParent(ctx, c, parentLevel)
			parents = append(parents, parent)
		}
		parent.AddChild(c)
	}
	return parents
}

// matchParent asks the oracle to place a cluster under an existing parent
// candidate. Returns nil when a new parent is needed, including on oracle
// failure.
func (tb *TreeBuilder) matchParent(ctx context.Context, c *models.Cluster, parents []*models.Cluster) *models.Cluster {
	// Skip parents that are already full
	candidates := make([]*models.Cluster, 0, len(parents))
	for _, p := range parents {
		if len(p.ChildClusterIDs) < tb.config.MaxChildrenPerParent {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	resp, err := tb.oracle.MatchClusters(ctx, clusterText(c), llm.SummarizeAll(candidates))
	tb.oracleCalls++
	if err != nil {
		log.Printf("Warning: parent match failed for cluster %s: %v", c.ID, err)
		return nil
	}

	var best *llm.ClusterMatch
	for i := range resp.Matches {
		if best == nil || resp.Matches[i].Confidence > best.Confidence {
			best = &resp.Matches[i]
		}
	}
	if best == nil || best.Confidence < parentMatchThreshold {
		return nil
	}
	for _, p := range candidates {
		if p.ID == best.ClusterID {
			return p
		}
	}
	return nil
}

// createParent creates a parent cluster whose metadata summarizes its
// founding child. Metadata is written once; later children never trigger
// a regeneration.
func (tb *TreeBuilder) createParent(ctx context.Context, child *models.Cluster, level int) *models.Cluster {
	meta, err := tb.oracle.SummarizeChildren(ctx, []llm.ClusterSummary{llm.Summarize(child)})
	tb.oracleCalls++
	if err != nil {
		log.Printf("Warning: parent metadata synthesis failed: %v", err)
		tb.placeholderSeq++
		meta = &models.ClusterMetadata{
			CanonicalName: fmt.Sprintf("group-%d", tb.placeholderSeq),
			Description:   "placeholder parent created after an oracle failure",
		}
	}
	return models.NewCluster(level, *meta)
}

// clusterText renders a cluster's own metadata as the text to match
// against parent candidates
func clusterText(c *models.Cluster) string {
	text := c.Metadata.CanonicalName
	if c.Metadata.Description != "" {
		text += ": " + c.Metadata.Description
	}
	return text
}
