// ABOUTME: FlatClusterer converts a sequence of fragments into named clusters
// ABOUTME: One oracle decision at a time, each informed by all prior decisions
package core

import (
	"context"
	"fmt"
	"log"
	"sort"

	"strata/internal/llm"
	"strata/internal/models"
	"strata/internal/store"
)

// FlatClusterer assigns fragments to clusters with stable, explainable
// names. Processing is strictly sequential: each match call's context
// includes every cluster created by the calls before it, so fragment order
// determines cluster formation order. Re-running with shuffled input is
// not guaranteed to reproduce identical clusters.
type FlatClusterer struct {
	oracle      llm.Oracle
	chunks      store.ChunkStore
	config      models.ClusteringConfig
	registry    *clusterRegistry
	assignments map[int64][]string

	processed      int
	oracleCalls    int
	placeholderSeq int
}

// NewFlatClusterer validates the configuration and creates a clusterer.
// The chunk store may be nil; fragments are then held in memory only.
func NewFlatClusterer(oracle llm.Oracle, chunks store.ChunkStore, config models.ClusteringConfig) (*FlatClusterer, error) {
	if oracle == nil {
		return nil, fmt.Errorf("oracle is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid clustering config: %w", err)
	}
	return &FlatClusterer{
		oracle:      oracle,
		chunks:      chunks,
		config:      config,
		registry:    newClusterRegistry(),
		assignments: make(map[int64][]string),
	}, nil
}

// Cluster consumes fragments in fixed-size batches and returns a snapshot
// of the accumulated result. Calling it again with more fragments extends
// the same cluster set; the assignment map is append-only.
func (fc *FlatClusterer) Cluster(ctx context.Context, fragments []models.Fragment) (*models.ClusteringResult, error) {
	for start := 0; start < len(fragments); start += fc.config.BatchSize {
		// Batch boundaries are the only cancellation points: no in-flight
		// decision is abandoned mid-fragment.
		if err := ctx.Err(); err != nil {
			return fc.result(), err
		}

		end := start + fc.config.BatchSize
		if end > len(fragments) {
			end = len(fragments)
		}
		for _, f := range fragments[start:end] {
			fc.processFragment(ctx, f)
		}
	}
	return fc.result(), nil
}

// Result returns a snapshot of the accumulated clustering result
func (fc *FlatClusterer) Result() *models.ClusteringResult {
	return fc.result()
}

// processFragment runs the match/create/assign loop for one fragment.
// A single fragment's failure never aborts the batch.
func (fc *FlatClusterer) processFragment(ctx context.Context, f models.Fragment) {
	if err := f.Validate(); err != nil {
		log.Printf("Warning: skipping fragment %d: %v", f.ID, err)
		return
	}
	fc.processed++

	// Write-through to the chunk store; a write failure must not void the
	// clustering work, so it only warns.
	if fc.chunks != nil {
		if err := fc.chunks.Put(f); err != nil {
			log.Printf("Warning: failed to persist fragment %d: %v", f.ID, err)
		}
	}

	// First fragment ever: synthesize a brand-new cluster directly.
	if fc.registry.len() == 0 {
		c := fc.createCluster(ctx, f.Text, nil)
		fc.assign(f, c)
		return
	}

	resp, err := fc.oracle.MatchClusters(ctx, f.Text, llm.SummarizeAll(fc.registry.all()))
	fc.oracleCalls++
	if err != nil {
		// Oracle failure: fall back to a uniquely suffixed placeholder
		// cluster rather than aborting; forward progress beats perfect
		// categorization.
		log.Printf("Warning: oracle match failed for fragment %d: %v", f.ID, err)
		if fc.registry.len() >= fc.config.MaxTotalClusters {
			// The capacity ceiling holds on the failure path too: land in
			// the oldest cluster instead of minting a placeholder.
			fc.assign(f, fc.bestExisting(nil))
			return
		}
		c := fc.createPlaceholderCluster()
		fc.assign(f, c)
		return
	}

	matches := make([]llm.ClusterMatch, len(resp.Matches))
	copy(matches, resp.Matches)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	// Accept matches at or above the threshold (inclusive), highest
	// confidence first, up to the multi-membership bound.
	var accepted []*models.Cluster
	for _, m := range matches {
		if m.Confidence < fc.config.ConfidenceThreshold {
			break
		}
		if len(accepted) >= fc.config.MaxClustersPerFragment {
			break
		}
		if c := fc.registry.get(m.ClusterID); c != nil {
			accepted = append(accepted, c)
		}
	}

	// Below-threshold matches are accepted only under the permissive
	// policies, and then only the best one.
	policy := fc.config.BelowThresholdPolicy
	if len(accepted) == 0 && len(matches) > 0 &&
		(policy == models.PolicyForceAssign || policy == models.PolicyAssignAndCreate) {
		if c := fc.registry.get(matches[0].ClusterID); c != nil {
			accepted = append(accepted, c)
		}
	}

	// force_assign never creates clusters, no matter what the oracle says.
	needNew := (resp.NeedsNewCluster || len(accepted) == 0) && policy != models.PolicyForceAssign
	if needNew && len(accepted) < fc.config.MaxClustersPerFragment {
		if fc.registry.len() >= fc.config.MaxTotalClusters {
			// Capacity exhaustion is a policy branch, not an error: the
			// fragment lands in the best existing match even if weak.
			if len(accepted) == 0 {
				accepted = append(accepted, fc.bestExisting(matches))
			}
		} else {
			c := fc.createCluster(ctx, f.Text, resp.NewCluster)
			accepted = append(accepted, c)
		}
	}

	if len(accepted) == 0 {
		// force_assign with no ranked matches at all: land in the oldest
		// cluster so the fragment is never dropped.
		if policy == models.PolicyForceAssign {
			accepted = append(accepted, fc.registry.all()[0])
		} else {
			log.Printf("Warning: fragment %d matched no cluster and none was created", f.ID)
			return
		}
	}

	for _, c := range accepted {
		fc.assign(f, c)
	}
}

// bestExisting returns the highest-confidence matched cluster, falling
// back to the oldest cluster when the oracle ranked nothing
func (fc *FlatClusterer) bestExisting(matches []llm.ClusterMatch) *models.Cluster {
	for _, m := range matches {
		if c := fc.registry.get(m.ClusterID); c != nil {
			return c
		}
	}
	return fc.registry.all()[0]
}

// createCluster creates a level-0 cluster, using the oracle's draft
// metadata when provided and synthesizing it otherwise. Metadata is
// generated exactly once here and never regenerated.
func (fc *FlatClusterer) createCluster(ctx context.Context, text string, draft *models.ClusterMetadata) *models.Cluster {
	meta := draft
	if meta == nil {
		synthesized, err := fc.oracle.SynthesizeMetadata(ctx, text)
		fc.oracleCalls++
		if err != nil {
			log.Printf("Warning: metadata synthesis failed: %v", err)
			return fc.createPlaceholderCluster()
		}
		meta = synthesized
	}

	c := models.NewCluster(0, *meta)
	if err := fc.registry.add(c); err != nil {
		// uuid collision; retry once with a fresh id
		c.ID = models.NewClusterID()
		_ = fc.registry.add(c)
	}
	return c
}

// createPlaceholderCluster creates a cluster with a uniquely suffixed
// placeholder name for the oracle-failure fallback path
func (fc *FlatClusterer) createPlaceholderCluster() *models.Cluster {
	fc.placeholderSeq++
	c := models.NewCluster(0, models.ClusterMetadata{
		CanonicalName: fmt.Sprintf("uncategorized-%d", fc.placeholderSeq),
		Description:   "placeholder cluster created after an oracle failure",
	})
	_ = fc.registry.add(c)
	return c
}

// assign records the fragment in the cluster and in the append-only
// assignment map, skipping duplicates
func (fc *FlatClusterer) assign(f models.Fragment, c *models.Cluster) {
	for _, id := range fc.assignments[f.ID] {
		if id == c.ID {
			return
		}
	}
	c.AddFragment(f)
	fc.assignments[f.ID] = append(fc.assignments[f.ID], c.ID)
}

// result builds a snapshot of the accumulated state
func (fc *FlatClusterer) result() *models.ClusteringResult {
	assignments := make(map[int64][]string, len(fc.assignments))
	for id, clusterIDs := range fc.assignments {
		assignments[id] = append([]string(nil), clusterIDs...)
	}
	return &models.ClusteringResult{
		Clusters:           fc.registry.all(),
		Assignments:        assignments,
		FragmentsProcessed: fc.processed,
		OracleCalls:        fc.oracleCalls,
	}
}
