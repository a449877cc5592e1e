// ABOUTME: Retriever walks a cluster tree from the roots down to a leaf
// ABOUTME: Every transition is recorded in the navigation trace, failures included
package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"strata/internal/llm"
	"strata/internal/models"
	"strata/internal/store"
)

// navState is the retrieval state machine position
type navState string

const (
	stateAtLevel         navState = "at_level"
	stateSelectFragments navState = "select_fragments"
	stateDone            navState = "done"
)

// Retriever descends a built tree toward the leaf most relevant to a
// query, then ranks that leaf's fragments in a single oracle call. When no
// candidate clears the confidence threshold it halts with an empty result
// rather than guessing; the trace still records the failed step.
type Retriever struct {
	oracle llm.Oracle
	chunks store.ChunkStore // may be nil when clusters hold fragments inline
	config models.RetrievalConfig
}

// NewRetriever validates the configuration and creates a retriever
func NewRetriever(oracle llm.Oracle, chunks store.ChunkStore, config models.RetrievalConfig) (*Retriever, error) {
	if oracle == nil {
		return nil, fmt.Errorf("oracle is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retrieval config: %w", err)
	}
	return &Retriever{oracle: oracle, chunks: chunks, config: config}, nil
}

// Retrieve answers a query against a built tree
func (r *Retriever) Retrieve(ctx context.Context, tree *models.ClusterTree, query string) (*models.RetrievalResult, error) {
	if tree == nil || len(tree.RootClusterIDs) == 0 {
		return nil, fmt.Errorf("tree has no root clusters")
	}

	started := time.Now()
	result := &models.RetrievalResult{
		Query:   query,
		Results: []models.RankedFragment{},
		Trace:   []models.NavigationStep{},
	}

	candidates := tree.Roots()
	var path []string
	var leaf *models.Cluster

	state := stateAtLevel
	for state == stateAtLevel {
		chosen, step := r.chooseCluster(ctx, query, candidates)
		result.Stats.OracleCalls++
		result.Stats.ClustersExplored += len(candidates)
		result.Trace = append(result.Trace, step)

		if chosen == nil {
			// No candidate cleared the threshold: empty result, populated
			// trace.
			result.Stats.Elapsed = time.Since(started)
			return result, nil
		}

		path = append(path, chosen.ID)
		if chosen.IsLeaf() {
			leaf = chosen
			state = stateSelectFragments
		} else {
			candidates = tree.Children(chosen)
			if len(candidates) == 0 {
				log.Printf("Warning: cluster %s has no children, halting navigation", chosen.ID)
				result.Stats.Elapsed = time.Since(started)
				return result, nil
			}
		}
	}

	ranked, calls := r.selectFragments(ctx, query, leaf, path)
	result.Stats.OracleCalls += calls
	result.Results = ranked
	result.Stats.Elapsed = time.Since(started)

	return result, nil
}

// chooseCluster asks the oracle to pick one candidate at the current
// level. Returns nil when nothing clears the threshold or the oracle
// fails; the step records the decision either way.
func (r *Retriever) chooseCluster(ctx context.Context, query string, candidates []*models.Cluster) (*models.Cluster, models.NavigationStep) {
	level := candidates[0].Level
	step := models.NavigationStep{Level: level}
	for _, c := range candidates {
		step.Alternatives = append(step.Alternatives, c.ID)
	}

	resp, err := r.oracle.MatchClusters(ctx, query, llm.SummarizeAll(candidates))
	if err != nil {
		// An oracle failure at retrieval degrades to an empty match set.
		log.Printf("Warning: navigation match failed at level %d: %v", level, err)
		step.Reasoning = fmt.Sprintf("oracle failure: %v", err)
		return nil, step
	}

	var best *llm.ClusterMatch
	for i := range resp.Matches {
		if best == nil || resp.Matches[i].Confidence > best.Confidence {
			best = &resp.Matches[i]
		}
	}
	if best == nil || best.Confidence < r.config.ConfidenceThreshold {
		step.Reasoning = "no candidate cleared the confidence threshold"
		if best != nil {
			step.Confidence = best.Confidence
			step.Reasoning = best.Reasoning
		}
		return nil, step
	}

	for _, c := range candidates {
		if c.ID == best.ClusterID {
			step.ChosenClusterID = c.ID
			step.ChosenClusterName = c.Metadata.CanonicalName
			step.Confidence = best.Confidence
			step.Reasoning = best.Reasoning
			return c, step
		}
	}

	step.Reasoning = fmt.Sprintf("oracle chose unknown cluster %s", best.ClusterID)
	return nil, step
}

// selectFragments loads the leaf's fragments and asks the oracle for a
// single ranked top-k selection in one call
func (r *Retriever) selectFragments(ctx context.Context, query string, leaf *models.Cluster, path []string) ([]models.RankedFragment, int) {
	fragments, err := r.loadFragments(leaf)
	if err != nil {
		log.Printf("Warning: failed to load fragments for cluster %s: %v", leaf.ID, err)
		return []models.RankedFragment{}, 0
	}
	if len(fragments) == 0 {
		return []models.RankedFragment{}, 0
	}

	candidates := make([]llm.FragmentCandidate, len(fragments))
	byID := make(map[int64]models.Fragment, len(fragments))
	for i, f := range fragments {
		candidates[i] = llm.FragmentCandidate{FragmentID: f.ID, Text: f.Text}
		byID[f.ID] = f
	}

	topK := r.config.TopK
	if topK > len(fragments) {
		topK = len(fragments)
	}

	resp, err := r.oracle.SelectFragments(ctx, query, candidates, topK)
	if err != nil {
		log.Printf("Warning: fragment selection failed for cluster %s: %v", leaf.ID, err)
		return []models.RankedFragment{}, 1
	}

	ranked := make([]models.RankedFragment, 0, len(resp.Selections))
	for _, sel := range resp.Selections {
		f := byID[sel.FragmentID]
		ranked = append(ranked, models.RankedFragment{
			FragmentID:  f.ID,
			Text:        f.Text,
			Confidence:  sel.Confidence,
			Reasoning:   sel.Reasoning,
			ClusterPath: append([]string(nil), path...),
		})
	}
	return ranked, 1
}

// loadFragments returns the leaf's fragments, fetching text from the
// chunk store when the cluster is in lazy mode
func (r *Retriever) loadFragments(leaf *models.Cluster) ([]models.Fragment, error) {
	if len(leaf.Fragments) > 0 {
		return leaf.Fragments, nil
	}
	if len(leaf.ChunkIDs) == 0 {
		return nil, nil
	}
	if r.chunks == nil {
		return nil, fmt.Errorf("cluster %s is in lazy mode but no chunk store is configured", leaf.ID)
	}
	return r.chunks.GetMany(leaf.ChunkIDs)
}
