// ABOUTME: Tests for tree-guided retrieval and its navigation trace
// ABOUTME: Covers descent, threshold halts, lazy loading and top-k clamping
package core

import (
	"context"
	"errors"
	"testing"

	"strata/internal/llm"
	"strata/internal/models"
	"strata/internal/store"
)

// buildRetrievalTree returns a tree with one root over cooking and finance
// leaves, each holding three inline fragments.
func buildRetrievalTree() (*models.ClusterTree, *models.Cluster, *models.Cluster) {
	cooking := models.NewCluster(0, models.ClusterMetadata{CanonicalName: "cooking"})
	cooking.AddFragment(models.Fragment{ID: 1, Text: "braise short ribs low and slow"})
	cooking.AddFragment(models.Fragment{ID: 2, Text: "roast vegetables in a hot oven"})
	cooking.AddFragment(models.Fragment{ID: 3, Text: "sharpen a knife with a whetstone"})

	finance := models.NewCluster(0, models.ClusterMetadata{CanonicalName: "finance"})
	finance.AddFragment(models.Fragment{ID: 4, Text: "budget with the envelope method"})
	finance.AddFragment(models.Fragment{ID: 5, Text: "invest in a broad index fund"})
	finance.AddFragment(models.Fragment{ID: 6, Text: "max out retirement contributions"})

	root := models.NewCluster(1, models.ClusterMetadata{CanonicalName: "life topics"})
	root.AddChild(cooking)
	root.AddChild(finance)

	tree := models.NewClusterTree()
	tree.AddCluster(cooking)
	tree.AddCluster(finance)
	tree.AddCluster(root)
	tree.RootClusterIDs = []string{root.ID}

	return tree, cooking, finance
}

func TestNewRetriever_Validation(t *testing.T) {
	if _, err := NewRetriever(nil, nil, models.DefaultRetrievalConfig()); err == nil {
		t.Error("nil oracle should be rejected")
	}

	bad := models.DefaultRetrievalConfig()
	bad.TopK = 0
	if _, err := NewRetriever(&stubOracle{}, nil, bad); err == nil {
		t.Error("invalid config should be rejected")
	}
}

func TestRetriever_NoRoots(t *testing.T) {
	r, err := NewRetriever(&stubOracle{}, nil, models.DefaultRetrievalConfig())
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	if _, err := r.Retrieve(context.Background(), nil, "query"); err == nil {
		t.Error("nil tree should be rejected")
	}
	if _, err := r.Retrieve(context.Background(), models.NewClusterTree(), "query"); err == nil {
		t.Error("tree without roots should be rejected")
	}
}

func TestRetriever_TwoLevelDescent(t *testing.T) {
	tree, cooking, finance := buildRetrievalTree()
	root := tree.Roots()[0]

	oracle := &stubOracle{
		matchFn: func(text string, cands []llm.ClusterSummary) (*llm.MatchResponse, error) {
			// At the root level pick the root; below it pick cooking
			for _, c := range cands {
				if c.ClusterID == root.ID || c.ClusterID == cooking.ID {
					return &llm.MatchResponse{Matches: []llm.ClusterMatch{
						{ClusterID: c.ClusterID, Confidence: 0.9, Reasoning: "matches " + c.Name},
					}}, nil
				}
			}
			return &llm.MatchResponse{}, nil
		},
		selectFn: func(query string, fragments []llm.FragmentCandidate, topK int) (*llm.SelectResponse, error) {
			return &llm.SelectResponse{Selections: []llm.FragmentSelection{
				{FragmentID: 1, Confidence: 0.95, Reasoning: "it is about braising"},
			}}, nil
		},
	}

	r, err := NewRetriever(oracle, nil, models.DefaultRetrievalConfig())
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	result, err := r.Retrieve(context.Background(), tree, "how do I braise a short rib")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(result.Trace) != 2 {
		t.Fatalf("trace length = %d, want 2", len(result.Trace))
	}
	first, second := result.Trace[0], result.Trace[1]
	if first.Level != 1 || first.ChosenClusterID != root.ID {
		t.Errorf("first step = %+v, want root at level 1", first)
	}
	if len(first.Alternatives) != 1 {
		t.Errorf("first step alternatives = %v, want the single root", first.Alternatives)
	}
	if second.Level != 0 || second.ChosenClusterID != cooking.ID {
		t.Errorf("second step = %+v, want cooking at level 0", second)
	}
	if len(second.Alternatives) != 2 {
		t.Errorf("second step alternatives = %v, want both leaves", second.Alternatives)
	}
	for _, alt := range second.Alternatives {
		if alt != cooking.ID && alt != finance.ID {
			t.Errorf("unexpected alternative %s", alt)
		}
	}

	if len(result.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(result.Results))
	}
	hit := result.Results[0]
	if hit.FragmentID != 1 {
		t.Errorf("FragmentID = %d, want 1", hit.FragmentID)
	}
	if hit.Text != "braise short ribs low and slow" {
		t.Errorf("Text = %q", hit.Text)
	}
	if len(hit.ClusterPath) != 2 || hit.ClusterPath[0] != root.ID || hit.ClusterPath[1] != cooking.ID {
		t.Errorf("ClusterPath = %v, want [%s %s]", hit.ClusterPath, root.ID, cooking.ID)
	}
	if result.Stats.OracleCalls != 3 {
		t.Errorf("OracleCalls = %d, want 3", result.Stats.OracleCalls)
	}
	if result.Stats.ClustersExplored != 3 {
		t.Errorf("ClustersExplored = %d, want 3", result.Stats.ClustersExplored)
	}
}

func TestRetriever_BelowThresholdHaltsEmpty(t *testing.T) {
	tree, _, _ := buildRetrievalTree()
	oracle := &stubOracle{
		matchFn: func(text string, cands []llm.ClusterSummary) (*llm.MatchResponse, error) {
			return &llm.MatchResponse{Matches: []llm.ClusterMatch{
				{ClusterID: cands[0].ClusterID, Confidence: 0.1},
			}}, nil
		},
	}

	r, err := NewRetriever(oracle, nil, models.DefaultRetrievalConfig())
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	result, err := r.Retrieve(context.Background(), tree, "quantum entanglement")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(result.Results) != 0 {
		t.Errorf("results = %d, want 0", len(result.Results))
	}
	if len(result.Trace) != 1 {
		t.Fatalf("trace length = %d, want 1", len(result.Trace))
	}
	step := result.Trace[0]
	if step.ChosenClusterID != "" {
		t.Errorf("ChosenClusterID = %q, want empty for a failed step", step.ChosenClusterID)
	}
	if len(step.Alternatives) != 1 {
		t.Errorf("Alternatives = %v, want the considered root", step.Alternatives)
	}
}

func TestRetriever_OracleFailureHaltsEmpty(t *testing.T) {
	tree, _, _ := buildRetrievalTree()
	oracle := &stubOracle{
		matchFn: func(text string, cands []llm.ClusterSummary) (*llm.MatchResponse, error) {
			return nil, &llm.OracleError{Op: "match", Err: errors.New("service unavailable")}
		},
	}

	r, err := NewRetriever(oracle, nil, models.DefaultRetrievalConfig())
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	result, err := r.Retrieve(context.Background(), tree, "anything")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Results) != 0 {
		t.Errorf("results = %d, want 0", len(result.Results))
	}
	if len(result.Trace) != 1 || result.Trace[0].Reasoning == "" {
		t.Error("the failed step should still be traced with a reason")
	}
}

func TestRetriever_TopKClampedToLeafSize(t *testing.T) {
	tree, _, _ := buildRetrievalTree()

	var gotTopK int
	oracle := &stubOracle{
		matchFn: func(text string, cands []llm.ClusterSummary) (*llm.MatchResponse, error) {
			// Always descend toward the first candidate
			return &llm.MatchResponse{Matches: []llm.ClusterMatch{
				{ClusterID: cands[0].ClusterID, Confidence: 0.9},
			}}, nil
		},
		selectFn: func(query string, fragments []llm.FragmentCandidate, topK int) (*llm.SelectResponse, error) {
			gotTopK = topK
			return &llm.SelectResponse{}, nil
		},
	}

	cfg := models.RetrievalConfig{ConfidenceThreshold: 0.4, TopK: 10}
	r, err := NewRetriever(oracle, nil, cfg)
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	if _, err := r.Retrieve(context.Background(), tree, "braising"); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if gotTopK != 3 {
		t.Errorf("topK passed to oracle = %d, want 3 (leaf size)", gotTopK)
	}
}

func TestRetriever_LazyLeafLoadsFromStore(t *testing.T) {
	chunks := store.NewMemoryStore()
	if err := chunks.PutMany([]models.Fragment{
		{ID: 1, Text: "braise short ribs low and slow"},
		{ID: 2, Text: "roast vegetables in a hot oven"},
	}); err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}

	leaf := models.NewCluster(0, models.ClusterMetadata{CanonicalName: "cooking"})
	leaf.AddChunkID(1)
	leaf.AddChunkID(2)

	tree := models.NewClusterTree()
	tree.AddCluster(leaf)
	tree.RootClusterIDs = []string{leaf.ID}

	oracle := &stubOracle{
		matchFn: func(text string, cands []llm.ClusterSummary) (*llm.MatchResponse, error) {
			return &llm.MatchResponse{Matches: []llm.ClusterMatch{
				{ClusterID: cands[0].ClusterID, Confidence: 0.9},
			}}, nil
		},
		selectFn: func(query string, fragments []llm.FragmentCandidate, topK int) (*llm.SelectResponse, error) {
			return &llm.SelectResponse{Selections: []llm.FragmentSelection{
				{FragmentID: 1, Confidence: 0.9},
			}}, nil
		},
	}

	r, err := NewRetriever(oracle, chunks, models.DefaultRetrievalConfig())
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	result, err := r.Retrieve(context.Background(), tree, "braising")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(result.Results))
	}
	if result.Results[0].Text != "braise short ribs low and slow" {
		t.Errorf("Text = %q, want the stored fragment text", result.Results[0].Text)
	}
}

func TestRetriever_LazyLeafWithoutStore(t *testing.T) {
	leaf := models.NewCluster(0, models.ClusterMetadata{CanonicalName: "cooking"})
	leaf.AddChunkID(1)

	tree := models.NewClusterTree()
	tree.AddCluster(leaf)
	tree.RootClusterIDs = []string{leaf.ID}

	oracle := &stubOracle{
		matchFn: func(text string, cands []llm.ClusterSummary) (*llm.MatchResponse, error) {
			return &llm.MatchResponse{Matches: []llm.ClusterMatch{
				{ClusterID: cands[0].ClusterID, Confidence: 0.9},
			}}, nil
		},
	}

	r, err := NewRetriever(oracle, nil, models.DefaultRetrievalConfig())
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	// Missing chunk store degrades to an empty result, not an error
	result, err := r.Retrieve(context.Background(), tree, "braising")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Results) != 0 {
		t.Errorf("results = %d, want 0", len(result.Results))
	}
}
