// ABOUTME: Deterministic oracle doubles shared by the core package tests
// ABOUTME: A scripted stub for fine-grained control plus a keyword topic oracle
package core

import (
	"context"
	"sort"
	"strings"

	"strata/internal/llm"
	"strata/internal/models"
)

// stubOracle lets each test script the oracle's replies per call site.
// Unset functions fall back to neutral defaults.
type stubOracle struct {
	matchFn      func(text string, candidates []llm.ClusterSummary) (*llm.MatchResponse, error)
	synthesizeFn func(text string) (*models.ClusterMetadata, error)
	summarizeFn  func(children []llm.ClusterSummary) (*models.ClusterMetadata, error)
	selectFn     func(query string, fragments []llm.FragmentCandidate, topK int) (*llm.SelectResponse, error)

	matchCalls     int
	synthCalls     int
	summarizeCalls int
	selectCalls    int
}

func (o *stubOracle) MatchClusters(ctx context.Context, text string, candidates []llm.ClusterSummary) (*llm.MatchResponse, error) {
	o.matchCalls++
	if o.matchFn != nil {
		return o.matchFn(text, candidates)
	}
	return &llm.MatchResponse{}, nil
}

func (o *stubOracle) SynthesizeMetadata(ctx context.Context, text string) (*models.ClusterMetadata, error) {
	o.synthCalls++
	if o.synthesizeFn != nil {
		return o.synthesizeFn(text)
	}
	return &models.ClusterMetadata{CanonicalName: "synthesized"}, nil
}

func (o *stubOracle) SummarizeChildren(ctx context.Context, children []llm.ClusterSummary) (*models.ClusterMetadata, error) {
	o.summarizeCalls++
	if o.summarizeFn != nil {
		return o.summarizeFn(children)
	}
	name := "group"
	if len(children) > 0 {
		name = "group of " + children[0].Name
	}
	return &models.ClusterMetadata{CanonicalName: name}, nil
}

func (o *stubOracle) SelectFragments(ctx context.Context, query string, fragments []llm.FragmentCandidate, topK int) (*llm.SelectResponse, error) {
	o.selectCalls++
	if o.selectFn != nil {
		return o.selectFn(query, fragments, topK)
	}
	resp := &llm.SelectResponse{}
	for i, f := range fragments {
		if i >= topK {
			break
		}
		resp.Selections = append(resp.Selections, llm.FragmentSelection{FragmentID: f.FragmentID, Confidence: 0.8})
	}
	return resp, nil
}

// topicOracle classifies texts by keyword lookup, giving fully
// deterministic end-to-end runs without a live completion service.
type topicOracle struct {
	topics map[string][]string
	calls  int
}

func newTopicOracle() *topicOracle {
	return &topicOracle{
		topics: map[string][]string{
			"cooking": {"braise", "rib", "sauce", "roast", "knife", "simmer", "oven", "stock pot", "marinade", "saute"},
			"finance": {"budget", "invest", "index fund", "tax", "interest", "saving", "loan", "retirement", "portfolio", "dividend"},
		},
	}
}

func (o *topicOracle) topicOf(text string) string {
	lower := strings.ToLower(text)
	for name, words := range o.topics {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return name
			}
		}
	}
	return "misc"
}

func (o *topicOracle) MatchClusters(ctx context.Context, text string, candidates []llm.ClusterSummary) (*llm.MatchResponse, error) {
	o.calls++
	topic := o.topicOf(text)
	for _, c := range candidates {
		if c.Name == topic {
			return &llm.MatchResponse{Matches: []llm.ClusterMatch{
				{ClusterID: c.ClusterID, Confidence: 0.95, Reasoning: "keyword overlap with " + topic},
			}}, nil
		}
	}
	return &llm.MatchResponse{
		NeedsNewCluster: true,
		NewCluster: &models.ClusterMetadata{
			CanonicalName: topic,
			Description:   "fragments about " + topic,
		},
	}, nil
}

func (o *topicOracle) SynthesizeMetadata(ctx context.Context, text string) (*models.ClusterMetadata, error) {
	o.calls++
	topic := o.topicOf(text)
	return &models.ClusterMetadata{
		CanonicalName: topic,
		Description:   "fragments about " + topic,
	}, nil
}

func (o *topicOracle) SummarizeChildren(ctx context.Context, children []llm.ClusterSummary) (*models.ClusterMetadata, error) {
	o.calls++
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name
	}
	return &models.ClusterMetadata{CanonicalName: "group of " + strings.Join(names, ", ")}, nil
}

func (o *topicOracle) SelectFragments(ctx context.Context, query string, fragments []llm.FragmentCandidate, topK int) (*llm.SelectResponse, error) {
	o.calls++
	queryWords := strings.Fields(strings.ToLower(query))

	type scored struct {
		id    int64
		score int
	}
	ranked := make([]scored, 0, len(fragments))
	for _, f := range fragments {
		lower := strings.ToLower(f.Text)
		score := 0
		for _, w := range queryWords {
			if len(w) > 3 && strings.Contains(lower, w) {
				score++
			}
		}
		ranked = append(ranked, scored{id: f.FragmentID, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	resp := &llm.SelectResponse{}
	for i, r := range ranked {
		if i >= topK {
			break
		}
		conf := 0.5 + 0.1*float64(r.score)
		if conf > 0.95 {
			conf = 0.95
		}
		resp.Selections = append(resp.Selections, llm.FragmentSelection{FragmentID: r.id, Confidence: conf})
	}
	return resp, nil
}
