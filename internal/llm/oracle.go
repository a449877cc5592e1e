// ABOUTME: Completion oracle contract shared by clustering, tree building and retrieval
// ABOUTME: Each call site has a closed request/response schema checked at the boundary
package llm

import (
	"context"
	"errors"
	"fmt"

	"strata/internal/models"
)

// Oracle is the single intelligence primitive of the system. All four call
// sites go through the same structured-completion mechanism; only the
// schema and prompt differ. Implementations own their retry policy.
type Oracle interface {
	// MatchClusters asks for a ranked list of candidate matches for a piece
	// of text, with confidences and reasoning, plus an optional signal that
	// a brand-new cluster is needed.
	MatchClusters(ctx context.Context, text string, candidates []ClusterSummary) (*MatchResponse, error)

	// SynthesizeMetadata drafts metadata for a new cluster from raw text.
	SynthesizeMetadata(ctx context.Context, text string) (*models.ClusterMetadata, error)

	// SummarizeChildren drafts metadata for a parent cluster from the
	// names, tags and descriptions of its grouped children.
	SummarizeChildren(ctx context.Context, children []ClusterSummary) (*models.ClusterMetadata, error)

	// SelectFragments ranks the fragments of a leaf cluster against a
	// query in one call, returning at most topK selections.
	SelectFragments(ctx context.Context, query string, fragments []FragmentCandidate, topK int) (*SelectResponse, error)
}

// ClusterSummary is the compact view of an existing cluster presented to
// the oracle as a match candidate: name, tags, first keywords, and a
// truncated description.
type ClusterSummary struct {
	ClusterID   string   `json:"cluster_id"`
	Name        string   `json:"name"`
	Tags        []string `json:"tags,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ClusterMatch is one ranked candidate returned by a match call
type ClusterMatch struct {
	ClusterID  string  `json:"cluster_id"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// MatchResponse is the structured reply to a match call
type MatchResponse struct {
	Matches         []ClusterMatch          `json:"matches"`
	NeedsNewCluster bool                    `json:"needs_new_cluster"`
	NewCluster      *models.ClusterMetadata `json:"new_cluster,omitempty"`
}

// FragmentCandidate is one fragment offered for top-k selection
type FragmentCandidate struct {
	FragmentID int64  `json:"fragment_id"`
	Text       string `json:"text"`
}

// FragmentSelection is one ranked pick from a selection call
type FragmentSelection struct {
	FragmentID int64   `json:"fragment_id"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// SelectResponse is the structured reply to a top-k selection call
type SelectResponse struct {
	Selections []FragmentSelection `json:"selections"`
}

// OracleError marks a failure of the completion oracle: a service error,
// a timeout, or a reply that does not conform to the expected schema.
// Callers recover from it locally instead of aborting the run.
type OracleError struct {
	Op  string
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// IsOracleError reports whether err is (or wraps) an oracle failure
func IsOracleError(err error) bool {
	var oe *OracleError
	return errors.As(err, &oe)
}

// validateMatchResponse converts a non-conforming match reply into an
// oracle failure rather than propagating partially-typed data. The
// candidate set closes the id space: a match naming an unknown cluster is
// a schema violation.
func validateMatchResponse(resp *MatchResponse, candidates []ClusterSummary) error {
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ClusterID] = true
	}
	for _, m := range resp.Matches {
		if m.ClusterID == "" {
			return errors.New("match with empty cluster_id")
		}
		if !known[m.ClusterID] {
			return fmt.Errorf("match names unknown cluster %s", m.ClusterID)
		}
		if m.Confidence < 0 || m.Confidence > 1 {
			return fmt.Errorf("match confidence %f outside [0,1]", m.Confidence)
		}
	}
	if resp.NewCluster != nil && resp.NewCluster.CanonicalName == "" {
		return errors.New("new cluster draft missing canonical_name")
	}
	return nil
}

// validateMetadata checks a metadata synthesis reply
func validateMetadata(meta *models.ClusterMetadata) error {
	if meta.CanonicalName == "" {
		return errors.New("metadata missing canonical_name")
	}
	return nil
}

// validateSelectResponse checks a top-k selection reply against the
// offered fragment set
func validateSelectResponse(resp *SelectResponse, fragments []FragmentCandidate) error {
	known := make(map[int64]bool, len(fragments))
	for _, f := range fragments {
		known[f.FragmentID] = true
	}
	for _, s := range resp.Selections {
		if !known[s.FragmentID] {
			return fmt.Errorf("selection names unknown fragment %d", s.FragmentID)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			return fmt.Errorf("selection confidence %f outside [0,1]", s.Confidence)
		}
	}
	return nil
}
