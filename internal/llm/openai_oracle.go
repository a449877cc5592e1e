// ABOUTME: OpenAI-backed completion oracle for cluster matching and metadata synthesis
// ABOUTME: One structured-completion helper with retry backs all four call sites
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"strata/internal/models"
	"strata/internal/util"
)

const (
	// DefaultChatModel is the default model for structured completions
	DefaultChatModel = "gpt-4o-mini"

	// maxKeywordsInSummary bounds how many keywords of each cluster are
	// shown to the oracle, keeping the context compact
	maxKeywordsInSummary = 5

	// maxDescriptionChars bounds the description shown per candidate
	maxDescriptionChars = 160
)

// ClientConfig holds configuration for the OpenAI oracle
type ClientConfig struct {
	APIKey      string
	ChatModel   string
	Temperature float32
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// DefaultConfig returns the default oracle configuration
func DefaultConfig(apiKey string) *ClientConfig {
	chatModel := os.Getenv("STRATA_OPENAI_MODEL")
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	return &ClientConfig{
		APIKey:      apiKey,
		ChatModel:   chatModel,
		Temperature: 0.2,
		MaxRetries:  3,
		RetryDelay:  time.Second * 2,
		Timeout:     30 * time.Second,
	}
}

// OpenAIOracle implements Oracle against the OpenAI chat completion API
// with retry logic and schema-conformance checking
type OpenAIOracle struct {
	client      *openai.Client
	chatModel   string
	temperature float32
	maxRetries  int
	retryDelay  time.Duration
	timeout     time.Duration
}

// NewOpenAIOracle creates an oracle with the given API key and defaults
func NewOpenAIOracle(apiKey string) (*OpenAIOracle, error) {
	return NewOpenAIOracleWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIOracleWithConfig creates an oracle with custom configuration
func NewOpenAIOracleWithConfig(config *ClientConfig) (*OpenAIOracle, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	return &OpenAIOracle{
		client:      openai.NewClient(config.APIKey),
		chatModel:   config.ChatModel,
		temperature: config.Temperature,
		maxRetries:  config.MaxRetries,
		retryDelay:  config.RetryDelay,
		timeout:     config.Timeout,
	}, nil
}

// complete sends one structured completion request and unmarshals the JSON
// reply into out, retrying with backoff on service errors and malformed
// replies. Any terminal failure comes back as an OracleError.
func (o *OpenAIOracle) complete(ctx context.Context, op, systemPrompt, userPrompt string, out any) error {
	var lastErr error

	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(util.CalculateBackoff(o.retryDelay, attempt))
		}

		callCtx, cancel := context.WithTimeout(ctx, o.timeout)

		resp, err := o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: o.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: o.temperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})

		if err != nil {
			cancel()
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}

		if len(resp.Choices) == 0 {
			cancel()
			lastErr = fmt.Errorf("attempt %d: no completion choices returned", attempt+1)
			continue
		}

		content := resp.Choices[0].Message.Content
		if err := json.Unmarshal([]byte(content), out); err != nil {
			cancel()
			lastErr = fmt.Errorf("attempt %d: failed to parse JSON: %w", attempt+1, err)
			continue
		}

		cancel()
		return nil
	}

	return &OracleError{Op: op, Err: fmt.Errorf("failed after %d attempts: %w", o.maxRetries+1, lastErr)}
}

// MatchClusters asks the oracle to rank candidate clusters for a text
func (o *OpenAIOracle) MatchClusters(ctx context.Context, text string, candidates []ClusterSummary) (*MatchResponse, error) {
	systemPrompt := `You are a semantic categorization assistant. Given a text and a list of existing clusters, decide which clusters the text belongs to.

Return ONLY a JSON object with:
- matches: array of {cluster_id, confidence, reasoning}, ranked by confidence (0.0-1.0), listing only clusters from the given candidates
- needs_new_cluster: boolean, true when no candidate fits well
- new_cluster: when needs_new_cluster is true, an object {canonical_name, tags, keywords, description} drafting the missing cluster`

	userPrompt := fmt.Sprintf("Text:\n%s\n\nExisting clusters:\n%s", text, formatSummaries(candidates))

	var resp MatchResponse
	if err := o.complete(ctx, "match", systemPrompt, userPrompt, &resp); err != nil {
		return nil, err
	}
	if err := validateMatchResponse(&resp, candidates); err != nil {
		return nil, &OracleError{Op: "match", Err: err}
	}
	return &resp, nil
}

// SynthesizeMetadata drafts metadata for a brand-new cluster from raw text
func (o *OpenAIOracle) SynthesizeMetadata(ctx context.Context, text string) (*models.ClusterMetadata, error) {
	systemPrompt := `You are a cluster naming assistant. Given a text, draft metadata for a new semantic cluster that would contain it.

Return ONLY a JSON object with: canonical_name (short, stable), tags (array of strings), keywords (array of strings), description (one or two sentences). Optional: summary, topic, synonyms.`

	userPrompt := fmt.Sprintf("Draft cluster metadata for this text:\n\n%s", text)

	var meta models.ClusterMetadata
	if err := o.complete(ctx, "synthesize", systemPrompt, userPrompt, &meta); err != nil {
		return nil, err
	}
	if err := validateMetadata(&meta); err != nil {
		return nil, &OracleError{Op: "synthesize", Err: err}
	}
	return &meta, nil
}

// SummarizeChildren drafts metadata for a parent cluster from its children
func (o *OpenAIOracle) SummarizeChildren(ctx context.Context, children []ClusterSummary) (*models.ClusterMetadata, error) {
	systemPrompt := `You are a cluster naming assistant. Given a group of related clusters, draft metadata for a parent cluster that covers all of them.

Return ONLY a JSON object with: canonical_name (short, stable, more general than the children), tags (array of strings), keywords (array of strings), description (one or two sentences). Optional: summary, topic, synonyms.`

	userPrompt := fmt.Sprintf("Draft parent metadata for these clusters:\n%s", formatSummaries(children))

	var meta models.ClusterMetadata
	if err := o.complete(ctx, "summarize", systemPrompt, userPrompt, &meta); err != nil {
		return nil, err
	}
	if err := validateMetadata(&meta); err != nil {
		return nil, &OracleError{Op: "summarize", Err: err}
	}
	return &meta, nil
}

// SelectFragments ranks a leaf's fragments against a query in one call
func (o *OpenAIOracle) SelectFragments(ctx context.Context, query string, fragments []FragmentCandidate, topK int) (*SelectResponse, error) {
	systemPrompt := fmt.Sprintf(`You are a retrieval assistant. Given a query and a list of text fragments, select the %d most relevant fragments.

Return ONLY a JSON object with:
- selections: array of {fragment_id, confidence, reasoning}, ranked by relevance, confidence in 0.0-1.0, listing only fragments from the given list`, topK)

	var sb strings.Builder
	for _, f := range fragments {
		fmt.Fprintf(&sb, "[%d] %s\n", f.FragmentID, f.Text)
	}
	userPrompt := fmt.Sprintf("Query: %s\n\nFragments:\n%s", query, sb.String())

	var resp SelectResponse
	if err := o.complete(ctx, "select", systemPrompt, userPrompt, &resp); err != nil {
		return nil, err
	}
	if err := validateSelectResponse(&resp, fragments); err != nil {
		return nil, &OracleError{Op: "select", Err: err}
	}
	if len(resp.Selections) > topK {
		resp.Selections = resp.Selections[:topK]
	}
	return &resp, nil
}

// Summarize converts a cluster into the compact candidate view shown to
// the oracle
func Summarize(c *models.Cluster) ClusterSummary {
	keywords := c.Metadata.Keywords
	if len(keywords) > maxKeywordsInSummary {
		keywords = keywords[:maxKeywordsInSummary]
	}
	return ClusterSummary{
		ClusterID:   c.ID,
		Name:        c.Metadata.CanonicalName,
		Tags:        c.Metadata.Tags,
		Keywords:    keywords,
		Description: truncate(c.Metadata.Description, maxDescriptionChars),
	}
}

// SummarizeAll converts a slice of clusters into candidate views
func SummarizeAll(clusters []*models.Cluster) []ClusterSummary {
	summaries := make([]ClusterSummary, len(clusters))
	for i, c := range clusters {
		summaries[i] = Summarize(c)
	}
	return summaries
}

// formatSummaries renders candidates one per line for the prompt
func formatSummaries(summaries []ClusterSummary) string {
	if len(summaries) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&sb, "- %s: %q", s.ClusterID, s.Name)
		if len(s.Tags) > 0 {
			fmt.Fprintf(&sb, " tags=%s", strings.Join(s.Tags, ","))
		}
		if len(s.Keywords) > 0 {
			fmt.Fprintf(&sb, " keywords=%s", strings.Join(s.Keywords, ","))
		}
		if s.Description != "" {
			fmt.Fprintf(&sb, " :: %s", s.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
