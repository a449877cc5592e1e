// ABOUTME: Tests for OpenAI oracle construction and candidate formatting
// ABOUTME: No network calls; covers config, summaries and truncation only
package llm

import (
	"strings"
	"testing"

	"strata/internal/models"
)

func TestNewOpenAIOracle_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIOracle(""); err == nil {
		t.Error("empty API key should be rejected")
	}
	oracle, err := NewOpenAIOracle("test-key")
	if err != nil {
		t.Fatalf("NewOpenAIOracle() error = %v", err)
	}
	if oracle.chatModel != DefaultChatModel {
		t.Errorf("chatModel = %q, want %q", oracle.chatModel, DefaultChatModel)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("test-key")
	if cfg.APIKey != "test-key" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "test-key")
	}
	if cfg.ChatModel != DefaultChatModel {
		t.Errorf("ChatModel = %q, want %q", cfg.ChatModel, DefaultChatModel)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
}

func TestDefaultConfig_ModelOverride(t *testing.T) {
	t.Setenv("STRATA_OPENAI_MODEL", "gpt-4o")
	cfg := DefaultConfig("test-key")
	if cfg.ChatModel != "gpt-4o" {
		t.Errorf("ChatModel = %q, want %q", cfg.ChatModel, "gpt-4o")
	}
}

func TestSummarize(t *testing.T) {
	c := models.NewCluster(0, models.ClusterMetadata{
		CanonicalName: "cooking",
		Tags:          []string{"food"},
		Keywords:      []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7"},
		Description:   strings.Repeat("x", 500),
	})

	s := Summarize(c)
	if s.ClusterID != c.ID {
		t.Errorf("ClusterID = %q, want %q", s.ClusterID, c.ID)
	}
	if s.Name != "cooking" {
		t.Errorf("Name = %q, want %q", s.Name, "cooking")
	}
	if len(s.Keywords) != maxKeywordsInSummary {
		t.Errorf("Keywords length = %d, want %d", len(s.Keywords), maxKeywordsInSummary)
	}
	if len(s.Description) != maxDescriptionChars {
		t.Errorf("Description length = %d, want %d", len(s.Description), maxDescriptionChars)
	}
	if !strings.HasSuffix(s.Description, "...") {
		t.Error("truncated description should end with ellipsis")
	}
}

func TestSummarizeAll(t *testing.T) {
	clusters := []*models.Cluster{
		models.NewCluster(0, models.ClusterMetadata{CanonicalName: "cooking"}),
		models.NewCluster(0, models.ClusterMetadata{CanonicalName: "finance"}),
	}
	summaries := SummarizeAll(clusters)
	if len(summaries) != 2 {
		t.Fatalf("SummarizeAll length = %d, want 2", len(summaries))
	}
	if summaries[0].Name != "cooking" || summaries[1].Name != "finance" {
		t.Error("summaries should preserve order")
	}
}

func TestFormatSummaries(t *testing.T) {
	if got := formatSummaries(nil); got != "(none)" {
		t.Errorf("formatSummaries(nil) = %q, want %q", got, "(none)")
	}

	out := formatSummaries([]ClusterSummary{
		{ClusterID: "cluster_aaa", Name: "cooking", Tags: []string{"food"}, Keywords: []string{"braise"}, Description: "kitchen topics"},
	})
	for _, want := range []string{"cluster_aaa", "cooking", "tags=food", "keywords=braise", "kitchen topics"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatSummaries output missing %q: %q", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"shorter than limit", "abc", 10, "abc"},
		{"exactly at limit", "abcde", 5, "abcde"},
		{"over limit", "abcdefghij", 8, "abcde..."},
		{"tiny limit", "abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}
