// ABOUTME: Human-readable YAML export of a clustering result
// ABOUTME: A reporting surface only; Save/Load own the round-trippable formats
package persist

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"strata/internal/models"
)

// ExportData is the complete exportable view of a result
type ExportData struct {
	Version     string          `yaml:"version"`
	ExportedAt  string          `yaml:"exported_at"`
	Tool        string          `yaml:"tool"`
	Clusters    []ExportCluster `yaml:"clusters"`
	MaxDepth    int             `yaml:"max_depth"`
	TotalChunks int             `yaml:"total_chunks"`
	OracleCalls int             `yaml:"oracle_calls"`
}

// ExportCluster is one cluster in the export, children inline by id
type ExportCluster struct {
	ID          string   `yaml:"id"`
	Level       int      `yaml:"level"`
	Name        string   `yaml:"name"`
	Tags        []string `yaml:"tags,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
	Description string   `yaml:"description,omitempty"`
	ParentID    string   `yaml:"parent_id,omitempty"`
	Children    []string `yaml:"children,omitempty"`
	ChunkCount  int      `yaml:"chunk_count"`
	FragmentIDs []int64  `yaml:"fragment_ids,omitempty"`
}

// ExportYAML writes a result as YAML to w
func ExportYAML(result *models.ClusteringResult, w io.Writer) error {
	data := &ExportData{
		Version:     formatVersion,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Tool:        "strata",
		OracleCalls: result.OracleCalls,
	}

	appendCluster := func(c *models.Cluster) {
		ec := ExportCluster{
			ID:          c.ID,
			Level:       c.Level,
			Name:        c.Metadata.CanonicalName,
			Tags:        c.Metadata.Tags,
			Keywords:    c.Metadata.Keywords,
			Description: c.Metadata.Description,
			ParentID:    c.ParentID,
			Children:    c.ChildClusterIDs,
			ChunkCount:  c.ChunkCount,
		}
		if c.IsLeaf() {
			ec.FragmentIDs = c.FragmentIDs()
		}
		data.Clusters = append(data.Clusters, ec)
	}

	if result.Tree != nil {
		data.MaxDepth = result.Tree.MaxDepth
		data.TotalChunks = result.Tree.TotalChunks
		for _, level := range result.Tree.Levels() {
			for _, c := range result.Tree.ClustersAtLevel(level) {
				appendCluster(c)
			}
		}
	} else {
		for _, c := range result.Clusters {
			appendCluster(c)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return enc.Close()
}
