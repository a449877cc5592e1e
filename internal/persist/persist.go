// ABOUTME: Serialization of clustering results across two physical layouts
// ABOUTME: Compact single-document JSON, or split structure + chunk store file
package persist

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"strata/internal/models"
	"strata/internal/store"
	"strata/internal/store/sqlite"
)

// Mode selects the physical layout
type Mode string

const (
	// ModeAuto picks split once the corpus passes SplitThreshold fragments
	ModeAuto Mode = "auto"
	// ModeCompact writes one self-contained JSON document
	ModeCompact Mode = "compact"
	// ModeSplit extracts fragment text into a chunk store file next to a
	// compressed structure document
	ModeSplit Mode = "split"
)

// SplitThreshold is the fragment count past which auto mode switches to
// the split layout; inline fragment text dominates file size beyond it.
const SplitThreshold = 1000

// formatVersion identifies the persisted document format
const formatVersion = "1.0"

// gzip magic bytes, used to sniff compressed compact files on load
var gzipMagic = []byte{0x1f, 0x8b}

// SaveOptions controls how a result is written
type SaveOptions struct {
	Mode     Mode
	Compress bool // compact layout only; split structures are always compressed
}

// envelope wraps a persisted result with format metadata
type envelope struct {
	Version string                   `json:"version"`
	SavedAt time.Time                `json:"saved_at"`
	Result  *models.ClusteringResult `json:"result"`
}

// StructurePath returns the structure-document path of the split layout
func StructurePath(base string) string {
	return base + ".structure.json.gz"
}

// ChunksPath returns the chunk-store path of the split layout
func ChunksPath(base string) string {
	return base + ".chunks.db"
}

// Save writes a clustering result to path using the requested layout.
// In auto mode the layout is chosen by total fragment count.
func Save(result *models.ClusteringResult, path string, opts SaveOptions) error {
	mode := opts.Mode
	if mode == "" {
		mode = ModeAuto
	}

	switch mode {
	case ModeAuto:
		if result.TotalFragments() > SplitThreshold {
			return saveSplit(result, path)
		}
		return saveCompact(result, path, opts.Compress)
	case ModeCompact:
		return saveCompact(result, path, opts.Compress)
	case ModeSplit:
		return saveSplit(result, path)
	default:
		return fmt.Errorf("unknown persistence mode %q", mode)
	}
}

// Load reads a result saved by Save, auto-detecting the layout by probing
// for the split structure + chunk-store pair before falling back to a
// compact file.
//
// On the split path, lazy=false fully materializes fragments back into
// the clusters and returns a nil store; lazy=true leaves the clusters in
// chunk-id mode and returns an open read-only chunk store handle the
// caller must close.
func Load(path string, lazy bool) (*models.ClusteringResult, store.ChunkStore, error) {
	if isSplit(path) {
		return loadSplit(path, lazy)
	}
	result, err := loadCompact(path)
	return result, nil, err
}

// isSplit probes for the structure + chunk-store file pair
func isSplit(path string) bool {
	if _, err := os.Stat(StructurePath(path)); err != nil {
		return false
	}
	if _, err := os.Stat(ChunksPath(path)); err != nil {
		return false
	}
	return true
}

// saveCompact writes the full result as one JSON document, optionally
// gzip-compressed
func saveCompact(result *models.ClusteringResult, path string, compress bool) error {
	doc := envelope{Version: formatVersion, SavedAt: time.Now().UTC(), Result: result}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if compress || strings.HasSuffix(path, ".gz") {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return fmt.Errorf("failed to compress result: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to compress result: %w", err)
		}
		data = buf.Bytes()
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	return nil
}

// loadCompact reads a compact document, sniffing for gzip compression
func loadCompact(path string) (*models.ClusteringResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	if bytes.HasPrefix(data, gzipMagic) {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed result: %w", err)
		}
		defer gz.Close()
		if data, err = io.ReadAll(gz); err != nil {
			return nil, fmt.Errorf("failed to decompress result: %w", err)
		}
	}

	var doc envelope
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	if doc.Result == nil {
		return nil, fmt.Errorf("result file %s holds no result", path)
	}
	return doc.Result, nil
}

// saveSplit extracts fragment text into a chunk store file and writes the
// remaining structure as a compressed JSON document
func saveSplit(result *models.ClusteringResult, base string) error {
	chunksPath := ChunksPath(base)
	// A fresh store per save keeps the pair self-consistent.
	if err := os.Remove(chunksPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace chunk store: %w", err)
	}

	chunks, err := sqlite.Open(chunksPath)
	if err != nil {
		return fmt.Errorf("failed to create chunk store: %w", err)
	}
	defer chunks.Close()

	stripped, fragments := stripFragments(result)
	if err := chunks.PutMany(fragments); err != nil {
		return fmt.Errorf("failed to persist fragments: %w", err)
	}

	doc := envelope{Version: formatVersion, SavedAt: time.Now().UTC(), Result: stripped}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal structure: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return fmt.Errorf("failed to compress structure: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress structure: %w", err)
	}

	if err := os.WriteFile(StructurePath(base), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write structure file: %w", err)
	}
	return nil
}

// loadSplit reads the structure document and either materializes
// fragments eagerly or hands back an open chunk store for lazy access
func loadSplit(base string, lazy bool) (*models.ClusteringResult, store.ChunkStore, error) {
	data, err := os.ReadFile(StructurePath(base))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read structure file: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open structure file: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decompress structure: %w", err)
	}

	var doc envelope
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal structure: %w", err)
	}
	if doc.Result == nil {
		return nil, nil, fmt.Errorf("structure file %s holds no result", StructurePath(base))
	}

	if lazy {
		chunks, err := sqlite.OpenReadOnly(ChunksPath(base))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open chunk store: %w", err)
		}
		return doc.Result, chunks, nil
	}

	chunks, err := sqlite.OpenReadOnly(ChunksPath(base))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open chunk store: %w", err)
	}
	defer chunks.Close()

	if err := hydrateFragments(doc.Result, chunks); err != nil {
		return nil, nil, err
	}
	return doc.Result, nil, nil
}

// stripFragments returns a copy of the result whose leaf clusters carry
// chunk ids instead of inline fragments, plus the extracted fragments
func stripFragments(result *models.ClusteringResult) (*models.ClusteringResult, []models.Fragment) {
	seen := make(map[int64]bool)
	var fragments []models.Fragment

	cloneCluster := func(c *models.Cluster) *models.Cluster {
		clone := *c
		if len(c.Fragments) > 0 {
			clone.Fragments = nil
			clone.ChunkIDs = make([]int64, 0, len(c.Fragments))
			for _, f := range c.Fragments {
				clone.ChunkIDs = append(clone.ChunkIDs, f.ID)
				if !seen[f.ID] {
					seen[f.ID] = true
					fragments = append(fragments, f)
				}
			}
		}
		return &clone
	}

	clones := make(map[string]*models.Cluster)
	stripped := &models.ClusteringResult{
		Assignments:        result.Assignments,
		FragmentsProcessed: result.FragmentsProcessed,
		OracleCalls:        result.OracleCalls,
	}
	for _, c := range result.Clusters {
		clone := cloneCluster(c)
		clones[clone.ID] = clone
		stripped.Clusters = append(stripped.Clusters, clone)
	}

	if result.Tree != nil {
		tree := models.NewClusterTree()
		for _, level := range result.Tree.Levels() {
			for _, c := range result.Tree.ClustersAtLevel(level) {
				clone, ok := clones[c.ID]
				if !ok {
					clone = cloneCluster(c)
					clones[clone.ID] = clone
				}
				tree.AddCluster(clone)
			}
		}
		tree.RootClusterIDs = append([]string(nil), result.Tree.RootClusterIDs...)
		stripped.Tree = tree
	}

	return stripped, fragments
}

// hydrateFragments materializes fragment text back into every leaf
// cluster that is in chunk-id mode
func hydrateFragments(result *models.ClusteringResult, chunks store.ChunkStore) error {
	hydrate := func(c *models.Cluster) error {
		if !c.IsLeaf() || len(c.ChunkIDs) == 0 {
			return nil
		}
		fragments, err := chunks.GetMany(c.ChunkIDs)
		if err != nil {
			return fmt.Errorf("failed to load fragments for cluster %s: %w", c.ID, err)
		}
		c.Fragments = fragments
		c.ChunkIDs = nil
		return nil
	}

	for _, c := range result.Clusters {
		if err := hydrate(c); err != nil {
			return err
		}
	}
	if result.Tree != nil {
		for _, c := range result.Tree.ClustersByID {
			if err := hydrate(c); err != nil {
				return err
			}
		}
	}
	return nil
}
