// ABOUTME: Pipeline wires flat clustering, tree building and retrieval together
// ABOUTME: Thin composition layer; all real decisions live in the components
package core

import (
	"context"
	"fmt"

	"strata/internal/llm"
	"strata/internal/models"
	"strata/internal/store"
)

// PipelineConfig bundles the per-run configuration of all three stages
type PipelineConfig struct {
	Clustering models.ClusteringConfig
	Tree       models.TreeConfig
	Retrieval  models.RetrievalConfig
}

// DefaultPipelineConfig returns the defaults for all stages
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Clustering: models.DefaultClusteringConfig(),
		Tree:       models.DefaultTreeConfig(),
		Retrieval:  models.DefaultRetrievalConfig(),
	}
}

// Validate surfaces configuration errors before any oracle call
func (c PipelineConfig) Validate() error {
	if err := c.Clustering.Validate(); err != nil {
		return err
	}
	if err := c.Tree.Validate(); err != nil {
		return err
	}
	return c.Retrieval.Validate()
}

// Pipeline composes the clusterer, tree builder and retriever over one
// oracle and one chunk store. A whole session may run on a background
// goroutine, but within a session everything is strictly sequential.
type Pipeline struct {
	oracle llm.Oracle
	chunks store.ChunkStore
	config PipelineConfig
}

// NewPipeline validates the configuration and creates a pipeline
func NewPipeline(oracle llm.Oracle, chunks store.ChunkStore, config PipelineConfig) (*Pipeline, error) {
	if oracle == nil {
		return nil, fmt.Errorf("oracle is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Pipeline{oracle: oracle, chunks: chunks, config: config}, nil
}

// Organize clusters the fragments, builds the tree over the resulting
// leaf clusters, and attaches it to the result
func (p *Pipeline) Organize(ctx context.Context, fragments []models.Fragment) (*models.ClusteringResult, error) {
	clusterer, err := NewFlatClusterer(p.oracle, p.chunks, p.config.Clustering)
	if err != nil {
		return nil, err
	}

	result, err := clusterer.Cluster(ctx, fragments)
	if err != nil {
		return result, err
	}

	builder, err := NewTreeBuilder(p.oracle, p.config.Tree)
	if err != nil {
		return nil, err
	}

	tree, err := builder.Build(ctx, result.LeafClusters())
	if err != nil {
		return result, err
	}
	result.Tree = tree
	result.OracleCalls += builder.OracleCalls()

	return result, nil
}

// Retrieve answers a query against a previously organized result
func (p *Pipeline) Retrieve(ctx context.Context, result *models.ClusteringResult, query string) (*models.RetrievalResult, error) {
	if result == nil || result.Tree == nil {
		return nil, fmt.Errorf("result has no attached tree")
	}

	retriever, err := NewRetriever(p.oracle, p.chunks, p.config.Retrieval)
	if err != nil {
		return nil, err
	}
	return retriever.Retrieve(ctx, result.Tree, query)
}
