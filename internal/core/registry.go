// ABOUTME: Append-only arena of clusters created during a run
// ABOUTME: Every oracle decision sees all prior decisions through this registry
package core

import (
	"fmt"

	"strata/internal/models"
)

// clusterRegistry is the single shared registry of clusters growing across
// sequential oracle calls. It only ever grows: clusters are added once and
// never removed or duplicated, so each matching call is informed by every
// cluster created before it.
type clusterRegistry struct {
	order []string
	byID  map[string]*models.Cluster
}

func newClusterRegistry() *clusterRegistry {
	return &clusterRegistry{
		byID: make(map[string]*models.Cluster),
	}
}

// add registers a cluster; duplicate ids are a programming error
func (r *clusterRegistry) add(c *models.Cluster) error {
	if _, exists := r.byID[c.ID]; exists {
		return fmt.Errorf("cluster %s already registered", c.ID)
	}
	r.order = append(r.order, c.ID)
	r.byID[c.ID] = c
	return nil
}

// get returns the cluster with the given id, or nil
func (r *clusterRegistry) get(id string) *models.Cluster {
	return r.byID[id]
}

// all returns every cluster in creation order
func (r *clusterRegistry) all() []*models.Cluster {
	clusters := make([]*models.Cluster, 0, len(r.order))
	for _, id := range r.order {
		clusters = append(clusters, r.byID[id])
	}
	return clusters
}

// len returns the number of registered clusters
func (r *clusterRegistry) len() int {
	return len(r.order)
}
