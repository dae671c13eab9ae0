package merging

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/pkg/errors"
)

// MaxClusterHops bounds cluster pointer chasing. Links always point at a root, so a healthy
// chain is one hop long.
const MaxClusterHops = 32

var ErrClusterCycle = errors.New("cluster pointer cycle")

// LookupFunc loads a record by id.
type LookupFunc func(ctx context.Context, id string) (models.Business, error)

// ResolveCluster follows cluster pointers from start to the canonical record of its cluster.
func ResolveCluster(ctx context.Context, start models.Business, lookup LookupFunc) (models.Business, error) {
	current := start
	visited := map[string]bool{current.ID: true}

	for hop := 0; !current.IsCanonical(); hop++ {
		if hop >= MaxClusterHops {
			return models.Business{}, errors.Wrapf(ErrClusterCycle, "exceeded %d hops from %s", MaxClusterHops, start.ID)
		}
		next, err := lookup(ctx, current.ClusterID)
		if err != nil {
			return models.Business{}, errors.Wrapf(err, "failed to load cluster %s", current.ClusterID)
		}
		if visited[next.ID] {
			return models.Business{}, errors.Wrap(ErrClusterCycle, fmt.Sprintf("revisited %s from %s", next.ID, start.ID))
		}
		visited[next.ID] = true
		current = next
	}
	return current, nil
}

// Link points child at root's cluster. The returned patch is empty when the link already holds.
func Link(root, child models.Business) models.BusinessPatch {
	target := root.ClusterID
	if target == "" {
		target = root.ID
	}
	if child.ClusterID == target {
		return models.BusinessPatch{}
	}
	return models.BusinessPatch{ClusterID: &target}
}
