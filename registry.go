package simclust

import (
	"fmt"
	"math"
)

// Registry assigns each item a stable id in input order.
//
// Every other component refers to items by id. The original values are only
// looked up by oracles and when final clusters are materialized.
type Registry[T any] struct {
	items []T
}

// NewRegistry creates a registry over items. The slice is not copied and must
// not be modified for the lifetime of the registry.
func NewRegistry[T any](items []T) (*Registry[T], error) {
	if uint64(len(items)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyItems, len(items))
	}
	return &Registry[T]{items: items}, nil
}

// Len returns the number of registered items
func (r *Registry[T]) Len() int {
	return len(r.items)
}

// Item returns the value registered under id
func (r *Registry[T]) Item(id uint32) T {
	return r.items[id]
}

// Contains reports whether id is a registered id
func (r *Registry[T]) Contains(id uint32) bool {
	return int(id) < len(r.items)
}

// IDs returns all ids in ascending order
func (r *Registry[T]) IDs() []uint32 {
	ids := make([]uint32, len(r.items))
	for i := range ids {
		ids[i] = uint32(i)
	}
	return ids
}

// Materialize converts clusters of ids into clusters of original values,
// preserving order.
func (r *Registry[T]) Materialize(clusters [][]uint32) [][]T {
	out := make([][]T, len(clusters))
	for i, cluster := range clusters {
		values := make([]T, len(cluster))
		for j, id := range cluster {
			values[j] = r.items[id]
		}
		out[i] = values
	}
	return out
}
