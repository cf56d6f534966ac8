// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package triecache

import "sync"

// pool is a type-safe wrapper around sync.Pool, specialized for managing
// *node[V] instances.
//
// Adapted from the teacher's pool.go, which pooled route-table *node[V]
// allocations; here the same pool shape reuses trie-cache nodes that
// pruning discards, since an interactive session prunes and re-grows the
// trie continuously as the cursor moves.
type pool[V any] struct {
	sync.Pool
}

func newPool[V any]() *pool[V] {
	p := &pool[V]{}
	p.New = func() any {
		return new(node[V])
	}
	return p
}

// Get retrieves a *node[V] from the pool, or allocates a new one.
func (p *pool[V]) Get() *node[V] {
	return p.Pool.Get().(*node[V])
}

// Put resets n and returns it to the pool for reuse.
func (p *pool[V]) Put(n *node[V]) {
	n.reset()
	p.Pool.Put(n)
}
