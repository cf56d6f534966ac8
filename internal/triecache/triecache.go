// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package triecache memoises byte-keyed predictions behind a trie with
// generation-based eviction.
//
// The node layout is adapted from the teacher routing table's node: a
// fixed 256-wide, popcount-compressed child array (internal/sparse,
// internal/bitset) replaces what used to be a prefix-length-indexed
// route table, repurposed here as a plain byte trie over model-query
// prefixes instead of IP address octets.
package triecache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/squarewriter/dashcore/internal/sparse"
)

// node is one trie node. It stores an optional value of type V and the
// generation it was last touched at (by a read or a write).
type node[V any] struct {
	children sparse.Array256[*node[V]]
	value    V
	hasValue bool
	stamp    uint64
}

func (n *node[V]) reset() {
	var zero node[V]
	*n = zero
}

// Stats reports cache-level counters, adapted from the teacher's pool.go
// live/total accounting (there: *node[V] allocations; here: cache
// entries and prune activity).
type Stats struct {
	Live    int64 // valued nodes currently cached
	Hits    int64
	Misses  int64
	Evicted int64 // valued nodes removed by prune sweeps, in total
}

// Cache maps finite byte sequences to values of type V.
//
// The zero value is not ready to use; construct with New. A Cache is
// safe for concurrent use: all mutating walks are protected by an
// internal mutex, and concurrent GetOrSet calls for the same prefix are
// deduplicated via singleflight so only one upstream compute runs.
type Cache[V any] struct {
	mu   sync.Mutex
	root node[V]

	generation    uint64
	lastPrune     uint64
	pruneInterval uint64
	maxAge        uint64

	group singleflight.Group
	log   *zerolog.Logger
	pool  *pool[V]

	live    atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
	evicted atomic.Int64
}

// Option configures a Cache at construction time.
type Option func(*config)

type config struct {
	pruneInterval uint64
	maxAge        uint64
	log           *zerolog.Logger
}

// WithPruneInterval overrides the default 20,000-tick sweep interval.
func WithPruneInterval(n uint64) Option {
	return func(c *config) { c.pruneInterval = n }
}

// WithMaxAge overrides the default 40,000-tick eviction age.
func WithMaxAge(n uint64) Option {
	return func(c *config) { c.maxAge = n }
}

// WithLogger attaches a logger; nil-safe callers may omit this entirely.
func WithLogger(log *zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

// New returns an empty Cache. Defaults: pruneInterval=20000, maxAge=40000.
func New[V any](opts ...Option) *Cache[V] {
	cfg := config{pruneInterval: 20_000, maxAge: 40_000}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.log
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Cache[V]{
		pruneInterval: cfg.pruneInterval,
		maxAge:        cfg.maxAge,
		log:           log,
		pool:          newPool[V](),
	}
}

// Get looks up the value cached for prefix exactly, stamping every
// visited node with the current generation. Reads do not tick the
// generation counter.
func (c *Cache[V]) Get(prefix []byte) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.walk(prefix, false)
	if n == nil || !n.hasValue {
		c.misses.Add(1)
		return value, false
	}
	c.hits.Add(1)
	return n.value, true
}

// Set stores value at prefix, creating intermediate nodes as needed.
// Set ticks the generation counter.
func (c *Cache[V]) Set(prefix []byte, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick()
	n := c.walk(prefix, true)
	if !n.hasValue {
		c.live.Add(1)
	}
	n.hasValue = true
	n.value = value
	c.maybePrune()
}

// Delete removes the value at prefix, if any, leaving structural nodes
// in place for pruning to clean up later.
func (c *Cache[V]) Delete(prefix []byte) (value V, existed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick()
	n := c.walk(prefix, false)
	if n == nil || !n.hasValue {
		return value, false
	}
	value = n.value
	n.hasValue = false
	var zero V
	n.value = zero
	c.live.Add(-1)
	return value, true
}

// GetOrSet returns the cached value at prefix, computing and storing it
// via compute if absent. Concurrent GetOrSet calls for the same prefix
// share one call to compute: this is the "future stored in the cache
// cell" deduplication from the concurrency model, implemented with
// golang.org/x/sync/singleflight instead of a hand-rolled promise map.
func (c *Cache[V]) GetOrSet(ctx context.Context, prefix []byte, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(prefix); ok {
		return v, nil
	}

	key := string(prefix)
	res, err, shared := c.group.Do(key, func() (any, error) {
		// Another flight may have stored the value between the Get
		// above and this call; reuse it instead of computing again.
		c.mu.Lock()
		if n := c.walk(prefix, false); n != nil && n.hasValue {
			v := n.value
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		v, err := compute(ctx)
		if err != nil {
			// The cache entry for a failed compute must stay absent so a
			// retry is possible; nothing was ever written.
			return nil, err
		}
		c.Set(prefix, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	if shared {
		c.log.Trace().Int("prefixLen", len(prefix)).Msg("getOrSet joined in-flight compute")
	}
	return res.(V), nil
}

// FindLongestPrefix returns the deepest valued node on the path to
// prefix, along with its depth, or ok=false if no ancestor (including
// the root) has a value.
func (c *Cache[V]) FindLongestPrefix(prefix []byte) (value V, depth int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.generation
	n := &c.root
	n.stamp = now

	bestValue := n.value
	bestOK := n.hasValue
	bestDepth := 0

	for i, b := range prefix {
		child, found := n.children.Get(uint(b))
		if !found {
			break
		}
		child.stamp = now
		n = child
		if n.hasValue {
			bestValue, bestOK, bestDepth = n.value, true, i+1
		}
	}
	if !bestOK {
		c.misses.Add(1)
		return value, 0, false
	}
	c.hits.Add(1)
	return bestValue, bestDepth, true
}

// PrePopulated describes one sub-tree of a backend's nested
// {dist, children} response (§6 "Trie-pre-populated variant"): a value
// for this prefix, plus optional pre-expanded children keyed by byte.
type PrePopulated[V any] struct {
	Value    V
	HasValue bool
	Children map[byte]PrePopulated[V]
}

// Populate eagerly walks a PrePopulated tree into the cache rooted at
// prefix, adapted from the teacher's recursive node-cloning walk in
// cloner.go (there: deep-copying route table nodes; here: installing a
// backend's pre-expanded predictions).
func (c *Cache[V]) Populate(prefix []byte, tree PrePopulated[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick()
	c.populate(prefix, tree)
	c.maybePrune()
}

func (c *Cache[V]) populate(prefix []byte, tree PrePopulated[V]) {
	n := c.walk(prefix, true)
	if tree.HasValue && !n.hasValue {
		c.live.Add(1)
	}
	if tree.HasValue {
		n.hasValue = true
		n.value = tree.Value
	}
	for b, sub := range tree.Children {
		c.populate(append(append([]byte{}, prefix...), b), sub)
	}
}

// Stats returns a snapshot of cache-level counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Live:    c.live.Load(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Evicted: c.evicted.Load(),
	}
}

// walk descends from the root along prefix, stamping every visited node
// with the current generation. If create is true, missing nodes are
// allocated; otherwise walk returns nil as soon as a byte has no child.
//
// Caller must hold c.mu.
func (c *Cache[V]) walk(prefix []byte, create bool) *node[V] {
	now := c.generation
	n := &c.root
	n.stamp = now

	for _, b := range prefix {
		child, found := n.children.Get(uint(b))
		if !found {
			if !create {
				return nil
			}
			child = c.pool.Get()
			n.children.InsertAt(uint(b), child)
		}
		child.stamp = now
		n = child
	}
	return n
}

// tick increments the generation counter. Only writes tick; reads only
// stamp visited nodes.
func (c *Cache[V]) tick() {
	c.generation++
}

// maybePrune sweeps the trie every pruneInterval ticks.
//
// Caller must hold c.mu.
func (c *Cache[V]) maybePrune() {
	if c.generation-c.lastPrune < c.pruneInterval {
		return
	}
	c.lastPrune = c.generation
	before := c.live.Load()
	c.prune(&c.root)
	after := c.live.Load()
	evicted := before - after
	c.evicted.Add(evicted)
	if evicted > 0 {
		c.log.Debug().
			Uint64("generation", c.generation).
			Str("evicted", humanize.Comma(evicted)).
			Str("live", humanize.Comma(after)).
			Msg("trie cache pruned")
	}
}

// prune removes any subtree whose root stamp is older than
// generation-maxAge. Because sub-tries share nodes with their
// descendants, removing a stale child also removes every descendant's
// value, which is reflected in c.live.
//
// Caller must hold c.mu.
func (c *Cache[V]) prune(n *node[V]) {
	threshold := int64(c.generation) - int64(c.maxAge)

	for _, b := range n.children.All() {
		child, _ := n.children.Get(b)
		if int64(child.stamp) < threshold {
			c.countValues(child)
			n.children.DeleteAt(b)
			continue
		}
		c.prune(child)
	}
}

// countValues decrements c.live for every valued node in the subtree
// rooted at n and returns the whole subtree to the node pool, used right
// before that subtree is unlinked from its parent.
func (c *Cache[V]) countValues(n *node[V]) {
	if n.hasValue {
		c.live.Add(-1)
	}
	for _, b := range n.children.All() {
		child, _ := n.children.Get(b)
		c.countValues(child)
	}
	c.pool.Put(n)
}

