// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package stream provides async-stream primitives over Go 1.23 push
// iterators (iter.Seq): racing and merging lazily-produced sequences,
// and racing a small fixed set of promise-like futures.
//
// The interpolator (internal component H) races two CDF-view sequences
// so the faster backend's prefix of the stream is visible before the
// slower one finishes; the byte→codepoint adapter (component F) races
// parallel continuation-byte queries the same way. Both are grounded
// on the teacher's own use of iter.Seq-shaped lazy iterators (e.g.
// Table.All, Table.Supernets in table_iter.go), generalized here from
// "lazily walk a route table" to "lazily race independent async
// producers and interleave their output as it arrives".
package stream

import (
	"context"
	"iter"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Merge interleaves values from multiple sequences as they are produced,
// preserving no particular order between sequences. Each input sequence
// is drained by its own goroutine; Merge stops draining as soon as the
// consumer stops pulling (yield returns false) or ctx is cancelled.
func Merge[T any](ctx context.Context, seqs ...iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		if len(seqs) == 0 {
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		out := make(chan T)
		var wg sync.WaitGroup
		wg.Add(len(seqs))

		for _, seq := range seqs {
			seq := seq
			go func() {
				defer wg.Done()
				for v := range seq {
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				}
			}()
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		for {
			select {
			case v := <-out:
				if !yield(v) {
					return
				}
			case <-done:
				// Drain anything already queued before concluding.
				for {
					select {
					case v := <-out:
						if !yield(v) {
							return
						}
					default:
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

// Race returns the first value produced by any of seqs, along with the
// index of the sequence that produced it. Once a winner is found every
// other sequence's goroutine is cancelled via ctx. Race returns
// ok=false if every sequence is exhausted without ever yielding a
// value, or if ctx is cancelled first.
func Race[T any](ctx context.Context, seqs ...iter.Seq[T]) (value T, index int, ok bool) {
	if len(seqs) == 0 {
		return value, 0, false
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		value T
		index int
	}
	out := make(chan result, len(seqs))

	var wg sync.WaitGroup
	wg.Add(len(seqs))
	for i, seq := range seqs {
		i, seq := i, seq
		go func() {
			defer wg.Done()
			for v := range seq {
				select {
				case out <- result{v, i}:
				case <-ctx.Done():
				}
				return
			}
		}()
	}

	closed := make(chan struct{})
	go func() {
		wg.Wait()
		close(closed)
	}()

	select {
	case r := <-out:
		return r.value, r.index, true
	case <-closed:
		select {
		case r := <-out:
			return r.value, r.index, true
		default:
			return value, 0, false
		}
	case <-ctx.Done():
		return value, 0, false
	}
}

// Promise is a deferred computation: a function returning (T, error)
// that is only invoked once RacePromises (or a similar driver) chooses
// to run it.
type Promise[T any] func(ctx context.Context) (T, error)

// RacePromises runs every promise concurrently via errgroup and returns
// the first one to complete successfully. If every promise fails, the
// last error observed is returned. The remaining in-flight promises are
// cancelled via ctx once a winner is decided, matching the "race of
// futures" note in the concurrency model.
func RacePromises[T any](ctx context.Context, promises ...Promise[T]) (T, error) {
	var zero T
	if len(promises) == 0 {
		return zero, context.Canceled
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	out := make(chan result, len(promises))

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range promises {
		p := p
		g.Go(func() error {
			v, err := p(gctx)
			select {
			case out <- result{v, err}:
			case <-ctx.Done():
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(out)
	}()

	var lastErr error
	for r := range out {
		if r.err == nil {
			cancel()
			return r.value, nil
		}
		lastErr = r.err
	}
	if lastErr == nil {
		lastErr = context.Canceled
	}
	return zero, lastErr
}
