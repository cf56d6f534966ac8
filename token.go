// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"iter"
)

// TokenProb pairs a token with its conditional probability, in [0, 1].
type TokenProb[T comparable] struct {
	Token T
	Prob  float64
}

// TokenCDFExtent pairs a token with its cumulative extent [Start, End]
// within a fixed prefix's distribution, 0 <= Start <= End <= 1. The
// extent is a property of (prefix, token) alone: two queries against
// the same prefix return identical extents for any token they both
// yield.
type TokenCDFExtent[T comparable] struct {
	Token T
	Start float64
	End   float64
}

// Prob returns the extent's width, the token's conditional probability.
func (e TokenCDFExtent[T]) Prob() float64 { return e.End - e.Start }

// Distribution is an ordered list of TokenProb whose probabilities sum
// to 1 within float tolerance (1e-9, or the model's stated tolerance
// for callers working in 1e-6 per the InvalidDistribution contract).
type Distribution[T comparable] []TokenProb[T]

// PlainModel produces the next-token distribution conditioned on a
// prefix. It is the "plain" form components wrap: AdaptModel turns one
// into a CDFView.
type PlainModel[T comparable] func(ctx context.Context, prefix []T) (Distribution[T], error)

// CDFView is the polymorphic cumulative-distribution contract (§4.E).
// For a fixed prefix:
//
//   - If specificToken is non-nil, the returned sequence yields at most
//     one element, the extent of that token; rangeStart/rangeEnd/minProb
//     are ignored.
//   - Otherwise it yields exactly the extents with
//     end >= rangeStart && start <= rangeEnd && (end-start) >= minProb.
//
// The sequence is cold and cancellable: no model call happens before
// the consumer starts pulling, and the consumer stopping early (or ctx
// being cancelled) releases every in-flight call the producer was
// holding open. An error from the underlying model surfaces as the
// second element of exactly one yielded pair and ends the sequence.
type CDFView[T comparable] func(ctx context.Context, prefix []T, rangeStart, rangeEnd, minProb float64, specificToken *T) iter.Seq2[TokenCDFExtent[T], error]

// specific queries view for exactly one token's extent, returning
// ok=false if the view produced nothing for it.
func specific[T comparable](ctx context.Context, view CDFView[T], prefix []T, token T) (TokenCDFExtent[T], bool, error) {
	for ext, err := range view(ctx, prefix, 0, 1, 0, &token) {
		if err != nil {
			return TokenCDFExtent[T]{}, false, err
		}
		return ext, true, nil
	}
	return TokenCDFExtent[T]{}, false, nil
}
