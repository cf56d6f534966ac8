// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"iter"

	"github.com/squarewriter/dashcore/internal/stream"
)

// Interpolate mixes two CDF views into one whose per-conditional
// distribution is wA*PA + wB*PB, wA+wB == 1 (§4.H). Both views must
// share the same canonical token ordering for the mixture's stacking
// to be well-defined, though neither is required to yield in that
// order.
func Interpolate[T comparable](a, b CDFView[T], wA, wB float64) CDFView[T] {
	return func(ctx context.Context, prefix []T, rangeStart, rangeEnd, minProb float64, specificToken *T) iter.Seq2[TokenCDFExtent[T], error] {
		if specificToken != nil {
			return interpolateSpecific(ctx, a, b, prefix, *specificToken, wA, wB)
		}
		return interpolateGeneral(ctx, a, b, prefix, rangeStart, rangeEnd, minProb, wA, wB)
	}
}

func interpolateSpecific[T comparable](ctx context.Context, a, b CDFView[T], prefix []T, token T, wA, wB float64) iter.Seq2[TokenCDFExtent[T], error] {
	return func(yield func(TokenCDFExtent[T], error) bool) {
		extA, okA, errA := specific(ctx, a, prefix, token)
		if errA != nil {
			yield(TokenCDFExtent[T]{}, errA)
			return
		}
		extB, okB, errB := specific(ctx, b, prefix, token)
		if errB != nil {
			yield(TokenCDFExtent[T]{}, errB)
			return
		}
		if !okA || !okB {
			return
		}
		yield(mix(extA, extB, wA, wB), nil)
	}
}

// tagged carries one side's streamed result (value or terminal error)
// through the race/merge so interpolateGeneral can tell which model
// produced it without a second query against either view.
type tagged[T comparable] struct {
	ext   TokenCDFExtent[T]
	err   error
	fromA bool
}

// interpolateGeneral implements the streaming strategy (§4.H): both
// models are queried once each over the full [0,1] window at the
// caller's minProb (sound because a mixture token at or above minProb
// must clear minProb in at least one model), consumed via a race/merge
// so a combined extent is emitted the instant a token is known on both
// sides. Tokens seen on only one side are resolved afterward with a
// targeted specificToken lookup in the other model.
func interpolateGeneral[T comparable](ctx context.Context, a, b CDFView[T], prefix []T, rangeStart, rangeEnd, minProb, wA, wB float64) iter.Seq2[TokenCDFExtent[T], error] {
	return func(yield func(TokenCDFExtent[T], error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		wrap := func(view CDFView[T], fromA bool) iter.Seq[tagged[T]] {
			return func(yield func(tagged[T]) bool) {
				for ext, err := range view(ctx, prefix, 0, 1, minProb, nil) {
					if !yield(tagged[T]{ext: ext, err: err, fromA: fromA}) {
						return
					}
					if err != nil {
						return
					}
				}
			}
		}

		seenA := map[T]TokenCDFExtent[T]{}
		seenB := map[T]TokenCDFExtent[T]{}

		emit := func(tok T) (TokenCDFExtent[T], bool) {
			extA, okA := seenA[tok]
			extB, okB := seenB[tok]
			if !okA || !okB {
				return TokenCDFExtent[T]{}, false
			}
			return mix(extA, extB, wA, wB), true
		}

		for t := range stream.Merge(ctx, wrap(a, true), wrap(b, false)) {
			if t.err != nil {
				yield(TokenCDFExtent[T]{}, t.err)
				return
			}
			if t.fromA {
				seenA[t.ext.Token] = t.ext
			} else {
				seenB[t.ext.Token] = t.ext
			}
			combined, ok := emit(t.ext.Token)
			if !ok {
				continue
			}
			if combined.End < rangeStart || combined.Start > rangeEnd || combined.Prob() < minProb {
				continue
			}
			if !yield(combined, nil) {
				return
			}
		}

		// Resolve stragglers: tokens seen on only one side, via a
		// targeted specificToken lookup in the other model.
		strays := map[T]struct{}{}
		for tok := range seenA {
			if _, ok := seenB[tok]; !ok {
				strays[tok] = struct{}{}
			}
		}
		for tok := range seenB {
			if _, ok := seenA[tok]; !ok {
				strays[tok] = struct{}{}
			}
		}

		for tok := range strays {
			extA, okA := seenA[tok]
			if !okA {
				ext, ok, err := specific(ctx, a, prefix, tok)
				if err != nil {
					yield(TokenCDFExtent[T]{}, err)
					return
				}
				if !ok {
					continue
				}
				extA = ext
			}
			extB, okB := seenB[tok]
			if !okB {
				ext, ok, err := specific(ctx, b, prefix, tok)
				if err != nil {
					yield(TokenCDFExtent[T]{}, err)
					return
				}
				if !ok {
					continue
				}
				extB = ext
			}
			combined := mix(extA, extB, wA, wB)
			if combined.End < rangeStart || combined.Start > rangeEnd || combined.Prob() < minProb {
				continue
			}
			if !yield(combined, nil) {
				return
			}
		}
	}
}

func mix[T comparable](a, b TokenCDFExtent[T], wA, wB float64) TokenCDFExtent[T] {
	return TokenCDFExtent[T]{
		Token: a.Token,
		Start: wA*a.Start + wB*b.Start,
		End:   wA*a.End + wB*b.End,
	}
}
