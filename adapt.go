// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"iter"
)

// AdaptModel turns a plain (prefix) -> Distribution model into a
// CDFView: it accumulates cumulative positions in the distribution's
// own order and filters by range/minProb (or short-circuits on
// specificToken), so that repeated calls against the same prefix
// produce byte-for-byte identical extents (testable property 1,
// "extent determinism").
func AdaptModel[T comparable](inner PlainModel[T]) CDFView[T] {
	return func(ctx context.Context, prefix []T, rangeStart, rangeEnd, minProb float64, specificToken *T) iter.Seq2[TokenCDFExtent[T], error] {
		return func(yield func(TokenCDFExtent[T], error) bool) {
			dist, err := inner(ctx, prefix)
			if err != nil {
				yield(TokenCDFExtent[T]{}, wrapError(ModelFailure, err))
				return
			}
			if err := validateDistribution(dist); err != nil {
				yield(TokenCDFExtent[T]{}, err)
				return
			}

			cum := 0.0
			for _, tp := range dist {
				start := cum
				end := cum + tp.Prob
				cum = end

				if specificToken != nil {
					if tp.Token == *specificToken {
						yield(TokenCDFExtent[T]{Token: tp.Token, Start: start, End: end}, nil)
						return
					}
					continue
				}

				if end < rangeStart || start > rangeEnd {
					continue
				}
				if end-start < minProb {
					continue
				}
				if !yield(TokenCDFExtent[T]{Token: tp.Token, Start: start, End: end}, nil) {
					return
				}
			}
		}
	}
}

// validateDistribution enforces the InvalidDistribution contract: no
// negative probabilities, and a sum within [1-1e-6, 1+1e-6].
func validateDistribution[T comparable](dist Distribution[T]) error {
	sum := 0.0
	for _, tp := range dist {
		if tp.Prob < 0 {
			return newError(InvalidDistribution, "negative probability %v for token %v", tp.Prob, tp.Token)
		}
		sum += tp.Prob
	}
	if sum < 1-1e-6 || sum > 1+1e-6 {
		return newError(InvalidDistribution, "distribution sums to %v, want 1", sum)
	}
	return nil
}
