// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import "context"

// ByteDistribution is a 256-entry probability vector over the next raw
// byte, indexed by byte value.
type ByteDistribution [256]float64

// Sum returns the total probability mass, used by validation and by the
// UTF-8 legality filter's renormalisation step.
func (d ByteDistribution) Sum() float64 {
	var sum float64
	for _, p := range d {
		sum += p
	}
	return sum
}

// ByteModel is the external collaborator (§4.D, §6): a byte-level model
// gives the next-byte distribution conditioned on a byte prefix. The
// contract: exactly 256 non-negative entries summing to 1 (within
// 1e-6); bytes that would produce illegal UTF-8 continuations must be
// exactly 0; the model may omit non-zero entries below minProb but must
// never omit one at or above it.
type ByteModel func(ctx context.Context, prefix []byte, minProb float64) (ByteDistribution, error)

func validateByteDistribution(d ByteDistribution) error {
	sum := 0.0
	for _, p := range d {
		if p < 0 {
			return newError(InvalidDistribution, "negative byte probability %v", p)
		}
		sum += p
	}
	if sum < 1-1e-6 || sum > 1+1e-6 {
		return newError(InvalidDistribution, "byte distribution sums to %v, want 1", sum)
	}
	return nil
}
