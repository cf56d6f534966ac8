// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import "context"

// ForceCleanUtf8 wraps a ByteModel so that every returned distribution
// assigns zero probability to any byte that would be illegal at the
// current boundary, then renormalises the survivors to sum to 1 (or
// returns the all-zero vector if nothing survived).
//
// Boundary classification (§4.G):
//
//   - At a character boundary: only 0x00-0x7F and 0xC2-0xF4 are legal
//     lead bytes (0xC0, 0xC1, 0xF5-0xFF and stray continuation bytes
//     are rejected outright).
//   - After a lead byte of 0xE0: only 0xA0-0xBF (overlong guard).
//   - After 0xED: only 0x80-0x9F (UTF-16 surrogate guard).
//   - After 0xF0: only 0x90-0xBF (overlong guard).
//   - After 0xF4: only 0x80-0x8F (caps codepoints at U+10FFFF).
//   - After any other lead byte that expects a continuation: only
//     0x80-0xBF.
func ForceCleanUtf8(inner ByteModel) ByteModel {
	return func(ctx context.Context, prefix []byte, minProb float64) (ByteDistribution, error) {
		dist, err := inner(ctx, prefix, minProb)
		if err != nil {
			return ByteDistribution{}, err
		}

		legal := legalNextByte(prefix)

		var filtered ByteDistribution
		sum := 0.0
		for b := 0; b < 256; b++ {
			if !legal(byte(b)) {
				continue
			}
			filtered[b] = dist[b]
			sum += dist[b]
		}
		if sum == 0 {
			return ByteDistribution{}, nil
		}
		for b := range filtered {
			filtered[b] /= sum
		}
		return filtered, nil
	}
}

// legalNextByte classifies the expected next byte given the bytes
// already produced in the current, possibly in-progress UTF-8
// character, and returns a predicate for which byte values are legal.
func legalNextByte(prefix []byte) func(b byte) bool {
	lead, continuations := currentCharState(prefix)
	if continuations == 0 {
		return isLegalBoundaryByte
	}
	if continuations == 1 {
		switch lead {
		case 0xE0:
			return func(b byte) bool { return b >= 0xA0 && b <= 0xBF }
		case 0xED:
			return func(b byte) bool { return b >= 0x80 && b <= 0x9F }
		case 0xF0:
			return func(b byte) bool { return b >= 0x90 && b <= 0xBF }
		case 0xF4:
			return func(b byte) bool { return b >= 0x80 && b <= 0x8F }
		}
	}
	return func(b byte) bool { return b >= 0x80 && b <= 0xBF }
}

// currentCharState scans backward from the end of prefix to determine
// the lead byte of the in-progress UTF-8 character (0 if prefix is
// empty or ends exactly on a boundary) and how many of its bytes, the
// lead byte included, have been consumed so far (0 means "at a fresh
// boundary", 1 means only the lead byte has been seen).
func currentCharState(prefix []byte) (lead byte, continuations int) {
	if len(prefix) == 0 {
		return 0, 0
	}
	i := len(prefix) - 1
	n := 0
	for i >= 0 && prefix[i]&0xC0 == 0x80 {
		n++
		i--
	}
	if i < 0 {
		// prefix is all continuation bytes: malformed input, treat as boundary.
		return 0, 0
	}
	leadByte := prefix[i]
	if leadByte < 0x80 {
		return 0, 0
	}
	expected := utf8LeadLength(leadByte)
	if expected == 0 || n >= expected-1 {
		return 0, 0
	}
	return leadByte, n + 1
}

// utf8LeadLength returns the total byte length of a legal UTF-8
// sequence starting with b (2, 3, or 4), or 0 if b cannot start one.
func utf8LeadLength(b byte) int {
	switch {
	case b >= 0xC2 && b <= 0xDF:
		return 2
	case b >= 0xE0 && b <= 0xEF:
		return 3
	case b >= 0xF0 && b <= 0xF4:
		return 4
	default:
		return 0
	}
}

// isLegalBoundaryByte reports whether b is a legal lead byte at a fresh
// character boundary: ASCII, or a multi-byte lead in 0xC2-0xF4.
func isLegalBoundaryByte(b byte) bool {
	if b <= 0x7F {
		return true
	}
	return b >= 0xC2 && b <= 0xF4
}
