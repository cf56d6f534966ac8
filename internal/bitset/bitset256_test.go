// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package bitset

import "testing"

func TestBitSet256SetClearTest(t *testing.T) {
	var b BitSet256

	if b.Test(65) {
		t.Fatalf("zero value: Test(65) = true, want false")
	}

	b.MustSet(65) // word 1, bit 1: exercises the >>6 / &63 split across words
	if !b.Test(65) {
		t.Errorf("Test(65) = false after MustSet(65)")
	}
	if b.Test(64) || b.Test(66) {
		t.Errorf("MustSet(65) set a neighboring bit")
	}

	b.MustClear(65)
	if b.Test(65) {
		t.Errorf("Test(65) = true after MustClear(65)")
	}
}

func TestBitSet256AllAscending(t *testing.T) {
	var b BitSet256
	want := []uint{0, 1, 63, 64, 127, 128, 200, 255}
	for _, bit := range want {
		b.MustSet(bit)
	}

	got := b.All()
	if len(got) != len(want) {
		t.Fatalf("All() = %v, want %v", got, want)
	}
	for i, bit := range want {
		if got[i] != bit {
			t.Errorf("All()[%d] = %d, want %d", i, got[i], bit)
		}
	}
}

func TestBitSet256AllEmpty(t *testing.T) {
	var b BitSet256
	if got := b.All(); len(got) != 0 {
		t.Errorf("All() on empty set = %v, want empty", got)
	}
}

// TestBitSet256Rank0 checks Rank0 against a set built to exercise every
// word boundary: sparse.Array256 relies on Rank0(i) landing exactly on
// the slot a present bit i maps to in its packed Items slice.
func TestBitSet256Rank0(t *testing.T) {
	var b BitSet256
	present := []uint{0, 5, 63, 64, 65, 127, 128, 190, 255}
	for _, bit := range present {
		b.MustSet(bit)
	}

	for slot, bit := range present {
		if rnk := b.Rank0(bit); rnk != slot {
			t.Errorf("Rank0(%d) = %d, want %d", bit, rnk, slot)
		}
	}
}

func TestBitSet256RankMatchesPopcountPrefix(t *testing.T) {
	var b BitSet256
	for _, bit := range []uint{3, 70, 140, 254} {
		b.MustSet(bit)
	}

	for idx := uint(0); idx < 256; idx++ {
		want := -1
		for _, bit := range b.All() {
			if bit <= idx {
				want++
			}
		}
		if rnk := b.Rank0(idx); rnk != want {
			t.Fatalf("Rank0(%d) = %d, want %d", idx, rnk, want)
		}
	}
}

func TestBitSet256String(t *testing.T) {
	var b BitSet256
	b.MustSet(1)
	b.MustSet(2)

	if got, want := b.String(), "[1 2]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
