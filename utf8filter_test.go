// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"testing"
)

func uniformByteModel() ByteModel {
	return func(ctx context.Context, prefix []byte, minProb float64) (ByteDistribution, error) {
		var d ByteDistribution
		for i := range d {
			d[i] = 1.0 / 256
		}
		return d, nil
	}
}

func TestForceCleanUtf8AtBoundary(t *testing.T) {
	filtered, err := ForceCleanUtf8(uniformByteModel())(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("ForceCleanUtf8: %v", err)
	}
	sum := filtered.Sum()
	if sum < 1-1e-9 || sum > 1+1e-9 {
		t.Errorf("sum = %v, want 1", sum)
	}
	for _, b := range []byte{0xC0, 0xC1, 0xF5, 0xFF, 0x80, 0xBF} {
		if filtered[b] != 0 {
			t.Errorf("byte 0x%02X should be illegal at boundary, got prob %v", b, filtered[b])
		}
	}
	if filtered[0x61] == 0 {
		t.Errorf("ASCII byte 0x61 should be legal at boundary")
	}
	if filtered[0xC3] == 0 {
		t.Errorf("lead byte 0xC3 should be legal at boundary")
	}
}

func TestForceCleanUtf8OverlongGuardE0(t *testing.T) {
	filtered, err := ForceCleanUtf8(uniformByteModel())(context.Background(), []byte{0xE0}, 0)
	if err != nil {
		t.Fatalf("ForceCleanUtf8: %v", err)
	}
	for b := 0; b < 256; b++ {
		want := b >= 0xA0 && b <= 0xBF
		got := filtered[b] != 0
		if got != want {
			t.Errorf("after 0xE0, byte 0x%02X legal = %v, want %v", b, got, want)
		}
	}
}

func TestForceCleanUtf8SurrogateGuardED(t *testing.T) {
	filtered, err := ForceCleanUtf8(uniformByteModel())(context.Background(), []byte{0xED}, 0)
	if err != nil {
		t.Fatalf("ForceCleanUtf8: %v", err)
	}
	for b := 0; b < 256; b++ {
		want := b >= 0x80 && b <= 0x9F
		got := filtered[b] != 0
		if got != want {
			t.Errorf("after 0xED, byte 0x%02X legal = %v, want %v", b, got, want)
		}
	}
}

func TestForceCleanUtf8UpperBoundF4(t *testing.T) {
	filtered, err := ForceCleanUtf8(uniformByteModel())(context.Background(), []byte{0xF4}, 0)
	if err != nil {
		t.Fatalf("ForceCleanUtf8: %v", err)
	}
	for b := 0; b < 256; b++ {
		want := b >= 0x80 && b <= 0x8F
		got := filtered[b] != 0
		if got != want {
			t.Errorf("after 0xF4, byte 0x%02X legal = %v, want %v", b, got, want)
		}
	}
}

func TestForceCleanUtf8PlainContinuation(t *testing.T) {
	// 0xC3 expects exactly one continuation in 0x80-0xBF.
	filtered, err := ForceCleanUtf8(uniformByteModel())(context.Background(), []byte{0xC3}, 0)
	if err != nil {
		t.Fatalf("ForceCleanUtf8: %v", err)
	}
	for b := 0; b < 256; b++ {
		want := b >= 0x80 && b <= 0xBF
		got := filtered[b] != 0
		if got != want {
			t.Errorf("after 0xC3, byte 0x%02X legal = %v, want %v", b, got, want)
		}
	}
}

func TestForceCleanUtf8ResumesAtBoundaryAfterCompleteChar(t *testing.T) {
	// 0xC3 0xA8 completes 'è' (U+00E8); the next byte starts a fresh
	// character, so boundary rules apply again.
	filtered, err := ForceCleanUtf8(uniformByteModel())(context.Background(), []byte{0xC3, 0xA8}, 0)
	if err != nil {
		t.Fatalf("ForceCleanUtf8: %v", err)
	}
	if filtered[0x61] == 0 {
		t.Errorf("ASCII byte should be legal once the prior character is complete")
	}
	if filtered[0x80] != 0 {
		t.Errorf("stray continuation byte should be illegal at a fresh boundary")
	}
}

func TestForceCleanUtf8AllZeroWhenNothingSurvives(t *testing.T) {
	onlyIllegal := func(ctx context.Context, prefix []byte, minProb float64) (ByteDistribution, error) {
		var d ByteDistribution
		d[0x80] = 1 // illegal at a boundary
		return d, nil
	}
	filtered, err := ForceCleanUtf8(onlyIllegal)(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("ForceCleanUtf8: %v", err)
	}
	if filtered.Sum() != 0 {
		t.Errorf("Sum() = %v, want 0", filtered.Sum())
	}
}
