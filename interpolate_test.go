// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"testing"
)

func constModel(dist Distribution[string]) PlainModel[string] {
	return func(ctx context.Context, prefix []string) (Distribution[string], error) {
		return dist, nil
	}
}

func extentMap(t *testing.T, ctx context.Context, view CDFView[string]) map[string][2]float64 {
	t.Helper()
	got := map[string][2]float64{}
	for ext, err := range view(ctx, nil, 0, 1, 0, nil) {
		if err != nil {
			t.Fatalf("view error: %v", err)
		}
		got[ext.Token] = [2]float64{ext.Start, ext.End}
	}
	return got
}

// S6: A={t1:0.75,t2:0.25}, B={t1:0.25,t2:0.75}, weights (0.5,0.5):
// mixture extents are t1:[0,0.5], t2:[0.5,1.0].
func TestInterpolateS6(t *testing.T) {
	a := AdaptModel(constModel(Distribution[string]{{"t1", 0.75}, {"t2", 0.25}}))
	b := AdaptModel(constModel(Distribution[string]{{"t1", 0.25}, {"t2", 0.75}}))

	mixed := Interpolate(a, b, 0.5, 0.5)
	got := extentMap(t, context.Background(), mixed)

	want := map[string][2]float64{"t1": {0, 0.5}, "t2": {0.5, 1.0}}
	for tok, wantExt := range want {
		gotExt, ok := got[tok]
		if !ok || !closeEnough(gotExt[0], wantExt[0]) || !closeEnough(gotExt[1], wantExt[1]) {
			t.Errorf("token %q = %v, want %v", tok, gotExt, wantExt)
		}
	}
}

// Property 5: interpolation limits. wB=0 reduces to A extent-for-extent.
func TestInterpolateLimitWeights(t *testing.T) {
	a := AdaptModel(constModel(Distribution[string]{{"t1", 0.75}, {"t2", 0.25}}))
	b := AdaptModel(constModel(Distribution[string]{{"t1", 0.1}, {"t2", 0.9}}))

	onlyA := extentMap(t, context.Background(), Interpolate(a, b, 1, 0))
	wantA := extentMap(t, context.Background(), a)
	for tok, ext := range wantA {
		got, ok := onlyA[tok]
		if !ok || !closeEnough(got[0], ext[0]) || !closeEnough(got[1], ext[1]) {
			t.Errorf("wB=0: token %q = %v, want %v (== A)", tok, got, ext)
		}
	}

	onlyB := extentMap(t, context.Background(), Interpolate(a, b, 0, 1))
	wantB := extentMap(t, context.Background(), b)
	for tok, ext := range wantB {
		got, ok := onlyB[tok]
		if !ok || !closeEnough(got[0], ext[0]) || !closeEnough(got[1], ext[1]) {
			t.Errorf("wA=0: token %q = %v, want %v (== B)", tok, got, ext)
		}
	}
}

func TestInterpolateSpecificToken(t *testing.T) {
	a := AdaptModel(constModel(Distribution[string]{{"t1", 0.75}, {"t2", 0.25}}))
	b := AdaptModel(constModel(Distribution[string]{{"t1", 0.25}, {"t2", 0.75}}))
	mixed := Interpolate(a, b, 0.5, 0.5)

	tok := "t2"
	var found *TokenCDFExtent[string]
	for ext, err := range mixed(context.Background(), nil, 0, 1, 0, &tok) {
		if err != nil {
			t.Fatalf("view error: %v", err)
		}
		e := ext
		found = &e
	}
	if found == nil {
		t.Fatalf("specificToken query produced nothing")
	}
	if !closeEnough(found.Start, 0.5) || !closeEnough(found.End, 1.0) {
		t.Errorf("extent = [%v, %v], want [0.5, 1.0]", found.Start, found.End)
	}
}

// A canonical alphabet member absent from one model's support (an
// explicit zero-probability entry, per the contiguity contract) is not
// dropped: at minProb 0 that model still yields its zero-width entry in
// the main pass, so the mixture carries only the other model's
// weighted share.
func TestInterpolateZeroProbEntryOnOneSide(t *testing.T) {
	a := AdaptModel(constModel(Distribution[string]{{"common", 0.5}, {"rare", 0.5}}))
	b := AdaptModel(constModel(Distribution[string]{{"common", 1.0}, {"rare", 0.0}}))
	mixed := Interpolate(a, b, 0.5, 0.5)

	got := extentMap(t, context.Background(), mixed)
	ext, ok := got["rare"]
	if !ok {
		t.Fatalf("expected rare (zero probability in B) in the mixture, got %v", got)
	}
	// rare: A contributes [0.5,1.0] (width 0.5), B contributes a
	// zero-width entry at its position (order-dependent, but width 0);
	// mixture width must be 0.5*0.5 = 0.25.
	if !closeEnough(ext[1]-ext[0], 0.25) {
		t.Errorf("rare width = %v, want 0.25", ext[1]-ext[0])
	}
}
