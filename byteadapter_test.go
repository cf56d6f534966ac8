// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"sync"
	"testing"
)

// countingModel wraps a static table of byte-prefix -> distribution and
// records every prefix queried, keyed by its string form.
type countingModel struct {
	table map[string]ByteDistribution

	mu    sync.Mutex
	calls []string
}

func (m *countingModel) predict(ctx context.Context, prefix []byte, minProb float64) (ByteDistribution, error) {
	m.mu.Lock()
	m.calls = append(m.calls, string(prefix))
	m.mu.Unlock()

	d, ok := m.table[string(prefix)]
	if !ok {
		return ByteDistribution{}, nil
	}
	return d, nil
}

func (m *countingModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// s4Table builds the §8 scenario S4 model: {0x61: 0.5, 0xC3: 0.5} at
// root, {0xA8: 0.5, 0xA9: 0.5} after 0xC3.
func s4Table() map[string]ByteDistribution {
	var root, afterC3 ByteDistribution
	root[0x61] = 0.5
	root[0xC3] = 0.5
	afterC3[0xA8] = 0.5
	afterC3[0xA9] = 0.5
	return map[string]ByteDistribution{
		"":        root,
		"\xC3":    afterC3,
	}
}

func TestCodepointViewFullExpansionS4(t *testing.T) {
	m := &countingModel{table: s4Table()}
	view := NewCodepointView(m.predict, nil)

	got := map[rune][2]float64{}
	for ext, err := range view(context.Background(), nil, 0, 1, 0, nil) {
		if err != nil {
			t.Fatalf("view error: %v", err)
		}
		got[ext.Token] = [2]float64{ext.Start, ext.End}
	}

	want := map[rune][2]float64{
		'a':    {0, 0.5},
		'è': {0.5, 0.75},
		'é': {0.75, 1.0},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v tokens, want %v", got, want)
	}
	for tok, wantExt := range want {
		gotExt, ok := got[tok]
		if !ok {
			t.Fatalf("missing token %q in result %v", tok, got)
		}
		if !closeEnough(gotExt[0], wantExt[0]) || !closeEnough(gotExt[1], wantExt[1]) {
			t.Errorf("token %q extent = %v, want %v", tok, gotExt, wantExt)
		}
	}
}

func TestCodepointViewCallMinimizationS5(t *testing.T) {
	m := &countingModel{table: s4Table()}
	view := NewCodepointView(m.predict, nil)

	for ext, err := range view(context.Background(), nil, 0, 0.49, 0, nil) {
		if err != nil {
			t.Fatalf("view error: %v", err)
		}
		if ext.Token != 'a' {
			t.Errorf("unexpected token %q in a window that should only cover 'a'", ext.Token)
		}
	}

	if m.callCount() != 1 {
		t.Errorf("callCount() = %d, want 1 (only the root distribution should be fetched)", m.callCount())
	}
}

func TestCodepointViewSpecificToken(t *testing.T) {
	m := &countingModel{table: s4Table()}
	view := NewCodepointView(m.predict, nil)

	target := 'é'
	var got *TokenCDFExtent[rune]
	for ext, err := range view(context.Background(), nil, 0, 1, 0, &target) {
		if err != nil {
			t.Fatalf("view error: %v", err)
		}
		e := ext
		got = &e
	}
	if got == nil {
		t.Fatalf("specificToken query produced nothing")
	}
	if !closeEnough(got.Start, 0.75) || !closeEnough(got.End, 1.0) {
		t.Errorf("extent = [%v, %v], want [0.75, 1.0]", got.Start, got.End)
	}
}

func closeEnough(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
