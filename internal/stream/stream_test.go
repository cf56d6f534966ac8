// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package stream

import (
	"context"
	"errors"
	"iter"
	"sort"
	"testing"
	"time"
)

func seqOf(vs ...int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, v := range vs {
			if !yield(v) {
				return
			}
		}
	}
}

func TestMergeInterleavesAllValues(t *testing.T) {
	got := []int{}
	for v := range Merge(context.Background(), seqOf(1, 2, 3), seqOf(4, 5), seqOf(6)) {
		got = append(got, v)
	}
	sort.Ints(got)
	want := []int{1, 2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("Merge produced %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Merge produced %v, want %v", got, want)
		}
	}
}

func TestMergeStopsWhenConsumerStops(t *testing.T) {
	count := 0
	for range Merge(context.Background(), seqOf(1, 2, 3, 4, 5)) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("consumer saw %d values, want 2", count)
	}
}

func TestRacePicksAWinner(t *testing.T) {
	slow := func(yield func(int) bool) {
		time.Sleep(20 * time.Millisecond)
		yield(1)
	}
	fast := seqOf(2)

	v, idx, ok := Race(context.Background(), slow, fast)
	if !ok {
		t.Fatalf("Race: ok = false")
	}
	if v != 2 || idx != 1 {
		t.Errorf("Race = %d, %d, want 2, 1 (fast sequence should win)", v, idx)
	}
}

func TestRaceEmpty(t *testing.T) {
	if _, _, ok := Race[int](context.Background()); ok {
		t.Fatalf("Race with no sequences: ok = true")
	}
}

func TestRacePromisesReturnsFirstSuccess(t *testing.T) {
	p1 := Promise[string](func(ctx context.Context) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return "slow", nil
	})
	p2 := Promise[string](func(ctx context.Context) (string, error) {
		return "fast", nil
	})

	v, err := RacePromises(context.Background(), p1, p2)
	if err != nil {
		t.Fatalf("RacePromises error: %v", err)
	}
	if v != "fast" {
		t.Errorf("RacePromises = %q, want fast", v)
	}
}

func TestRacePromisesAllFail(t *testing.T) {
	wantErr := errors.New("model unreachable")
	p := Promise[int](func(ctx context.Context) (int, error) {
		return 0, wantErr
	})

	_, err := RacePromises(context.Background(), p, p)
	if !errors.Is(err, wantErr) {
		t.Fatalf("RacePromises error = %v, want %v", err, wantErr)
	}
}
