// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"iter"
	"testing"
)

// S7: binary model, cursor ([], 0, 0.5), minHeight=0.001: top-level
// children are A:[0.25,0.5], B:[0.5,0.75].
func TestBuildSceneS7Zoom(t *testing.T) {
	view := binaryModel()
	cursor := Cursor[string]{X: 0, Y: 0.5}

	scene, err := BuildScene(context.Background(), view, cursor, 0.001)
	if err != nil {
		t.Fatalf("BuildScene: %v", err)
	}

	got := map[string][2]float64{}
	for node, err := range scene.Children {
		if err != nil {
			t.Fatalf("scene children: %v", err)
		}
		got[node.Token] = [2]float64{node.Y0, node.Y1}
	}

	want := map[string][2]float64{"A": {0.25, 0.5}, "B": {0.5, 0.75}}
	for tok, wantExt := range want {
		gotExt, ok := got[tok]
		if !ok || !closeEnough(gotExt[0], wantExt[0]) || !closeEnough(gotExt[1], wantExt[1]) {
			t.Errorf("token %q = %v, want %v", tok, gotExt, wantExt)
		}
	}
}

// Property 7: scene child containment. Every child's [y0,y1] lies
// within its parent's [y0,y1] (with a small float tolerance), at every
// depth of the lazily-produced tree.
func TestBuildSceneChildContainment(t *testing.T) {
	view := binaryModel()
	cursor := Cursor[string]{X: 0.4, Y: 0.6}

	scene, err := BuildScene(context.Background(), view, cursor, 0.01, WithSceneMaxDepth(6))
	if err != nil {
		t.Fatalf("BuildScene: %v", err)
	}

	const eps = 1e-9

	var checkLevel func(seq iter.Seq2[*SceneNode[string], error], parentY0, parentY1 float64, depth int)
	checkLevel = func(seq iter.Seq2[*SceneNode[string], error], parentY0, parentY1 float64, depth int) {
		if depth > 6 {
			return
		}
		for node, err := range seq {
			if err != nil {
				t.Fatalf("scene children: %v", err)
			}
			if node.Y0 < parentY0-eps || node.Y1 > parentY1+eps {
				t.Errorf("child [%v,%v] escapes parent [%v,%v] at depth %d", node.Y0, node.Y1, parentY0, parentY1, depth)
			}
			checkLevel(node.Children, node.Y0, node.Y1, depth+1)
		}
	}

	checkLevel(scene.Children, 0, 1, 0)
}

// Degenerate window: a certain (probability-1) child keeps the ascent
// loop terminating rather than looping forever trying to fit a
// window that never needs to ascend.
func TestBuildSceneCertainModelTerminates(t *testing.T) {
	certain := AdaptModel(func(ctx context.Context, prefix []string) (Distribution[string], error) {
		return Distribution[string]{{"only", 1.0}}, nil
	})
	cursor := Cursor[string]{X: 0.5, Y: 0.5}

	scene, err := BuildScene(context.Background(), certain, cursor, 0.01, WithSceneMaxDepth(4))
	if err != nil {
		t.Fatalf("BuildScene: %v", err)
	}
	if scene == nil {
		t.Fatalf("scene is nil")
	}
}
