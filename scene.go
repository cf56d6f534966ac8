// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"iter"

	"github.com/squarewriter/dashcore/internal/rat"
)

// SceneNode is one rendered node: a token occupying [Y0, Y1] in its
// parent scene's frame, with a lazily-produced sequence of children.
type SceneNode[T comparable] struct {
	Token    T
	Y0, Y1   float64
	Children iter.Seq2[*SceneNode[T], error]
}

// Scene wraps the rendered root: Children is the lazy sequence of
// top-level nodes, and PrefixLength records how many tokens of the
// cursor's prefix the scene root itself represents (useful to a
// renderer reconciling the tree against the cursor's own prefix).
type Scene[T comparable] struct {
	Children     iter.Seq2[*SceneNode[T], error]
	PrefixLength int
}

type sceneConfig struct {
	maxDepth int
}

// SceneOption configures BuildScene.
type SceneOption func(*sceneConfig)

// WithSceneMaxDepth overrides the default maximum descent depth of 100.
func WithSceneMaxDepth(n int) SceneOption {
	return func(c *sceneConfig) { c.maxDepth = n }
}

// BuildScene produces a lazy scene tree for cursor (§4.J). Phase 1
// computes the square viewport in the cursor's local frame; phase 2
// ascends one level past where that viewport first fits inside [0,1],
// so the node fully covering the viewport is always a rendered child
// of the scene root rather than the root itself; phase 3 lazily
// descends from the scene root, mapping the viewport back into
// probability-space range/minProb filters at each level.
func BuildScene[T comparable](ctx context.Context, view CDFView[T], cursor Cursor[T], minHeight float64, opts ...SceneOption) (*Scene[T], error) {
	cfg := sceneConfig{maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}

	halfHeight, err := rat.FromFloat(1 - cursor.X)
	if err != nil {
		return nil, wrapError(ArithmeticError, err)
	}
	cy, err := rat.FromFloat(cursor.Y)
	if err != nil {
		return nil, wrapError(ArithmeticError, err)
	}
	winTop := cy.Sub(halfHeight)
	winBot := cy.Add(halfHeight)

	prefix := append([]T{}, cursor.Prefix...)

	// Ascend into the parent frame (exact rational arithmetic, same
	// composition the cursor normaliser's ascent uses): this runs once
	// per ascended prefix token, so drift at deep nesting would
	// otherwise misplace the whole viewport.
	advance := func() (bool, error) {
		if len(prefix) == 0 {
			return false, nil
		}
		last := prefix[len(prefix)-1]
		parent := prefix[:len(prefix)-1]
		ext, ok, err := specific(ctx, view, parent, last)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, newError(ModelFailure, "buildScene: token not found under its own prefix")
		}
		c, p, err := extentToRat(ext)
		if err != nil {
			return false, err
		}
		winTop = c.Add(winTop.Mul(p))
		winBot = c.Add(winBot.Mul(p))
		prefix = parent
		return true, nil
	}

	// Ascend until the window fits in [0,1], then one level further so
	// the covering node is a child of the scene root, not the root.
	for winTop.Sign() < 0 || winBot.Cmp(rat.ONE) > 0 {
		moved, err := advance()
		if err != nil {
			return nil, err
		}
		if !moved {
			break // already at the root
		}
	}
	if advanced, err := advance(); err != nil {
		return nil, err
	} else if !advanced {
		// Already at the root: nothing above it to ascend one more level
		// into, so the root itself is the scene root.
	}

	winTopF, winBotF := rat.ToFloat(winTop), rat.ToFloat(winBot)
	scale := 1 / (winBotF - winTopF)
	offset := -winTopF * scale
	minAbsProb := minHeight * (winBotF - winTopF)

	children := sceneChildren(ctx, view, prefix, scale, offset, 1.0, minAbsProb, 0, cfg.maxDepth)
	return &Scene[T]{Children: children, PrefixLength: len(prefix)}, nil
}

// sceneChildren lazily streams one level of the scene tree. scale and
// offset map probability-space extents into the viewport's [0,1] frame
// (global_y = offset + local_s*scale); absProb tracks this node's
// actual joint probability so minAbsProb (an absolute threshold set
// once at the scene root) can be compared against a relative minProb
// at every depth.
func sceneChildren[T comparable](ctx context.Context, view CDFView[T], prefix []T, scale, offset, absProb, minAbsProb float64, depth, maxDepth int) iter.Seq2[*SceneNode[T], error] {
	return func(yield func(*SceneNode[T], error) bool) {
		if depth >= maxDepth {
			return
		}

		rangeStart := -offset / scale
		rangeEnd := (1 - offset) / scale
		minProb := minAbsProb / absProb

		for ext, err := range view(ctx, prefix, rangeStart, rangeEnd, minProb, nil) {
			if err != nil {
				yield(nil, err)
				return
			}
			s, e := ext.Start, ext.End
			p := e - s

			node := &SceneNode[T]{
				Token: ext.Token,
				Y0:    offset + s*scale,
				Y1:    offset + e*scale,
			}
			childPrefix := append(append([]T{}, prefix...), ext.Token)
			node.Children = sceneChildren(ctx, view, childPrefix, scale*p, offset+s*scale, absProb*p, minAbsProb, depth+1, maxDepth)

			if !yield(node, nil) {
				return
			}
		}
	}
}
