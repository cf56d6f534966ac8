// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"math"

	"github.com/squarewriter/dashcore/internal/rat"
)

// Cursor is (prefix, x, y): a point in the unit square local to the
// square occupied by prefix. After normalisation, 0 <= x < 1, 0 <= y <
// 1, and no child of prefix contains (x, y).
type Cursor[T comparable] struct {
	Prefix []T
	X, Y   float64
}

const defaultMaxDepth = 100

type normaliseConfig struct {
	maxDepth int
}

// NormaliseOption configures Normalise.
type NormaliseOption func(*normaliseConfig)

// WithMaxDepth overrides the default maximum descent depth of 100.
func WithMaxDepth(n int) NormaliseOption {
	return func(c *normaliseConfig) { c.maxDepth = n }
}

// Normalise finds the canonical cursor for (prefix, x, y): it ascends
// out of range, clamps at the root if still out of range, and descends
// into the smallest enclosing child, repeating until an iteration does
// neither (§4.I). All arithmetic is performed in exact rational form
// (internal/rat) and only converted to float64 at the very end, so
// repeated normalisation at deep nesting does not drift (testable
// property 2, "position preservation").
func Normalise[T comparable](ctx context.Context, view CDFView[T], cursor Cursor[T], opts ...NormaliseOption) (Cursor[T], error) {
	cfg := normaliseConfig{maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}

	prefix := append([]T{}, cursor.Prefix...)
	x, err := rat.FromFloat(cursor.X)
	if err != nil {
		return Cursor[T]{}, wrapError(ArithmeticError, err)
	}
	y, err := rat.FromFloat(cursor.Y)
	if err != nil {
		return Cursor[T]{}, wrapError(ArithmeticError, err)
	}

	bound := len(prefix) + cfg.maxDepth + 2
	for iter := 0; ; iter++ {
		if iter >= bound {
			return Cursor[T]{Prefix: prefix, X: rat.ToFloat(x), Y: rat.ToFloat(y)},
				newError(DepthExceeded, "normalise: no fixed point within %d iterations", bound)
		}

		ascended := false
		if outOfUnitSquare(x, y) && len(prefix) > 0 {
			last := prefix[len(prefix)-1]
			parent := prefix[:len(prefix)-1]
			ext, ok, err := specific(ctx, view, parent, last)
			if err != nil {
				return Cursor[T]{}, err
			}
			if ok {
				c, p, err := extentToRat(ext)
				if err != nil {
					return Cursor[T]{}, err
				}
				x = rat.ONE.Sub(p).Add(x.Mul(p))
				y = c.Add(y.Mul(p))
				prefix = parent
				ascended = true
			}
		}

		if outOfUnitSquare(x, y) && len(prefix) == 0 {
			x = clampUnit(x)
			y = clampUnit(y)
		}

		descended := false
		if len(prefix) < cfg.maxDepth {
			xf, yf := rat.ToFloat(x), rat.ToFloat(y)
			minProb := 1 - xf
			for ext, err := range view(ctx, prefix, yf, yf, minProb, nil) {
				if err != nil {
					return Cursor[T]{}, err
				}
				c, p := ext.Start, ext.Prob()
				if xf >= 1-p && c <= yf && yf < c+p {
					cR, pR, err := extentToRat(ext)
					if err != nil {
						return Cursor[T]{}, err
					}
					newX, err := x.Sub(rat.ONE.Sub(pR)).Div(pR)
					if err != nil {
						return Cursor[T]{}, wrapError(ArithmeticError, err)
					}
					newY, err := y.Sub(cR).Div(pR)
					if err != nil {
						return Cursor[T]{}, wrapError(ArithmeticError, err)
					}
					x, y = newX, newY
					prefix = append(append([]T{}, prefix...), ext.Token)
					descended = true
					break
				}
			}
		}

		if !ascended && !descended {
			return Cursor[T]{Prefix: prefix, X: rat.ToFloat(x), Y: rat.ToFloat(y)}, nil
		}
	}
}

// ToGlobal maps cursor to its point in the top-level unit square via
// the fold described in §3 "Global coordinate": each prefix token of
// conditional probability p and cumulative-before c contributes
// size <- size*p, top <- top + c*size_prev; the final point is
// (1-size+x*size, top+y*size).
func ToGlobal[T comparable](ctx context.Context, view CDFView[T], cursor Cursor[T]) (gx, gy float64, err error) {
	size := rat.ONE
	top := rat.ZERO

	for i, tok := range cursor.Prefix {
		parent := cursor.Prefix[:i]
		ext, ok, err := specific(ctx, view, parent, tok)
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			return 0, 0, newError(ModelFailure, "toGlobal: token not found under its own prefix")
		}
		c, p, err := extentToRat(ext)
		if err != nil {
			return 0, 0, err
		}
		top = top.Add(c.Mul(size))
		size = size.Mul(p)
	}

	x, err := rat.FromFloat(cursor.X)
	if err != nil {
		return 0, 0, wrapError(ArithmeticError, err)
	}
	y, err := rat.FromFloat(cursor.Y)
	if err != nil {
		return 0, 0, wrapError(ArithmeticError, err)
	}

	resultX := rat.ONE.Sub(size).Add(x.Mul(size))
	resultY := top.Add(y.Mul(size))
	return rat.ToFloat(resultX), rat.ToFloat(resultY), nil
}

func outOfUnitSquare(x, y rat.Rat) bool {
	return x.Sign() < 0 || !x.Lt(rat.ONE) || y.Sign() < 0 || !y.Lt(rat.ONE)
}

// clampUnit clamps v into [0, 1-eps], eps being the smallest gap below
// 1 a float64 can represent; used only at the root when even ascending
// every prefix token left the cursor out of range.
func clampUnit(v rat.Rat) rat.Rat {
	if v.Sign() < 0 {
		return rat.ZERO
	}
	if !v.Lt(rat.ONE) {
		upper, _ := rat.FromFloat(math.Nextafter(1, 0))
		return upper
	}
	return v
}

func extentToRat[T comparable](ext TokenCDFExtent[T]) (start, prob rat.Rat, err error) {
	start, err = rat.FromFloat(ext.Start)
	if err != nil {
		return rat.Rat{}, rat.Rat{}, wrapError(ArithmeticError, err)
	}
	prob, err = rat.FromFloat(ext.Prob())
	if err != nil {
		return rat.Rat{}, rat.Rat{}, wrapError(ArithmeticError, err)
	}
	return start, prob, nil
}
