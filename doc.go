// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package dashcore is the computational core of a Dasher-style,
// information-theoretic text input widget. A language model induces a
// recursive tiling of the unit square: every prefix occupies a square
// whose side equals its joint probability, and the next-token
// distribution carves that square into vertically stacked child
// squares right-aligned so a gap appears on the left. A continuous
// cursor navigates this tiling; the prefix under the cursor becomes
// the written text.
//
// dashcore does not render anything and does not talk to any concrete
// model backend. It provides:
//
//   - a polymorphic CDF view over token distributions ([CDFView]),
//   - a byte-level-to-codepoint adapter that lazily walks UTF-8
//     ([ByteModel], [NewCodepointView]),
//   - a model interpolator ([Interpolate]),
//   - a cursor normaliser ([Normalise], [ToGlobal]),
//   - a scene builder for the renderer ([BuildScene]),
//   - a generation-evicted trie cache for byte-keyed predictions
//     (internal/triecache, exposed via [Session]),
//   - exact dyadic rational arithmetic for float-exact position
//     preservation (internal/rat), and
//   - async-stream primitives for racing and merging lazy sequences
//     (internal/stream).
//
// All streaming contracts are expressed as Go 1.23 push iterators
// (iter.Seq2[T, error]): a consumer that stops pulling releases every
// resource the producer was holding, and an error from any branch
// surfaces to the consumer without further entries.
package dashcore
