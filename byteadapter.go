// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"iter"
	"sync"
	"unicode/utf8"

	"github.com/squarewriter/dashcore/internal/stream"
	"github.com/squarewriter/dashcore/internal/triecache"
)

// NewCodepointView builds a CDFView[rune] over a ByteModel: it walks
// UTF-8 lazily, exposing whole codepoints as tokens while pruning
// continuation-byte sub-trees that fall outside the caller's range or
// minProb window (§4.F).
//
// cache, if non-nil, memoises raw byte-distribution lookups keyed by
// byte prefix; a nil cache issues one model call per distinct byte
// prefix with no memoisation, useful for tests and one-shot callers.
// Every distribution is fetched at minProb=0 regardless of the
// caller's minProb, so repeated queries against the same byte prefix
// are cache-coherent (the model must return every non-zero entry, so
// there is nothing for a higher minProb to legitimately omit that a
// cached minProb=0 fetch wouldn't already have); the caller's minProb
// and range are applied as a pure filter over the cached distribution.
func NewCodepointView(byteModel ByteModel, cache *triecache.Cache[ByteDistribution]) CDFView[rune] {
	bq := &byteQuery{byteModel: byteModel, cache: cache}

	return func(ctx context.Context, prefix []rune, rangeStart, rangeEnd, minProb float64, specificToken *rune) iter.Seq2[TokenCDFExtent[rune], error] {
		bytePrefix := []byte(string(prefix))

		if specificToken != nil {
			return func(yield func(TokenCDFExtent[rune], error) bool) {
				ext, ok, err := bq.specificTokenExtent(ctx, bytePrefix, *specificToken)
				if err != nil {
					yield(TokenCDFExtent[rune]{}, err)
					return
				}
				if ok {
					yield(ext, nil)
				}
			}
		}
		return bq.expand(ctx, bytePrefix, rangeStart, rangeEnd, minProb)
	}
}

type byteQuery struct {
	byteModel ByteModel
	cache     *triecache.Cache[ByteDistribution]
}

// predict fetches (and, if a cache is configured, memoises) the
// full-fidelity next-byte distribution for bytePrefix.
func (bq *byteQuery) predict(ctx context.Context, bytePrefix []byte) (ByteDistribution, error) {
	fetch := func(ctx context.Context) (ByteDistribution, error) {
		d, err := bq.byteModel(ctx, bytePrefix, 0)
		if err != nil {
			return ByteDistribution{}, wrapError(ModelFailure, err)
		}
		if err := validateByteDistribution(d); err != nil {
			return ByteDistribution{}, err
		}
		return d, nil
	}
	if bq.cache == nil {
		return fetch(ctx)
	}
	return bq.cache.GetOrSet(ctx, bytePrefix, fetch)
}

// leadEntry is one non-zero first-byte entry with its cumulative-start
// position, computed in fixed ascending byte order so a codepoint's
// extent never depends on the query window (testable property 1).
type leadEntry struct {
	b     byte
	start float64
	p     float64
}

// expand is the top-level entry point: fetch the first-byte
// distribution, emit ASCII leaves directly, and fan out one recursive
// expansion per surviving multi-byte lead group, merged as they
// produce results.
func (bq *byteQuery) expand(ctx context.Context, bytePrefix []byte, rangeStart, rangeEnd, minProb float64) iter.Seq2[TokenCDFExtent[rune], error] {
	return func(yield func(TokenCDFExtent[rune], error) bool) {
		dist, err := bq.predict(ctx, bytePrefix)
		if err != nil {
			yield(TokenCDFExtent[rune]{}, err)
			return
		}

		leads := cumulativeLeads(dist)

		var groups []iter.Seq2[TokenCDFExtent[rune], error]
		for _, e := range leads {
			if e.b <= 0x7F {
				start, end := e.start, e.start+e.p
				if end < rangeStart || start > rangeEnd || end-start < minProb {
					continue
				}
				if !yield(TokenCDFExtent[rune]{Token: rune(e.b), Start: start, End: end}, nil) {
					return
				}
				continue
			}

			length := utf8LeadLength(e.b)
			if length == 0 {
				continue // model assigned probability to an invalid lead byte; ignore defensively
			}
			groupStart, groupEnd := e.start, e.start+e.p
			if groupEnd < rangeStart || groupStart > rangeEnd || e.p < minProb {
				continue // testable property 8: no continuation call for a pruned group
			}
			nextPrefix := append(append([]byte{}, bytePrefix...), e.b)
			groups = append(groups, bq.expandContinuation(ctx, nextPrefix, length, 1, e.start, e.p, rangeStart, rangeEnd, minProb))
		}

		for ext, err := range mergeExtents(ctx, groups...) {
			if !yield(ext, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// expandContinuation recurses one continuation byte at a time into a
// multi-byte lead group. groupStart/groupWidth describe this group's
// extent in the root's [0,1] coordinate frame; at each level the
// window and minProb are mapped into the group's *local* frame so the
// pruning decision (step 5/6) is made in the same units the model
// itself reports probabilities in.
func (bq *byteQuery) expandContinuation(ctx context.Context, bytePrefix []byte, length, depth int, groupStart, groupWidth, rangeStart, rangeEnd, minProb float64) iter.Seq2[TokenCDFExtent[rune], error] {
	return func(yield func(TokenCDFExtent[rune], error) bool) {
		if depth == length {
			cp, size := utf8.DecodeRune(bytePrefix[len(bytePrefix)-length:])
			if cp == utf8.RuneError && size <= 1 {
				return // model produced a malformed sequence; drop it rather than surface garbage
			}
			yield(TokenCDFExtent[rune]{Token: cp, Start: groupStart, End: groupStart + groupWidth}, nil)
			return
		}

		localRangeStart := (rangeStart - groupStart) / groupWidth
		localRangeEnd := (rangeEnd - groupStart) / groupWidth
		localMinProb := minProb / groupWidth

		dist, err := bq.predict(ctx, bytePrefix)
		if err != nil {
			yield(TokenCDFExtent[rune]{}, err)
			return
		}

		var next []iter.Seq2[TokenCDFExtent[rune], error]
		cum := 0.0
		for b := 0; b < 256; b++ {
			p := dist[b]
			if p <= 0 {
				continue
			}
			localStart, localEnd := cum, cum+p
			cum = localEnd

			if localEnd < localRangeStart || localStart > localRangeEnd || p < localMinProb {
				continue
			}
			childPrefix := append(append([]byte{}, bytePrefix...), byte(b))
			childStart := groupStart + localStart*groupWidth
			childWidth := p * groupWidth
			next = append(next, bq.expandContinuation(ctx, childPrefix, length, depth+1, childStart, childWidth, rangeStart, rangeEnd, minProb))
		}

		for ext, err := range mergeExtents(ctx, next...) {
			if !yield(ext, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// specificTokenExtent implements the fast path: encode token to its L
// UTF-8 bytes, fire the L prefix-length queries in parallel, then walk
// the results in byte order accumulating the nested extent. Produces
// ok=false if any byte in the sequence has zero probability.
func (bq *byteQuery) specificTokenExtent(ctx context.Context, prefix []byte, token rune) (TokenCDFExtent[rune], bool, error) {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], token)
	encoded := buf[:n]

	starts := make([]float64, n)
	probs := make([]float64, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			bp := append(append([]byte{}, prefix...), encoded[:i]...)
			dist, err := bq.predict(ctx, bp)
			if err != nil {
				errs[i] = err
				return
			}
			cum := 0.0
			for b := 0; b < int(encoded[i]); b++ {
				cum += dist[b]
			}
			starts[i] = cum
			probs[i] = dist[encoded[i]]
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return TokenCDFExtent[rune]{}, false, err
		}
	}

	groupStart, groupWidth := 0.0, 1.0
	for i := 0; i < n; i++ {
		if probs[i] <= 0 {
			return TokenCDFExtent[rune]{}, false, nil
		}
		groupStart += starts[i] * groupWidth
		groupWidth *= probs[i]
	}
	return TokenCDFExtent[rune]{Token: token, Start: groupStart, End: groupStart + groupWidth}, true, nil
}

func cumulativeLeads(dist ByteDistribution) []leadEntry {
	var leads []leadEntry
	cum := 0.0
	for b := 0; b < 256; b++ {
		p := dist[b]
		if p <= 0 {
			continue
		}
		leads = append(leads, leadEntry{byte(b), cum, p})
		cum += p
	}
	return leads
}

// extOrErr pairs an extent with its error so error-aware sequences can
// ride through the error-oblivious internal/stream.Merge primitive.
type extOrErr struct {
	ext TokenCDFExtent[rune]
	err error
}

// mergeExtents fans sibling continuation expansions out across
// goroutines via internal/stream.Merge, stopping every branch as soon
// as one yields an error or the consumer stops pulling.
func mergeExtents(ctx context.Context, seqs ...iter.Seq2[TokenCDFExtent[rune], error]) iter.Seq2[TokenCDFExtent[rune], error] {
	wrapped := make([]iter.Seq[extOrErr], len(seqs))
	for i, s := range seqs {
		s := s
		wrapped[i] = func(yield func(extOrErr) bool) {
			for ext, err := range s {
				if !yield(extOrErr{ext, err}) {
					return
				}
				if err != nil {
					return
				}
			}
		}
	}
	return func(yield func(TokenCDFExtent[rune], error) bool) {
		for pair := range stream.Merge(ctx, wrapped...) {
			if !yield(pair.ext, pair.err) {
				return
			}
			if pair.err != nil {
				return
			}
		}
	}
}
