// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/squarewriter/dashcore/internal/triecache"
)

// Session bundles the mutable state a single interactive caret owns:
// the prediction cache, a logger, and the monotonic request-token
// tracker that implements §5's cancellation pattern ("when a later
// request is started, earlier in-flight ones are cancelled and their
// results discarded on arrival"). The cache lives in the Session (a
// caller hands Session.Cache to NewCodepointView) so it stays an object
// owned by the caller rather than process-wide state.
type Session struct {
	Cache  *triecache.Cache[ByteDistribution]
	Logger *zerolog.Logger

	mu      sync.Mutex
	latest  map[string]uuid.UUID
	cancels map[string]context.CancelFunc
}

// NewSession constructs a Session around cache and logger. Either may
// be nil; a nil logger means no session-level logging, a nil cache
// means callers build their own CDFView without the trie cache layer.
func NewSession(cache *triecache.Cache[ByteDistribution], logger *zerolog.Logger) *Session {
	return &Session{
		Cache:   cache,
		Logger:  logger,
		latest:  make(map[string]uuid.UUID),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Begin starts a new request under key (e.g. "normalise" or
// "buildScene", or a per-cursor identity if multiple cursors share one
// session): any previously in-flight request under the same key is
// cancelled immediately, and its result — if it arrives anyway — is
// stale and should be discarded by the caller's own comparison against
// the token Begin returns. The returned context is cancelled either by
// a later Begin under the same key or by ctx's own cancellation.
func (s *Session) Begin(ctx context.Context, key string) (context.Context, uuid.UUID) {
	token := uuid.New()
	child, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if prevCancel, ok := s.cancels[key]; ok {
		prevCancel()
	}
	s.latest[key] = token
	s.cancels[key] = cancel
	s.mu.Unlock()

	if s.Logger != nil {
		s.Logger.Debug().Str("key", key).Str("token", token.String()).Msg("session: request started")
	}
	return child, token
}

// Stale reports whether token is no longer the latest request started
// under key — i.e. a newer Begin call has superseded it. Callers should
// check this before acting on a result that arrived after a slow
// model call, discarding it if Stale reports true.
func (s *Session) Stale(key string, token uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[key] != token
}

// End releases the bookkeeping for key's request once it completes. It
// may be called whether or not token is still the latest: if a later
// Begin has already replaced the entry, End is a no-op.
func (s *Session) End(key string, token uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[key] == token {
		delete(s.latest, key)
		delete(s.cancels, key)
	}
}

// Close cancels every in-flight request tracked by the session. Safe
// to call multiple times.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cancel := range s.cancels {
		cancel()
		delete(s.cancels, key)
		delete(s.latest, key)
	}
}
