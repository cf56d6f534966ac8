// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsAllRequests(t *testing.T) {
	pool := NewWorkerPool[int](context.Background(), 3)
	defer pool.Dispose()

	var sum int64
	const n = 20
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			v, err := pool.Do(context.Background(), WorkRequest[int]{
				Do: func(ctx context.Context) (int, error) { return i, nil },
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
			atomic.AddInt64(&sum, int64(v))
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	if want := int64(n * (n - 1) / 2); sum != want {
		t.Errorf("sum = %d, want %d", sum, want)
	}
}

func TestWorkerPoolAtMostOneInFlightPerWorker(t *testing.T) {
	pool := NewWorkerPool[int](context.Background(), 2)
	defer pool.Dispose()

	var active, maxActive int64
	const n = 10
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			_, _ = pool.Do(context.Background(), WorkRequest[int]{
				Do: func(ctx context.Context) (int, error) {
					cur := atomic.AddInt64(&active, 1)
					for {
						m := atomic.LoadInt64(&maxActive)
						if cur <= m || atomic.CompareAndSwapInt64(&maxActive, m, cur) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					atomic.AddInt64(&active, -1)
					return 0, nil
				},
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	if maxActive > 2 {
		t.Errorf("max concurrent in-flight = %d, want <= 2", maxActive)
	}
}

func TestWorkerPoolDisposeRejectsPending(t *testing.T) {
	pool := NewWorkerPool[int](context.Background(), 1)

	blocker := make(chan struct{})
	resultCh := make(chan error, 1)
	go func() {
		_, err := pool.Do(context.Background(), WorkRequest[int]{
			Do: func(ctx context.Context) (int, error) {
				<-blocker
				return 0, nil
			},
		})
		resultCh <- err
	}()

	// Give the blocking request time to claim the sole worker.
	time.Sleep(10 * time.Millisecond)

	queuedErr := make(chan error, 1)
	go func() {
		_, err := pool.Do(context.Background(), WorkRequest[int]{
			Do: func(ctx context.Context) (int, error) { return 1, nil },
		})
		queuedErr <- err
	}()

	time.Sleep(10 * time.Millisecond)
	pool.Dispose()
	close(blocker)

	if err := <-queuedErr; !AsKind(err, Cancelled) {
		t.Errorf("queued request error kind = %v, want Cancelled", err)
	}
	<-resultCh
}

func TestWorkerPoolSubmitAfterDisposeFails(t *testing.T) {
	pool := NewWorkerPool[int](context.Background(), 1)
	pool.Dispose()

	_, err := pool.Do(context.Background(), WorkRequest[int]{
		Do: func(ctx context.Context) (int, error) { return 0, nil },
	})
	if !AsKind(err, Cancelled) {
		t.Errorf("error kind = %v, want Cancelled", err)
	}
}
