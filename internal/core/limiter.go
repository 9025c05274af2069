package core

// limiter.go implements concurrency control for workbook composition.
//
// The limiter uses a semaphore pattern to restrict parallel compositions
// to a configurable maximum. When all slots are occupied, new requests
// wait up to maxWait before failing with ErrTooManyCompositions.
//
// The limiter also supports graceful shutdown via WaitForDrain, which
// blocks until all in-flight compositions complete.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyCompositions is returned when all composition slots are
// occupied and the wait timeout expires. Clients should retry after a
// short delay.
var ErrTooManyCompositions = errors.New("too many concurrent compositions, please try again later")

// DefaultMaxConcurrentCompositions is the default limit for parallel
// compositions.
const DefaultMaxConcurrentCompositions = 8

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ComposeLimiter restricts how many workbooks are being composed at once.
// Large documents hold both the serialized buffer and the workbook object
// in memory, so the ceiling is on compositions, not connections.
type ComposeLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewComposeLimiter creates a limiter allowing at most maxConcurrent
// simultaneous compositions. Requests that cannot acquire a slot within
// maxWait receive ErrTooManyCompositions.
func NewComposeLimiter(maxConcurrent int, maxWait time.Duration) *ComposeLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCompositions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ComposeLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a composition slot. Returns nil on success,
// ErrTooManyCompositions when the wait times out. The caller MUST call
// Release when the composition completes (use defer).
func (l *ComposeLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyCompositions

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a previously acquired slot. Must be called exactly
// once for each successful Acquire.
func (l *ComposeLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of in-flight compositions.
func (l *ComposeLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *ComposeLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all in-flight compositions complete or the
// context is cancelled. Used during graceful shutdown.
func (l *ComposeLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// ComposeLimiterStatus is a snapshot of the limiter's state for the
// health endpoint.
type ComposeLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *ComposeLimiter) Status() ComposeLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return ComposeLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
