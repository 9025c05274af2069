package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ComposeLimiter Tests
// ----------------------------------------------------------------------------

func TestComposeLimiterAcquireRelease(t *testing.T) {
	l := NewComposeLimiter(2, time.Second)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire = %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire = %v", err)
	}
	if got := l.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := l.Available(); got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}

	l.Release()
	l.Release()
	if got := l.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after release = %d, want 0", got)
	}
}

func TestComposeLimiterRejectsWhenFull(t *testing.T) {
	l := NewComposeLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire = %v", err)
	}
	defer l.Release()

	err := l.Acquire(ctx)
	if !errors.Is(err, ErrTooManyCompositions) {
		t.Errorf("Acquire when full = %v, want ErrTooManyCompositions", err)
	}
}

func TestComposeLimiterSlotFreesAfterRelease(t *testing.T) {
	l := NewComposeLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	l.Release()

	if err := l.Acquire(ctx); err != nil {
		t.Errorf("Acquire after Release = %v, want nil", err)
	}
	l.Release()
}

func TestComposeLimiterCancelledContext(t *testing.T) {
	l := NewComposeLimiter(1, time.Second)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Acquire(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire with cancelled context = %v, want context.Canceled", err)
	}
}

func TestComposeLimiterDefaults(t *testing.T) {
	l := NewComposeLimiter(0, 0)
	status := l.Status()
	if status.MaxConcurrent != DefaultMaxConcurrentCompositions {
		t.Errorf("MaxConcurrent = %d, want default %d",
			status.MaxConcurrent, DefaultMaxConcurrentCompositions)
	}
}

func TestComposeLimiterWaitForDrain(t *testing.T) {
	l := NewComposeLimiter(1, time.Second)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		drainCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		done <- l.WaitForDrain(drainCtx)
	}()

	time.Sleep(50 * time.Millisecond)
	l.Release()

	if err := <-done; err != nil {
		t.Errorf("WaitForDrain = %v, want nil after release", err)
	}
}

func TestComposeLimiterStatus(t *testing.T) {
	l := NewComposeLimiter(3, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	status := l.Status()
	if status.Active != 1 || status.Available != 2 || status.MaxConcurrent != 3 {
		t.Errorf("Status = %+v, want 1 active, 2 available of 3", status)
	}
}
