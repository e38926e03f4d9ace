package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewBucket_StartsFull(t *testing.T) {
	t.Parallel()
	b := NewBucket(10, 5)

	if got := b.Available(); got < 4.9 || got > 5 {
		t.Errorf("expected a full bucket of ~5 tokens, got %v", got)
	}
}

func TestNewBucket_BurstDefaultsToRate(t *testing.T) {
	t.Parallel()
	b := NewBucket(7, 0)

	if b.burst != 7 {
		t.Errorf("expected burst to default to rate 7, got %v", b.burst)
	}
}

func TestBucket_AllowConsumesTokens(t *testing.T) {
	t.Parallel()
	b := NewBucket(0.001, 2) // near-zero refill so the drain is observable

	if !b.Allow() {
		t.Fatal("first Allow should succeed")
	}
	if !b.Allow() {
		t.Fatal("second Allow should succeed")
	}
	if b.Allow() {
		t.Error("third Allow should fail on a drained bucket")
	}
}

func TestBucket_Refills(t *testing.T) {
	t.Parallel()
	b := NewBucket(100, 1)

	if !b.Allow() {
		t.Fatal("first Allow should succeed")
	}
	// 100 tokens/sec refills a burst-1 bucket within 10ms.
	time.Sleep(30 * time.Millisecond)
	if !b.Allow() {
		t.Error("Allow should succeed again after refill")
	}
}

func TestBucket_WaitReturnsImmediatelyWithTokens(t *testing.T) {
	t.Parallel()
	b := NewBucket(1, 1)

	start := time.Now()
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Wait with tokens available took %v, expected near-instant", elapsed)
	}
}

func TestBucket_WaitBlocksUntilRefill(t *testing.T) {
	t.Parallel()
	b := NewBucket(20, 1) // one token every 50ms

	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait returned error: %v", err)
	}

	start := time.Now()
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("second Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("second Wait returned after %v, expected it to block for the refill", elapsed)
	}
}

func TestBucket_WaitHonorsContext(t *testing.T) {
	t.Parallel()
	b := NewBucket(0.01, 1) // next token is ~100s away
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := b.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestBucket_Reset(t *testing.T) {
	t.Parallel()
	b := NewBucket(0.001, 3)

	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("Allow #%d should succeed", i+1)
		}
	}
	if b.Allow() {
		t.Fatal("bucket should be drained")
	}

	b.Reset()
	if !b.Allow() {
		t.Error("Allow should succeed after Reset")
	}
}
