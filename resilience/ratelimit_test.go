package resilience

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_FixedWindowFirstLimitGrantsImmediately(t *testing.T) {
	svc := &scriptedService{}
	rl, err := NewRateLimiter[struct{}, struct{}](RateLimiterConfig{
		Name:           "fixed",
		LimitForPeriod: 3,
		RefreshPeriod:  time.Second,
		WindowType:     Fixed,
	}, svc)
	if err != nil {
		t.Fatalf("NewRateLimiter() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		start := time.Now()
		if _, err := rl.Call(context.Background(), struct{}{}); err != nil {
			t.Fatalf("acquire %d should be granted, got %v", i, err)
		}
		if time.Since(start) > 20*time.Millisecond {
			t.Errorf("acquire %d should not have waited, took %v", i, time.Since(start))
		}
	}
}

func TestRateLimiter_FixedWindowRejectionWithShortTimeout(t *testing.T) {
	// limit=2, refresh=1s, timeout=10ms: a third call within the window
	// waits longer than the timeout allows and is rejected.
	svc := &scriptedService{}
	rl, _ := NewRateLimiter[struct{}, struct{}](RateLimiterConfig{
		Name:            "rej",
		LimitForPeriod:  2,
		RefreshPeriod:   time.Second,
		TimeoutDuration: 10 * time.Millisecond,
		WindowType:      Fixed,
	}, svc)

	var rejected bool
	rl.Events.Subscribe(func(ev Event) {
		if _, ok := ev.(RateLimiterPermitRejectedEvent); ok {
			rejected = true
		}
	})

	rl.Call(context.Background(), struct{}{})
	rl.Call(context.Background(), struct{}{})
	_, err := rl.Call(context.Background(), struct{}{})

	if !IsKind(err, KindRateLimited) {
		t.Errorf("3rd acquire should be rejected, got %v", err)
	}
	if !rejected {
		t.Error("expected a PermitRejected event")
	}
}

func TestRateLimiter_TimeoutZeroNeverSleeps(t *testing.T) {
	svc := &scriptedService{}
	rl, _ := NewRateLimiter[struct{}, struct{}](RateLimiterConfig{
		Name:            "zt",
		LimitForPeriod:  1,
		RefreshPeriod:   time.Hour,
		TimeoutDuration: 0,
		WindowType:      Fixed,
	}, svc)

	rl.Call(context.Background(), struct{}{})
	start := time.Now()
	_, err := rl.Call(context.Background(), struct{}{})
	if time.Since(start) > 20*time.Millisecond {
		t.Errorf("timeout_duration=0 should never sleep, took %v", time.Since(start))
	}
	if !IsKind(err, KindRateLimited) {
		t.Errorf("expected rejection with timeout_duration=0 and no permits left, got %v", err)
	}
}

func TestRateLimiter_SlidingLogPrunesOldEntries(t *testing.T) {
	svc := &scriptedService{}
	rl, _ := NewRateLimiter[struct{}, struct{}](RateLimiterConfig{
		Name:           "log",
		LimitForPeriod: 1,
		RefreshPeriod:  20 * time.Millisecond,
		WindowType:     SlidingLog,
	}, svc)

	if _, err := rl.Call(context.Background(), struct{}{}); err != nil {
		t.Fatalf("first acquire should be granted, got %v", err)
	}
	if _, err := rl.Call(context.Background(), struct{}{}); err == nil {
		t.Fatal("second immediate acquire should be rejected under limit=1")
	}

	time.Sleep(25 * time.Millisecond)
	if _, err := rl.Call(context.Background(), struct{}{}); err != nil {
		t.Errorf("acquire after refresh_period elapses should be granted, got %v", err)
	}
}

func TestRateLimiter_SlidingCounterRespectsLimit(t *testing.T) {
	svc := &scriptedService{}
	rl, _ := NewRateLimiter[struct{}, struct{}](RateLimiterConfig{
		Name:           "counter",
		LimitForPeriod: 2,
		RefreshPeriod:  time.Second,
		WindowType:     SlidingCounter,
	}, svc)

	rl.Call(context.Background(), struct{}{})
	rl.Call(context.Background(), struct{}{})
	_, err := rl.Call(context.Background(), struct{}{})
	if !IsKind(err, KindRateLimited) {
		t.Errorf("3rd acquire within the same bucket over the limit should reject, got %v", err)
	}
}

func TestRateLimiterConfig_ValidateRejectsNonPositiveLimit(t *testing.T) {
	cfg := RateLimiterConfig{Name: "bad", LimitForPeriod: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate() to reject a non-positive limit_for_period")
	}
}
