package resilience

import (
	"testing"
	"time"
)

func TestAIMD_IncreasesOnSuccessDecreasesOnFailure(t *testing.T) {
	a, err := NewAIMD(AIMDConfig{
		AdaptiveConfig: AdaptiveConfig{InitialLimit: 10, MinLimit: 1, MaxLimit: 100},
		IncreaseBy:     1,
		DecreaseFactor: 0.5,
	})
	if err != nil {
		t.Fatalf("NewAIMD() error = %v", err)
	}

	a.Update(true, 0)
	if got := a.Limit(); got != 11 {
		t.Errorf("after a success, limit = %d, want 11", got)
	}

	a.Update(false, 0)
	if got := a.Limit(); got != 5 {
		t.Errorf("after a failure, limit = %d, want floor(11*0.5)=5", got)
	}
}

func TestAIMD_NegativeLatencySignal(t *testing.T) {
	a, _ := NewAIMD(AIMDConfig{
		AdaptiveConfig:   AdaptiveConfig{InitialLimit: 10, MinLimit: 1, MaxLimit: 100},
		DecreaseFactor:   0.5,
		LatencyThreshold: 100 * time.Millisecond,
	})
	a.Update(true, 200*time.Millisecond) // success but slow: negative signal
	if got := a.Limit(); got != 5 {
		t.Errorf("a slow success should decrease the limit, got %d want 5", got)
	}
}

func TestAIMD_StaysWithinBounds(t *testing.T) {
	a, _ := NewAIMD(AIMDConfig{AdaptiveConfig: AdaptiveConfig{InitialLimit: 1, MinLimit: 1, MaxLimit: 3}, IncreaseBy: 10})
	for i := 0; i < 10; i++ {
		a.Update(true, 0)
		if got := a.Limit(); got < 1 || got > 3 {
			t.Fatalf("limit = %d, want within [1,3]", got)
		}
	}
	a.Update(false, 0)
	if got := a.Limit(); got < 1 {
		t.Fatalf("limit = %d, want >= min_limit=1", got)
	}
}

func TestNewAIMD_RejectsMinGreaterThanMax(t *testing.T) {
	_, err := NewAIMD(AIMDConfig{AdaptiveConfig: AdaptiveConfig{MinLimit: 10, MaxLimit: 5}})
	if err == nil {
		t.Error("expected an error when min_limit > max_limit")
	}
}

func TestVegas_AdjustsAfterMinSamples(t *testing.T) {
	v, err := NewVegas(VegasConfig{
		AdaptiveConfig: AdaptiveConfig{InitialLimit: 10, MinLimit: 1, MaxLimit: 100},
		MinSamples:     3,
	})
	if err != nil {
		t.Fatalf("NewVegas() error = %v", err)
	}

	// Below MinSamples: limit must not move yet.
	v.Success(10 * time.Millisecond)
	v.Success(10 * time.Millisecond)
	if got := v.Limit(); got != 10 {
		t.Fatalf("limit should not move before min_samples, got %d", got)
	}

	// Crossing MinSamples with a low, stable RTT (queue estimate near 0)
	// should increase the limit.
	v.Success(10 * time.Millisecond)
	if got := v.Limit(); got != 11 {
		t.Errorf("with queue estimate near 0, limit = %d, want 11", got)
	}
}

func TestVegas_FailureHalvesLimit(t *testing.T) {
	v, _ := NewVegas(VegasConfig{AdaptiveConfig: AdaptiveConfig{InitialLimit: 10, MinLimit: 1, MaxLimit: 100}})
	v.Failure()
	if got := v.Limit(); got != 5 {
		t.Errorf("Failure() should halve the limit, got %d want 5", got)
	}
}

func TestVegas_StaysWithinBounds(t *testing.T) {
	v, _ := NewVegas(VegasConfig{AdaptiveConfig: AdaptiveConfig{InitialLimit: 2, MinLimit: 1, MaxLimit: 2}, MinSamples: 1})
	for i := 0; i < 5; i++ {
		v.Success(time.Millisecond)
		if got := v.Limit(); got < 1 || got > 2 {
			t.Fatalf("limit = %d, want within [1,2]", got)
		}
	}
}

func TestNewVegas_RejectsMinGreaterThanMax(t *testing.T) {
	_, err := NewVegas(VegasConfig{AdaptiveConfig: AdaptiveConfig{MinLimit: 10, MaxLimit: 5}})
	if err == nil {
		t.Error("expected an error when min_limit > max_limit")
	}
}
