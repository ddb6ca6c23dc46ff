package resilience

import (
	"errors"
	"sync/atomic"
	"time"
)

// AdaptiveConfig configures either adaptive concurrency algorithm.
type AdaptiveConfig struct {
	InitialLimit int64
	MinLimit     int64
	MaxLimit     int64
}

func (c AdaptiveConfig) clamp(limit int64) int64 {
	if limit < c.MinLimit {
		return c.MinLimit
	}
	if limit > c.MaxLimit {
		return c.MaxLimit
	}
	return limit
}

// AIMDConfig configures an AIMD adaptive limit controller.
type AIMDConfig struct {
	AdaptiveConfig
	IncreaseBy           int64
	DecreaseFactor       float64       // multiplicative decrease, default 0.5
	LatencyThreshold     time.Duration // duration at/above which a signal counts as negative
}

// AIMD is an additive-increase/multiplicative-decrease concurrency
// limiter. Limit is always clamped to [MinLimit, MaxLimit].
type AIMD struct {
	cfg   AIMDConfig
	limit atomic.Int64
}

// NewAIMD builds an AIMD controller. min_limit > max_limit is rejected.
func NewAIMD(cfg AIMDConfig) (*AIMD, error) {
	if cfg.MinLimit > cfg.MaxLimit {
		return nil, errMinGreaterThanMax("aimd")
	}
	if cfg.IncreaseBy <= 0 {
		cfg.IncreaseBy = 1
	}
	if cfg.DecreaseFactor <= 0 || cfg.DecreaseFactor >= 1 {
		cfg.DecreaseFactor = 0.5
	}
	if cfg.InitialLimit == 0 {
		cfg.InitialLimit = cfg.MinLimit
	}
	a := &AIMD{cfg: cfg}
	a.limit.Store(cfg.clamp(cfg.InitialLimit))
	return a, nil
}

// Limit returns the current limit.
func (a *AIMD) Limit() int64 { return a.limit.Load() }

// Update reports the outcome of one completed call. A failed call, or a
// call whose latency is at/above LatencyThreshold (when set), is a
// negative signal; otherwise positive. Dropped (never-started) requests
// must not call Update.
func (a *AIMD) Update(success bool, latency time.Duration) {
	negative := !success || (a.cfg.LatencyThreshold > 0 && latency >= a.cfg.LatencyThreshold)
	for {
		cur := a.limit.Load()
		var next int64
		if negative {
			next = a.cfg.clamp(int64(float64(cur) * a.cfg.DecreaseFactor))
		} else {
			next = a.cfg.clamp(cur + a.cfg.IncreaseBy)
		}
		if a.limit.CompareAndSwap(cur, next) {
			return
		}
	}
}

// VegasConfig configures a Vegas adaptive limit controller.
type VegasConfig struct {
	AdaptiveConfig
	Alpha       float64 // queue estimate below which the limit increases; default 3
	Beta        float64 // queue estimate above which the limit decreases; default 6
	Smoothing   float64 // EMA smoothing factor for RTT; default 0.5
	MinSamples  int64   // samples required before adjusting; default 10
}

// Vegas is a delay-based adaptive concurrency limiter: it tracks the
// minimum observed RTT (a monotone minimum via CAS) and a smoothed RTT
// (exponential moving average), and estimates queueing delay from their
// ratio. Grounded on the original Rust tower-resilience-adaptive crate's
// Vegas::update_rtt/adjust_limit.
type Vegas struct {
	cfg VegasConfig

	limit         atomic.Int64
	minRTTNanos   atomic.Int64
	smoothedNanos atomic.Int64
	sampleCount   atomic.Int64
}

// NewVegas builds a Vegas controller.
func NewVegas(cfg VegasConfig) (*Vegas, error) {
	if cfg.MinLimit > cfg.MaxLimit {
		return nil, errMinGreaterThanMax("vegas")
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = 3
	}
	if cfg.Beta <= 0 {
		cfg.Beta = 6
	}
	if cfg.Smoothing <= 0 || cfg.Smoothing > 1 {
		cfg.Smoothing = 0.5
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 10
	}
	if cfg.InitialLimit == 0 {
		cfg.InitialLimit = cfg.MinLimit
	}
	v := &Vegas{cfg: cfg}
	v.limit.Store(cfg.clamp(cfg.InitialLimit))
	v.minRTTNanos.Store(int64(^uint64(0) >> 1)) // max int64: no sample yet
	return v, nil
}

// Limit returns the current limit.
func (v *Vegas) Limit() int64 { return v.limit.Load() }

// updateRTT folds a new RTT sample into the monotone minimum (via a CAS
// loop) and the smoothed EMA.
func (v *Vegas) updateRTT(rtt time.Duration) {
	nanos := int64(rtt)
	for {
		cur := v.minRTTNanos.Load()
		if nanos >= cur {
			break
		}
		if v.minRTTNanos.CompareAndSwap(cur, nanos) {
			break
		}
	}

	for {
		cur := v.smoothedNanos.Load()
		var next int64
		if cur == 0 {
			next = nanos
		} else {
			next = int64(float64(cur)*(1-v.cfg.Smoothing) + float64(nanos)*v.cfg.Smoothing)
		}
		if v.smoothedNanos.CompareAndSwap(cur, next) {
			break
		}
	}
	v.sampleCount.Add(1)
}

// Success reports a successful call's RTT and adjusts the limit via the
// queue-estimate formula once MinSamples samples have been collected.
func (v *Vegas) Success(rtt time.Duration) {
	v.updateRTT(rtt)
	if v.sampleCount.Load() < v.cfg.MinSamples {
		return
	}

	minRTT := v.minRTTNanos.Load()
	smoothed := v.smoothedNanos.Load()
	if minRTT <= 0 {
		return
	}
	for {
		limit := v.limit.Load()
		queue := (float64(smoothed) - float64(minRTT)) / float64(minRTT) * float64(limit)
		var next int64
		switch {
		case queue < v.cfg.Alpha:
			next = v.cfg.clamp(limit + 1)
		case queue > v.cfg.Beta:
			next = v.cfg.clamp(limit - 1)
		default:
			next = limit
		}
		if v.limit.CompareAndSwap(limit, next) {
			return
		}
	}
}

// Failure halves the limit immediately.
func (v *Vegas) Failure() {
	for {
		limit := v.limit.Load()
		next := v.cfg.clamp(limit / 2)
		if next == limit {
			// avoid getting stuck at e.g. limit=1 never decreasing
			next = v.cfg.clamp(limit - 1)
		}
		if v.limit.CompareAndSwap(limit, next) {
			return
		}
	}
}

func errMinGreaterThanMax(algorithm string) error {
	return &LayerError{Kind: KindInner, Layer: "adaptive." + algorithm,
		Inner: errAdaptiveRange}
}

var errAdaptiveRange = errors.New("min_limit must not exceed max_limit")
