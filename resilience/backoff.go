package resilience

import (
	"math/rand/v2"
	"time"
)

// Func computes the delay to wait before the given retry attempt
// (0-indexed: attempt 0 is the delay before the first retry, i.e. after
// the initial call already failed once).
type Func func(attempt int) time.Duration

// Fixed returns a backoff that always waits d.
func Fixed(d time.Duration) Func {
	return func(attempt int) time.Duration { return d }
}

// Exponential returns a backoff of min(base * multiplier^attempt, max).
// multiplier defaults to 2.0 when <= 0.
func Exponential(base, max time.Duration, multiplier float64) Func {
	if multiplier <= 0 {
		multiplier = 2.0
	}
	return func(attempt int) time.Duration {
		d := float64(base)
		for i := 0; i < attempt; i++ {
			d *= multiplier
			if max > 0 && d >= float64(max) {
				return max
			}
		}
		if max > 0 && time.Duration(d) > max {
			return max
		}
		return time.Duration(d)
	}
}

// ExponentialJitter wraps an exponential backoff and multiplies each
// delay by a uniform random factor in [1-r, 1+r]. r must be in [0, 1).
// A dedicated RNG is used per call to this constructor (per-controller
// RNG), a rand.NewPCG generator seeded from the current time; it is not
// cryptographically strong.
func ExponentialJitter(base, max time.Duration, multiplier, r float64) Func {
	exp := Exponential(base, max, multiplier)
	if r < 0 {
		r = 0
	}
	if r >= 1 {
		r = 0.999
	}
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xa5a5a5a5))
	return func(attempt int) time.Duration {
		d := exp(attempt)
		factor := (1 - r) + rng.Float64()*(2*r)
		return time.Duration(float64(d) * factor)
	}
}

// Function wraps a user-supplied backoff function unchanged, matching
// the "Function" backoff variant of the spec's design.
func Function(fn func(attempt int) time.Duration) Func {
	return fn
}
