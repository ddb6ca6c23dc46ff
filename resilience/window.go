package resilience

import "time"

// windowSnapshot is the aggregate view of a window at a point in time.
type windowSnapshot struct {
	Total     int
	Failures  int
	Successes int
	Slow      int
}

func (s windowSnapshot) failureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Total)
}

func (s windowSnapshot) slowRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Slow) / float64(s.Total)
}

// window aggregates call outcomes, either as plain counters (count-based)
// or as a pruned time-ordered record list (time-based). It is not safe
// for concurrent use by itself; callers (circuit.go) hold their own lock
// around it.
type window struct {
	timeBased bool
	duration  time.Duration

	// count-based state
	total, failures, successes, slow int

	// time-based state: insertion-ordered, pruned from the front
	records []windowRecord
}

type windowRecord struct {
	at       time.Time
	failure  bool
	slowCall bool
}

func newCountWindow() *window {
	return &window{}
}

func newTimeWindow(d time.Duration) *window {
	return &window{timeBased: true, duration: d}
}

// record adds one outcome to the window.
func (w *window) record(failure, slowCall bool) {
	if w.timeBased {
		w.records = append(w.records, windowRecord{at: time.Now(), failure: failure, slowCall: slowCall})
		w.prune(time.Now())
		return
	}
	w.total++
	if failure {
		w.failures++
	} else {
		w.successes++
	}
	if slowCall {
		w.slow++
	}
}

// prune removes time-based records older than the window duration.
// Pruning only ever pops from the front, so it is monotone: it never adds
// records and never reorders the remainder.
func (w *window) prune(now time.Time) {
	if !w.timeBased {
		return
	}
	cutoff := now.Add(-w.duration)
	i := 0
	for i < len(w.records) && w.records[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.records = w.records[i:]
	}
}

// snapshot returns the current aggregate, pruning first if time-based.
func (w *window) snapshot() windowSnapshot {
	if w.timeBased {
		w.prune(time.Now())
		var s windowSnapshot
		for _, r := range w.records {
			s.Total++
			if r.failure {
				s.Failures++
			} else {
				s.Successes++
			}
			if r.slowCall {
				s.Slow++
			}
		}
		return s
	}
	return windowSnapshot{Total: w.total, Failures: w.failures, Successes: w.successes, Slow: w.slow}
}

// reset clears all recorded outcomes, used on every circuit state
// transition.
func (w *window) reset() {
	w.total, w.failures, w.successes, w.slow = 0, 0, 0, 0
	w.records = nil
}
