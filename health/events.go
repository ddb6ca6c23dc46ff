package health

import "time"

// StateTransitionEvent is emitted when a tracked resource's effective
// (hysteresis-applied) status changes.
type StateTransitionEvent struct {
	Pattern string
	From    Status
	To      Status
	When    time.Time
}

func (e StateTransitionEvent) PatternName() string { return e.Pattern }
func (e StateTransitionEvent) At() time.Time       { return e.When }
