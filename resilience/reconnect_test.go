package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedReconnector struct {
	outcomes []error
	i        int
}

func (r *scriptedReconnector) Reconnect(context.Context) error {
	var err error
	if r.i < len(r.outcomes) {
		err = r.outcomes[r.i]
	}
	r.i++
	return err
}

func TestReconnect_SuccessfulCallStaysConnected(t *testing.T) {
	svc := &scriptedService{}
	conn := &scriptedReconnector{}
	rc := NewReconnect[struct{}, struct{}](ReconnectConfig{Name: "rc"}, svc, conn)

	rc.Call(context.Background(), struct{}{})
	if got := rc.State(); got != ConnConnected {
		t.Errorf("State() = %v, want Connected after a successful call", got)
	}
	if conn.i != 0 {
		t.Errorf("a successful call should never invoke Reconnect, got %d calls", conn.i)
	}
}

func TestReconnect_FailureTriggersReconnectAndReplaysOnSuccess(t *testing.T) {
	svc := &scriptedService{outcomes: []error{errFake, nil}}
	conn := &scriptedReconnector{}
	rc := NewReconnect[struct{}, struct{}](ReconnectConfig{
		Name:             "rc-replay",
		Backoff:          Fixed(0),
		RetryOnReconnect: true,
	}, svc, conn)

	_, err := rc.Call(context.Background(), struct{}{})
	if err != nil {
		t.Fatalf("expected the replayed call to succeed after reconnect, got %v", err)
	}
	if svc.i != 2 {
		t.Errorf("expected 2 inner calls (failed original + replay), got %d", svc.i)
	}
	if rc.State() != ConnConnected {
		t.Errorf("State() = %v, want Connected after a successful reconnect", rc.State())
	}
}

func TestReconnect_WithoutRetryReturnsOriginalError(t *testing.T) {
	svc := &scriptedService{outcomes: []error{errFake}}
	conn := &scriptedReconnector{}
	rc := NewReconnect[struct{}, struct{}](ReconnectConfig{
		Name:             "rc-noretry",
		Backoff:          Fixed(0),
		RetryOnReconnect: false,
	}, svc, conn)

	_, err := rc.Call(context.Background(), struct{}{})
	if !errors.Is(err, errFake) {
		t.Errorf("expected the original inner error to surface, got %v", err)
	}
	if svc.i != 1 {
		t.Errorf("without retry_on_reconnect, expected exactly 1 inner call, got %d", svc.i)
	}
}

func TestReconnect_MaxAttemptsBoundsReconnectLoop(t *testing.T) {
	svc := &scriptedService{outcomes: []error{errFake}}
	conn := &scriptedReconnector{outcomes: []error{errFake, errFake, errFake}}
	rc := NewReconnect[struct{}, struct{}](ReconnectConfig{
		Name:        "rc-bounded",
		Backoff:     Fixed(0),
		MaxAttempts: 3,
	}, svc, conn)

	rc.Call(context.Background(), struct{}{})
	if conn.i != 3 {
		t.Errorf("expected exactly max_attempts=3 reconnect attempts, got %d", conn.i)
	}
}

func TestReconnect_PredicateRejectsReconnection(t *testing.T) {
	svc := &scriptedService{outcomes: []error{errFake}}
	conn := &scriptedReconnector{}
	rc := NewReconnect[struct{}, struct{}](ReconnectConfig{
		Name:               "rc-predicate",
		ReconnectPredicate: func(error) bool { return false },
	}, svc, conn)

	rc.Call(context.Background(), struct{}{})
	if conn.i != 0 {
		t.Errorf("a rejecting reconnect_predicate should never invoke Reconnect, got %d calls", conn.i)
	}
}

func TestReconnect_StateTransitionsAreObservable(t *testing.T) {
	svc := &scriptedService{outcomes: []error{errFake}}
	conn := &scriptedReconnector{}
	var transitions []ConnState
	rc := NewReconnect[struct{}, struct{}](ReconnectConfig{
		Name:          "rc-events",
		Backoff:       Fixed(0),
		OnStateChange: func(_, to ConnState) { transitions = append(transitions, to) },
	}, svc, conn)

	rc.Call(context.Background(), struct{}{})

	if len(transitions) < 3 {
		t.Fatalf("expected at least 3 transitions (disconnected, reconnecting, connected), got %v", transitions)
	}
	want := []ConnState{ConnDisconnected, ConnReconnecting, ConnConnected}
	for i, w := range want {
		if transitions[i] != w {
			t.Errorf("transition %d = %v, want %v (full sequence: %v)", i, transitions[i], w, transitions)
		}
	}
}

func TestReconnect_ContextCancelledDuringBackoffStopsReconnecting(t *testing.T) {
	svc := &scriptedService{outcomes: []error{errFake}}
	conn := &scriptedReconnector{outcomes: []error{errFake, errFake, errFake}}
	rc := NewReconnect[struct{}, struct{}](ReconnectConfig{
		Name:    "rc-ctx",
		Backoff: Fixed(50 * time.Millisecond),
	}, svc, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := rc.Call(ctx, struct{}{})
	if err == nil {
		t.Fatal("expected an error once the context is cancelled mid-reconnect")
	}
}
