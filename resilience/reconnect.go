package resilience

import (
	"context"
	"sync"
	"time"
)

// ConnState is a Reconnect controller's lifecycle state.
type ConnState int32

const (
	ConnConnected ConnState = iota
	ConnDisconnected
	ConnReconnecting
)

func (s ConnState) String() string {
	switch s {
	case ConnConnected:
		return "connected"
	case ConnDisconnected:
		return "disconnected"
	case ConnReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Reconnector is the abstract connection-oriented collaborator a
// Reconnect controller supervises: a service whose inner Call can fail
// in a way that requires re-establishing the connection before more
// calls can succeed.
type Reconnector interface {
	// Reconnect re-establishes the connection. It blocks until the
	// connection is ready or ctx is done.
	Reconnect(ctx context.Context) error
}

// ReconnectConfig configures a Reconnect controller. MaxAttempts == 0
// means unlimited attempts, the idiomatic Go rendering of the original
// Rust config's Option<u32>.
type ReconnectConfig struct {
	Name string

	Backoff Func

	// MaxAttempts bounds reconnection attempts per disconnection episode;
	// 0 means unlimited.
	MaxAttempts int

	// ReconnectPredicate decides whether an observed failure warrants
	// reconnection. Default: reconnect on every error.
	ReconnectPredicate func(error) bool

	// RetryOnReconnect replays the original request once more after a
	// successful reconnect.
	RetryOnReconnect bool

	OnStateChange func(from, to ConnState)
	OnAttempt     func(attempt int, err error)
}

func (c *ReconnectConfig) applyDefaults() {
	if c.Backoff == nil {
		c.Backoff = Exponential(200*time.Millisecond, 30*time.Second, 2.0)
	}
	if c.ReconnectPredicate == nil {
		c.ReconnectPredicate = func(error) bool { return true }
	}
}

// Reconnect wraps an inner Service plus a Reconnector, re-establishing
// the connection on qualifying failures and optionally replaying the
// failed request once reconnected.
type Reconnect[Req, Res any] struct {
	cfg   ReconnectConfig
	inner Service[Req, Res]
	conn  Reconnector
	Events *EventBus

	mu    sync.Mutex
	state ConnState
}

// NewReconnect builds a Reconnect controller.
func NewReconnect[Req, Res any](cfg ReconnectConfig, inner Service[Req, Res], conn Reconnector) *Reconnect[Req, Res] {
	cfg.applyDefaults()
	return &Reconnect[Req, Res]{cfg: cfg, inner: inner, conn: conn, Events: NewEventBus(), state: ConnConnected}
}

// State returns the controller's current state.
func (r *Reconnect[Req, Res]) State() ConnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconnect[Req, Res]) setState(to ConnState) {
	r.mu.Lock()
	from := r.state
	r.state = to
	r.mu.Unlock()
	if from == to {
		return
	}
	if r.cfg.OnStateChange != nil {
		r.cfg.OnStateChange(from, to)
	}
}

func (r *Reconnect[Req, Res]) Ready(ctx context.Context) error { return r.inner.Ready(ctx) }

// Call runs the inner service; on a qualifying failure it reconnects
// (per cfg.Backoff, up to cfg.MaxAttempts) and, if cfg.RetryOnReconnect,
// replays the request once.
func (r *Reconnect[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	res, err := r.inner.Call(ctx, req)
	if err == nil {
		r.setState(ConnConnected)
		return res, nil
	}
	if !r.cfg.ReconnectPredicate(err) {
		return res, newLayerError(r.cfg.Name, KindInner, err)
	}

	r.setState(ConnDisconnected)
	if reconnErr := r.reconnect(ctx); reconnErr != nil {
		return res, newLayerError(r.cfg.Name, KindInner, reconnErr)
	}

	if r.cfg.RetryOnReconnect {
		return r.inner.Call(ctx, req)
	}
	return res, newLayerError(r.cfg.Name, KindInner, err)
}

// reconnect drives the Reconnecting state machine until the connection
// succeeds or attempts are exhausted.
func (r *Reconnect[Req, Res]) reconnect(ctx context.Context) error {
	r.setState(ConnReconnecting)
	var lastErr error
	for attempt := 0; r.cfg.MaxAttempts == 0 || attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.Backoff(attempt - 1)):
			}
		}
		err := r.conn.Reconnect(ctx)
		if r.cfg.OnAttempt != nil {
			r.cfg.OnAttempt(attempt, err)
		}
		if err == nil {
			r.setState(ConnConnected)
			return nil
		}
		lastErr = err
	}
	return lastErr
}
