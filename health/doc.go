// Package health provides health checking primitives for resources guarded
// by the resilience middleware stack.
//
// It implements a generic health checking framework for monitoring component
// health: single-shot [Checker]s for ad-hoc probes, and a generic [Supervisor]
// that periodically probes a named pool of same-typed resources (backends,
// upstream replicas, connection handles) and exposes selection strategies
// over whichever ones are currently usable. Both feed HTTP handlers
// compatible with Kubernetes probes.
//
// # Status Types
//
// The [Status] type represents component health:
//
//   - [StatusUnknown]: No probe has completed yet
//   - [StatusHealthy]: Component is functioning normally
//   - [StatusDegraded]: Component is functioning but with issues
//   - [StatusUnhealthy]: Component is not functioning properly
//
// # Core Components
//
//   - [Checker]: Interface for one-off health checks (Name() + Check())
//   - [CheckerFunc]: Adapter for function-based checkers
//   - [Result]: Health check outcome with status, message, details, duration
//   - [MemoryChecker]: Built-in checker for memory usage thresholds
//   - [Supervisor]: Periodically probes a pool of resources of type R and
//     tracks each one's hysteresis-applied status
//   - [Selector]: Strategy for picking a resource from the currently-usable
//     subset ([FirstAvailableSelector], [RoundRobinSelector],
//     [PreferHealthySelector], or any user-authored function of the same
//     signature)
//
// # Quick Start
//
// A one-off checker, aggregated by hand:
//
//	dbCheck := health.NewCheckerFunc("database", func(ctx context.Context) health.Result {
//	    if err := db.PingContext(ctx); err != nil {
//	        return health.Unhealthy("database unreachable", err)
//	    }
//	    return health.Healthy("database connected")
//	})
//	result := dbCheck.Check(ctx)
//
// A supervised pool of backends, probed in the background:
//
//	type backend struct{ addr string }
//
//	sup, err := health.NewSupervisor(health.SupervisorConfig{
//	    Interval:         15 * time.Second,
//	    SuccessThreshold: 2,
//	    FailureThreshold: 3,
//	}, func(ctx context.Context, b backend) health.Result {
//	    if err := ping(ctx, b.addr); err != nil {
//	        return health.Unhealthy("ping failed", err)
//	    }
//	    return health.Healthy("ok")
//	}, health.PreferHealthySelector[backend])
//
//	sup.Register("us-east", backend{addr: "10.0.1.1"})
//	sup.Register("us-west", backend{addr: "10.0.2.1"})
//	sup.Start(ctx)
//	defer sup.Stop()
//
//	b, ok := sup.GetUsable()
//
// # HTTP Endpoints
//
// The package provides Kubernetes-compatible HTTP handlers, generic over
// the Supervisor's resource type:
//
//   - [LivenessHandler]: Simple /healthz endpoint - always returns 200 if running
//   - [ReadinessHandler]: Reports the supervisor's current overall status
//   - [DetailedHandler]: Returns JSON with every tracked resource's result
//   - [SingleCheckHandler]: Reports a specific resource's result by name
//   - [RegisterHandlers]: Convenience function to register all handlers
//
// Example registration:
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, sup)
//	// Registers: /healthz, /readyz, /health
//
// # Hysteresis and Status Computation
//
// A tracked resource's effective status does not flip on a single probe
// result. Healthy requires [SupervisorConfig.SuccessThreshold] consecutive
// Healthy probes; Unhealthy requires [SupervisorConfig.FailureThreshold]
// consecutive Unhealthy probes. Degraded and Unknown results apply
// immediately and reset both counters, since they represent a definite
// observation rather than noise to be debounced.
//
// [OverallStatus] computes a composite from a result set using worst-case
// logic:
//
//   - If ANY result is Unhealthy → overall Unhealthy
//   - If ANY result is Degraded (and none Unhealthy) → overall Degraded
//   - If ALL results are Healthy → overall Healthy
//
// # Background Probing
//
// [Supervisor.Start] runs a ticker loop that fans probes out concurrently
// across all tracked resources, each bounded by [SupervisorConfig.CheckTimeout].
// If a tick is still in flight when the next one fires, the new tick is
// skipped rather than queued or coalesced; a Supervisor never runs two
// overlapping rounds of probes. [Supervisor.Tick] is exported so callers can
// drive a round synchronously, e.g. in tests or from an admin endpoint.
//
// # Thread Safety
//
// All exported types are safe for concurrent use:
//
//   - [Supervisor]: sync.RWMutex protects registration; per-resource state is
//     guarded independently so one slow probe never blocks status reads
//   - [MemoryChecker]: Stateless, concurrent-safe
//   - [CheckerFunc]: Delegates to user function, ensure your function is safe
//   - [Result]: Immutable after creation
//
// # Error Handling
//
// Sentinel errors (use errors.Is for checking):
//
//   - [ErrCheckFailed]: Generic health check failure
//   - [ErrCheckTimeout]: Check exceeded CheckTimeout
//   - [ErrInvalidConfig]: A SupervisorConfig field was negative
package health
