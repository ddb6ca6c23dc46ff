package health

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
)

// BenchmarkChecker_Check measures single check performance.
func BenchmarkChecker_Check(b *testing.B) {
	checker := NewCheckerFunc("bench", func(ctx context.Context) Result {
		return Healthy("ok")
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = checker.Check(ctx)
	}
}

// BenchmarkMemoryChecker_Check measures memory checker performance.
func BenchmarkMemoryChecker_Check(b *testing.B) {
	checker := NewMemoryChecker(MemoryCheckerConfig{
		WarningThreshold:  0.80,
		CriticalThreshold: 0.95,
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = checker.Check(ctx)
	}
}

func benchSupervisor(b *testing.B, size int) *Supervisor[int] {
	sup, err := NewSupervisor(SupervisorConfig{}, func(context.Context, int) Result {
		return Healthy("ok")
	}, nil)
	if err != nil {
		b.Fatalf("NewSupervisor: %v", err)
	}
	for i := 0; i < size; i++ {
		sup.Register(fmt.Sprintf("res%d", i), i)
	}
	return sup
}

// BenchmarkSupervisor_Tick measures concurrent probe fan-out across a fixed
// resource set.
func BenchmarkSupervisor_Tick(b *testing.B) {
	sup := benchSupervisor(b, 5)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sup.Tick(ctx)
	}
}

// BenchmarkSupervisor_GetHealthDetails measures result-snapshot overhead.
func BenchmarkSupervisor_GetHealthDetails(b *testing.B) {
	sup := benchSupervisor(b, 5)
	sup.Tick(context.Background())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sup.GetHealthDetails()
	}
}

// BenchmarkSupervisor_Register measures registration overhead.
func BenchmarkSupervisor_Register(b *testing.B) {
	checker := func(context.Context, int) Result { return Healthy("ok") }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sup, _ := NewSupervisor(SupervisorConfig{}, checker, nil)
		sup.Register("res", i)
	}
}

// BenchmarkSupervisor_GetHealthy measures selector overhead.
func BenchmarkSupervisor_GetHealthy(b *testing.B) {
	sup := benchSupervisor(b, 10)
	sup.Tick(context.Background())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sup.GetHealthy()
	}
}

// BenchmarkSupervisor_VaryingResources measures scaling with resource count.
func BenchmarkSupervisor_VaryingResources(b *testing.B) {
	sizes := []int{1, 5, 10, 20}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("resources=%d", size), func(b *testing.B) {
			sup := benchSupervisor(b, size)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sup.Tick(ctx)
			}
		})
	}
}

// BenchmarkOverallStatus measures status computation.
func BenchmarkOverallStatus(b *testing.B) {
	results := map[string]Result{
		"check1": Healthy("ok"),
		"check2": Healthy("ok"),
		"check3": Degraded("slow"),
		"check4": Healthy("ok"),
		"check5": Healthy("ok"),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = OverallStatus(results)
	}
}

// BenchmarkLivenessHandler_ServeHTTP measures liveness handler overhead.
func BenchmarkLivenessHandler_ServeHTTP(b *testing.B) {
	handler := LivenessHandler()
	req := httptest.NewRequest("GET", "/healthz", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}
}

// BenchmarkReadinessHandler_ServeHTTP measures readiness handler overhead.
func BenchmarkReadinessHandler_ServeHTTP(b *testing.B) {
	sup := benchSupervisor(b, 1)
	sup.Tick(context.Background())

	handler := ReadinessHandler(sup)
	req := httptest.NewRequest("GET", "/readyz", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}
}

// BenchmarkDetailedHandler_ServeHTTP measures detailed handler overhead.
func BenchmarkDetailedHandler_ServeHTTP(b *testing.B) {
	sup := benchSupervisor(b, 3)
	sup.Tick(context.Background())

	handler := DetailedHandler(sup)
	req := httptest.NewRequest("GET", "/health", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}
}

// BenchmarkHealthy measures result creation.
func BenchmarkHealthy(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Healthy("message")
	}
}

// BenchmarkResult_WithDetails measures detail attachment.
func BenchmarkResult_WithDetails(b *testing.B) {
	result := Healthy("ok")
	details := map[string]any{
		"key1": "value1",
		"key2": 42,
		"key3": true,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = result.WithDetails(details)
	}
}

// BenchmarkStatus_String measures status string conversion.
func BenchmarkStatus_String(b *testing.B) {
	statuses := []Status{StatusHealthy, StatusDegraded, StatusUnhealthy}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = statuses[i%3].String()
	}
}

// BenchmarkConcurrent_Supervisor measures concurrent Tick usage.
func BenchmarkConcurrent_Supervisor(b *testing.B) {
	sup := benchSupervisor(b, 5)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			sup.Tick(ctx)
		}
	})
}
