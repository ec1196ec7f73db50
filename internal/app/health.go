package app

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BenYao21/sglang/internal/proxy"
)

// Health tracks whether the engine is reachable, for the readiness endpoint.
// All methods are thread-safe.
type Health struct {
	ready atomic.Bool
}

// Compile-time check that Health implements proxy.ReadinessChecker interface
var _ proxy.ReadinessChecker = (*Health)(nil)

// NewHealth creates a new Health instance initialized as not ready.
func NewHealth() *Health {
	return &Health{}
}

// SetReady updates the application's readiness state.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns the current readiness state of the application.
func (h *Health) IsReady() bool {
	return h.ready.Load()
}

// Watch runs probe immediately and then every interval until ctx is done,
// updating readiness with each result. Transitions are logged.
func (h *Health) Watch(ctx context.Context, interval time.Duration, probe func(context.Context) error) {
	first := true
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, max(interval, time.Second))
		defer cancel()

		err := probe(probeCtx)
		if ctx.Err() != nil {
			return
		}
		ready := err == nil
		if h.ready.Swap(ready) != ready || first {
			if ready {
				slog.InfoContext(ctx, "engine is ready")
			} else {
				slog.WarnContext(ctx, "engine is not ready", "error", err)
			}
		}
		first = false
	}

	check()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
