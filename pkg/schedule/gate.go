package schedule

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rateGateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "miner_rate_gate_wait_seconds",
	Help:    "Time spent blocked on the per-credential rate gate",
	Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
})

// RateGate enforces the minimum spacing between calls on one credential.
// Wait suspends (never busy-waits) until the next call is allowed, then
// reserves the slot by advancing the next-allowed timestamp.
type RateGate interface {
	Wait(ctx context.Context) error
}

// MemoryGate is the in-process rate gate: a single next-allowed timestamp
// for one credential. A credential's gate has a single caller (its batch's
// scheduler), so no locking is needed.
type MemoryGate struct {
	clock       Clock
	interval    time.Duration
	nextAllowed time.Time
}

// NewMemoryGate creates a gate allowing queriesPerSecond calls per second.
func NewMemoryGate(queriesPerSecond float64, clock Clock) *MemoryGate {
	if queriesPerSecond <= 0 {
		queriesPerSecond = 10
	}
	return &MemoryGate{
		clock:    clock,
		interval: time.Duration(float64(time.Second) / queriesPerSecond),
	}
}

// Wait blocks until now >= the next-allowed call time, then advances it by
// one interval.
func (g *MemoryGate) Wait(ctx context.Context) error {
	now := g.clock.Now()
	if wait := g.nextAllowed.Sub(now); wait > 0 {
		rateGateWaitSeconds.Observe(wait.Seconds())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.clock.After(wait):
		}
	}
	g.nextAllowed = g.clock.Now().Add(g.interval)
	return nil
}
