package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/transitlab/route-miner/pkg/directions"
	"github.com/transitlab/route-miner/pkg/logging"
	"github.com/transitlab/route-miner/pkg/query"
	"github.com/transitlab/route-miner/pkg/results"
)

// Prometheus metrics for dispatch scheduling.
var (
	dispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "miner_dispatches_total",
		Help: "Dispatched tasks by outcome",
	}, []string{"outcome"})

	dispatchWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "miner_dispatch_wait_seconds",
		Help:    "Time spent waiting for target dispatch instants",
		Buckets: []float64{0.1, 1, 10, 60, 600, 3600},
	})

	dispatchSkewSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "miner_dispatch_skew_seconds",
		Help:    "Lateness observed when a target instant was already past",
		Buckets: []float64{0.01, 0.1, 1, 10, 60, 600},
	})
)

// RouteFetcher is the directions call the scheduler dispatches. The
// underlying API client is opaque to the scheduler.
type RouteFetcher interface {
	Routes(ctx context.Context, spec query.Spec) (*directions.Response, error)
}

// StationFinder locates intermediate transit stations for split-transit
// follow-up queries.
type StationFinder interface {
	PlaceSearch(ctx context.Context, text string, near query.Coordinate, placeType string) (*directions.PlacesResponse, error)
}

// TaskState is the lifecycle state of a scheduled task.
type TaskState string

const (
	// TaskPending: created, target instant not yet reached in the run loop.
	TaskPending TaskState = "pending"

	// TaskWaiting: suspended until the target dispatch instant.
	TaskWaiting TaskState = "waiting"

	// TaskRateGated: suspended on the per-credential rate gate.
	TaskRateGated TaskState = "rate_gated"

	// TaskDispatching: API call in flight.
	TaskDispatching TaskState = "dispatching"

	// TaskSucceeded: call returned a response; result recorded.
	TaskSucceeded TaskState = "succeeded"

	// TaskFailed: call failed; failure outcome recorded.
	TaskFailed TaskState = "failed"
)

// Task binds a query spec to its target dispatch instant. A task is consumed
// exactly once by dispatch.
type Task struct {
	Spec   query.Spec
	Target time.Time
	Seq    int
	State  TaskState
}

// Config holds scheduler configuration.
type Config struct {
	// ExecuteInTime waits for each task's target instant before dispatching.
	// When false every target is "now" and tasks run back to back, subject
	// only to the rate gate.
	ExecuteInTime bool

	// SplitTransit enables intermediate-station follow-up queries for specs
	// carrying a split_on_leg value.
	SplitTransit bool

	// Stations is required when SplitTransit is set.
	Stations StationFinder

	// Clock defaults to the wall clock.
	Clock Clock
}

// Scheduler runs one batch's task queue strictly sequentially, in ascending
// target-instant order, on the batch's own thread of control. Its only
// suspension points are the target-instant wait, the rate gate, and the
// in-flight API call.
type Scheduler struct {
	fetcher RouteFetcher
	gate    RateGate
	store   *results.Store
	clock   Clock
	cfg     Config
	logger  zerolog.Logger
}

// New creates a scheduler writing into the batch's own result store.
func New(fetcher RouteFetcher, gate RateGate, store *results.Store, cfg Config) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	return &Scheduler{
		fetcher: fetcher,
		gate:    gate,
		store:   store,
		clock:   cfg.Clock,
		cfg:     cfg,
		logger:  logging.NewLogger("scheduler"),
	}
}

// Run consumes the ordered spec sequence and produces one result record per
// spec (plus auxiliary estimate records). It returns an error only on
// context cancellation; individual dispatch failures are recorded outcomes,
// never fatal.
func (s *Scheduler) Run(ctx context.Context, specs []query.Spec) error {
	tasks := make([]*Task, 0, len(specs))
	for i, spec := range specs {
		target, err := s.target(ctx, spec)
		if err != nil {
			return err
		}
		tasks = append(tasks, &Task{Spec: spec, Target: target, Seq: i, State: TaskPending})
	}
	sortByTarget(tasks)

	for i := 0; i < len(tasks); i++ {
		followUps, err := s.dispatch(ctx, tasks[i])
		if err != nil {
			return err
		}
		if len(followUps) > 0 {
			// Follow-ups are timed after the current task; keep the
			// remaining queue in ascending target order.
			tasks = append(tasks, followUps...)
			rest := tasks[i+1:]
			sortByTarget(rest)
		}
	}
	return nil
}

// sortByTarget orders tasks by ascending target instant, ties broken by
// declaration order. The stable sort preserves Seq order for equal targets.
func sortByTarget(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Target.Before(tasks[j].Target)
	})
}

// target computes the dispatch instant for a spec. With execute-in-time
// disabled every target is now. Arrival-time specs cost one immediate
// estimation call, recorded as an auxiliary estimate record.
func (s *Scheduler) target(ctx context.Context, spec query.Spec) (time.Time, error) {
	now := s.clock.Now()
	if !s.cfg.ExecuteInTime {
		return now, nil
	}
	if spec.DepartNow {
		return now, nil
	}
	if spec.DepartureTime != nil {
		return *spec.DepartureTime, nil
	}
	if spec.ArrivalTime != nil {
		return s.estimateTarget(ctx, spec)
	}
	return now, nil
}

// estimateTarget issues the immediate estimation call for an arrival-time
// spec and derives target = arrival - predicted travel duration. An
// estimation failure falls back to dispatching immediately.
func (s *Scheduler) estimateTarget(ctx context.Context, spec query.Spec) (time.Time, error) {
	if err := s.gate.Wait(ctx); err != nil {
		return time.Time{}, err
	}

	resp, err := s.fetcher.Routes(ctx, spec)
	dispatchedAt := s.clock.Now()
	if err != nil {
		if ctx.Err() != nil {
			return time.Time{}, ctx.Err()
		}
		s.store.Record(results.Record{
			Spec:          spec,
			FailureReason: err.Error(),
			DispatchedAt:  dispatchedAt,
			Estimate:      true,
		})
		dispatchesTotal.WithLabelValues("estimate").Inc()
		s.logger.Warn().Err(err).Msg("Estimation call failed, dispatching immediately")
		return dispatchedAt, nil
	}

	s.store.Record(results.Record{
		Spec:         spec,
		Raw:          resp.Raw,
		DispatchedAt: dispatchedAt,
		Estimate:     true,
	})
	dispatchesTotal.WithLabelValues("estimate").Inc()

	duration, ok := predictedDuration(resp)
	if !ok {
		s.logger.Warn().Msg("Estimation response had no usable duration, dispatching immediately")
		return dispatchedAt, nil
	}
	target := spec.ArrivalTime.Add(-duration)
	s.logger.Debug().
		Dur("predicted", duration).
		Time("target", target).
		Msg("Arrival-time target estimated")
	return target, nil
}

// predictedDuration sums the first route's leg durations, preferring
// duration_in_traffic where present.
func predictedDuration(resp *directions.Response) (time.Duration, bool) {
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, leg := range resp.Routes[0].Legs {
		seconds := leg.Duration.Value
		if leg.DurationInTraffic != nil {
			seconds = leg.DurationInTraffic.Value
		}
		total += time.Duration(seconds) * time.Second
	}
	return total, total > 0
}

// dispatch runs one task through its lifecycle and appends its result
// record. It returns any split-transit follow-up tasks.
func (s *Scheduler) dispatch(ctx context.Context, t *Task) ([]*Task, error) {
	now := s.clock.Now()

	t.State = TaskWaiting
	if wait := t.Target.Sub(now); wait > 0 {
		dispatchWaitSeconds.Observe(wait.Seconds())
		s.logger.Info().
			Time("target", t.Target).
			Dur("wait", wait).
			Int("seq", t.Seq).
			Msg("Waiting for target instant")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.clock.After(wait):
		}
	} else if skew := now.Sub(t.Target); skew > 0 && s.cfg.ExecuteInTime {
		// Late target: fire immediately, keep the skew observable.
		dispatchSkewSeconds.Observe(skew.Seconds())
		s.logger.Debug().
			Dur("skew", skew).
			Int("seq", t.Seq).
			Msg("Target instant already past, dispatching immediately")
	}

	t.State = TaskRateGated
	if err := s.gate.Wait(ctx); err != nil {
		return nil, err
	}

	t.State = TaskDispatching
	spec := s.dispatchSpec(t.Spec)
	resp, err := s.fetcher.Routes(ctx, spec)
	dispatchedAt := s.clock.Now()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.State = TaskFailed
		s.store.Record(results.Record{
			Spec:          spec,
			FailureReason: err.Error(),
			DispatchedAt:  dispatchedAt,
		})
		dispatchesTotal.WithLabelValues("failure").Inc()
		s.logger.Warn().Err(err).Int("seq", t.Seq).Msg("Dispatch failed")
		return nil, nil
	}

	t.State = TaskSucceeded
	s.store.Record(results.Record{
		Spec:         spec,
		Raw:          resp.Raw,
		DispatchedAt: dispatchedAt,
	})
	dispatchesTotal.WithLabelValues("success").Inc()
	s.logger.Debug().Int("seq", t.Seq).Str("status", resp.Status).Msg("Dispatch succeeded")

	if s.splitApplies(spec) {
		return s.splitTasks(ctx, t, spec, resp, dispatchedAt), nil
	}
	return nil, nil
}

// dispatchSpec finalizes time parameters at the moment of dispatch. Under
// execute-in-time the exact current instant is substituted for the
// departure time, as the wait has just completed.
func (s *Scheduler) dispatchSpec(spec query.Spec) query.Spec {
	if s.cfg.ExecuteInTime && (spec.DepartNow || spec.DepartureTime != nil) {
		now := s.clock.Now().UTC()
		spec.DepartureTime = &now
		spec.DepartNow = false
	}
	return spec
}
