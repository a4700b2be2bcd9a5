package batch

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/transitlab/route-miner/pkg/logging"
)

// AvailableParallelism reports how many batches the host can execute truly
// in parallel. It is advisory only: the orchestrator never caps the batch
// count with it, because a batch spends most of its life suspended on timed
// waits, not burning a core.
func AvailableParallelism() int {
	return runtime.NumCPU()
}

// Orchestrator fans input files out into isolated batches, pairs them with
// credentials, runs them in parallel, and aggregates their outcomes after
// all have joined.
type Orchestrator struct {
	opts   Options
	logger zerolog.Logger
}

// NewOrchestrator creates an orchestrator applying opts to every batch.
func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		opts:   opts,
		logger: logging.NewLogger("orchestrator"),
	}
}

// Run executes one batch per input file. Credentials are assigned by index
// with wraparound when there are fewer credential files than inputs.
// outputOverride, when non-empty, replaces the derived per-input output
// name; with multiple inputs each batch still gets a distinct suffix.
//
// Every batch runs on its own goroutine: the schedulers' blocking waits
// must not serialize unrelated batches' timing. Run blocks until every
// batch has completed and returns their outcomes in input order. A batch
// with an unreadable credential file reports a batch-fatal outcome;
// sibling batches are unaffected.
func (o *Orchestrator) Run(ctx context.Context, inputs, credentialPaths []string, outputOverride string) ([]Outcome, *Report, error) {
	if len(inputs) == 0 {
		return nil, nil, fmt.Errorf("no input files")
	}
	if len(credentialPaths) == 0 {
		return nil, nil, fmt.Errorf("no credential files")
	}

	creds := loadCredentials(credentialPaths)
	outcomes := make([]Outcome, len(inputs))

	o.logger.Info().
		Int("batches", len(inputs)).
		Int("credentials", len(credentialPaths)).
		Int("available_parallelism", AvailableParallelism()).
		Msg("Starting batch run")

	var g errgroup.Group
	for i, input := range inputs {
		loaded := assign(creds, i)
		if loaded.err != nil {
			outcomes[i] = Outcome{
				InputPath: input,
				Err:       fmt.Errorf("batch credential: %w", loaded.err),
			}
			batchesTotal.WithLabelValues("fatal").Inc()
			o.logger.Error().Err(loaded.err).Str("input", input).Msg("Batch aborted: unreadable credential source")
			continue
		}

		b := NewBatch(input, OutputBase(outputOverride, input, i, len(inputs)), loaded.cred, o.opts)
		idx := i
		g.Go(func() error {
			outcomes[idx] = b.Run(ctx)
			return nil
		})
	}
	// Batch goroutines never return errors; outcomes carry the failures.
	_ = g.Wait()

	return outcomes, o.report(outcomes), nil
}

// Report aggregates the run for the caller: warnings are collected and
// surfaced alongside results, never silently dropped.
type Report struct {
	Batches  int
	Fatal    int
	Records  int
	Warnings int
}

func (o *Orchestrator) report(outcomes []Outcome) *Report {
	report := &Report{Batches: len(outcomes)}
	for _, outcome := range outcomes {
		report.Records += outcome.Records
		report.Warnings += len(outcome.Warnings)
		if outcome.Err != nil {
			report.Fatal++
			o.logger.Error().
				Str("input", outcome.InputPath).
				Err(outcome.Err).
				Msg("Batch failed")
			continue
		}
		o.logger.Info().
			Str("input", outcome.InputPath).
			Int("specs", outcome.Specs).
			Int("records", outcome.Records).
			Int("warnings", len(outcome.Warnings)).
			Msg("Batch succeeded")
	}
	return report
}
