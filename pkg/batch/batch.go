package batch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/transitlab/route-miner/pkg/directions"
	"github.com/transitlab/route-miner/pkg/logging"
	"github.com/transitlab/route-miner/pkg/query"
	"github.com/transitlab/route-miner/pkg/results"
	"github.com/transitlab/route-miner/pkg/schedule"
)

// Prometheus metrics for batch execution.
var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "miner_batches_total",
		Help: "Completed batches by outcome",
	}, []string{"outcome"})

	batchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "miner_batch_duration_seconds",
		Help:    "Wall-clock batch duration",
		Buckets: []float64{1, 10, 60, 600, 3600, 21600},
	})
)

// Options configures every batch of a run. Batches share configuration but
// never state.
type Options struct {
	ExecuteInTime    bool
	SplitTransit     bool
	QueriesPerSecond float64

	WriteCSV  bool
	WriteDump bool

	// Columns overrides the default tabular extraction set (nil = default).
	Columns []results.Column

	// BaseURL overrides the API host (tests point it at a mock server).
	BaseURL string

	// HTTPClient overrides the API client's transport (for testing).
	HTTPClient *http.Client

	// Clock overrides the wall clock (for testing).
	Clock schedule.Clock

	// Redis switches the per-credential rate gate to the shared Redis
	// implementation when set.
	Redis *redis.Client
}

// Outcome is one batch's completion report. Err is the batch-fatal error,
// nil when the batch ran; individual dispatch failures live in the records,
// not here.
type Outcome struct {
	ID         string
	InputPath  string
	OutputBase string
	Err        error
	Warnings   []query.Warning
	Specs      int
	Records    int
}

// Batch is one isolated unit of work: one input row set, one credential,
// one result store.
type Batch struct {
	id         string
	inputPath  string
	outputBase string
	cred       Credential
	opts       Options
	store      *results.Store
	logger     zerolog.Logger
}

// NewBatch creates a batch. outputBase is the extensionless path its export
// files derive from.
func NewBatch(inputPath, outputBase string, cred Credential, opts Options) *Batch {
	id := uuid.NewString()
	return &Batch{
		id:         id,
		inputPath:  inputPath,
		outputBase: outputBase,
		cred:       cred,
		opts:       opts,
		store:      results.NewStore(),
		logger: logging.NewLogger("batch").With().
			Str("batch", id[:8]).
			Str("input", inputPath).
			Logger(),
	}
}

// Store exposes the batch's result store. The orchestrator reads it only
// after the batch has joined.
func (b *Batch) Store() *results.Store {
	return b.store
}

// Run executes the batch pipeline end to end: read rows, resolve specs,
// schedule and dispatch, export. A batch-fatal condition aborts only this
// batch; every other problem is a recorded warning or failure outcome.
func (b *Batch) Run(ctx context.Context) Outcome {
	start := time.Now()
	outcome := Outcome{ID: b.id, InputPath: b.inputPath, OutputBase: b.outputBase}

	defer func() {
		batchDurationSeconds.Observe(time.Since(start).Seconds())
		if outcome.Err != nil {
			batchesTotal.WithLabelValues("fatal").Inc()
		} else {
			batchesTotal.WithLabelValues("ok").Inc()
		}
	}()

	f, err := os.Open(b.inputPath)
	if err != nil {
		outcome.Err = fmt.Errorf("batch input: %w", err)
		b.logger.Error().Err(err).Msg("Batch aborted: unreadable input source")
		return outcome
	}
	input, err := query.ReadInput(f)
	f.Close()
	if err != nil {
		outcome.Err = fmt.Errorf("batch input %s: %w", b.inputPath, err)
		b.logger.Error().Err(err).Msg("Batch aborted: invalid input source")
		return outcome
	}

	resolver := query.NewResolver(input.Header)
	specs, warnings := resolver.ResolveAll(input.Rows)
	outcome.Warnings = warnings
	outcome.Specs = len(specs)
	for _, w := range warnings {
		b.logger.Warn().Int("row", w.Row).Str("warning", w.Message).Msg("Row resolution warning")
	}
	b.logger.Info().
		Int("rows", len(input.Rows)).
		Int("specs", len(specs)).
		Int("warnings", len(warnings)).
		Msg("Input resolved")

	client, err := directions.New(directions.Config{
		BaseURL:    b.opts.BaseURL,
		APIKey:     b.cred.Key,
		HTTPClient: b.opts.HTTPClient,
	})
	if err != nil {
		outcome.Err = fmt.Errorf("batch credential %s: %w", b.cred.Source, err)
		b.logger.Error().Err(err).Msg("Batch aborted: unusable credential")
		return outcome
	}

	clock := b.opts.Clock
	if clock == nil {
		clock = schedule.RealClock()
	}
	var gate schedule.RateGate
	if b.opts.Redis != nil {
		gate = schedule.NewRedisGate(b.opts.Redis, b.cred.Fingerprint(), b.opts.QueriesPerSecond, clock)
	} else {
		gate = schedule.NewMemoryGate(b.opts.QueriesPerSecond, clock)
	}

	scheduler := schedule.New(client, gate, b.store, schedule.Config{
		ExecuteInTime: b.opts.ExecuteInTime,
		SplitTransit:  b.opts.SplitTransit,
		Stations:      client,
		Clock:         clock,
	})
	if err := scheduler.Run(ctx, specs); err != nil {
		outcome.Err = fmt.Errorf("batch scheduling: %w", err)
		b.logger.Error().Err(err).Msg("Batch aborted during scheduling")
		return outcome
	}
	outcome.Records = b.store.Len()

	if err := b.export(); err != nil {
		outcome.Err = err
		b.logger.Error().Err(err).Msg("Batch export failed")
		return outcome
	}

	b.logger.Info().
		Int("records", outcome.Records).
		Dur("elapsed", time.Since(start)).
		Msg("Batch complete")
	return outcome
}

// export renders the batch's store into the configured output files.
func (b *Batch) export() error {
	if b.opts.WriteDump {
		path := b.outputBase + ".gob"
		if err := results.WriteDumpFile(path, b.store.Records()); err != nil {
			return fmt.Errorf("write dump: %w", err)
		}
		b.logger.Info().Str("path", path).Msg("Full dump written")
	}
	if b.opts.WriteCSV {
		writer, err := results.NewTabularWriter(b.opts.Columns)
		if err != nil {
			return fmt.Errorf("tabular columns: %w", err)
		}
		path := b.outputBase + ".csv"
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create csv %s: %w", path, err)
		}
		if err := writer.Write(f, b.store.Primary()); err != nil {
			f.Close()
			return fmt.Errorf("write csv: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close csv: %w", err)
		}
		b.logger.Info().Str("path", path).Msg("Tabular summary written")
	}
	return nil
}

// OutputBase derives the extensionless output path for batch i of n.
// Without an override the base is "output_" + the input file's stem, next
// to the input. An explicit override applies as-is for a single batch; for
// multiple batches each gets a distinct derived name, never a shared one.
func OutputBase(override, inputPath string, i, n int) string {
	if override == "" {
		dir := filepath.Dir(inputPath)
		stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		return filepath.Join(dir, "output_"+stem)
	}
	base := strings.TrimSuffix(override, filepath.Ext(override))
	if n > 1 {
		return fmt.Sprintf("%s_b%02d", base, i+1)
	}
	return base
}
