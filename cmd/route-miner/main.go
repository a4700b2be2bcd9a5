// Command route-miner expands tabular query inputs into route queries,
// dispatches them against a routing API on schedule, and exports the
// responses.
//
// Each -input file becomes an isolated batch paired round-robin with a
// -keyfile credential; batches run in parallel and a failing batch never
// takes its siblings down.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/transitlab/route-miner/internal/config"
	"github.com/transitlab/route-miner/pkg/batch"
	"github.com/transitlab/route-miner/pkg/logging"
)

// fileList collects a repeatable flag into a slice. A single value may also
// carry several comma-separated paths.
type fileList []string

func (f *fileList) String() string {
	return strings.Join(*f, ",")
}

func (f *fileList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			*f = append(*f, part)
		}
	}
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "route-miner: %v\n", err)
		return 2
	}

	var (
		inputs   fileList
		keyFiles fileList
		capacity bool
		pretty   bool
		logLevel string
	)

	flag.Var(&inputs, "input", "input CSV file (repeatable); one batch per file")
	flag.Var(&keyFiles, "keyfile", "API key file (repeatable); assigned to batches round-robin")
	flag.StringVar(&cfg.OutputFilename, "output", cfg.OutputFilename, "output base name (default: output_<input stem> next to each input)")
	flag.BoolVar(&cfg.WriteCSV, "write-csv", cfg.WriteCSV, "write the tabular '|'-delimited export")
	flag.BoolVar(&cfg.WriteDump, "write-dump", cfg.WriteDump, "write the lossless gob dump")
	flag.BoolVar(&cfg.ExecuteInTime, "execute-in-time", cfg.ExecuteInTime, "dispatch each query at its declared departure or arrival instant")
	flag.BoolVar(&cfg.SplitTransit, "split-transit", cfg.SplitTransit, "issue intermediate-station follow-up queries for transit trips that request splitting")
	flag.Float64Var(&cfg.QueriesPerSecond, "queries-per-second", cfg.QueriesPerSecond, "per-credential request budget")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "routing API base URL override")
	flag.StringVar(&cfg.Redis.Addr, "redis-addr", cfg.Redis.Addr, "Redis address for the shared cross-process rate gate")
	flag.BoolVar(&capacity, "c", false, "print available parallelism and exit")
	flag.BoolVar(&pretty, "pretty", false, "human-readable console logs instead of JSON")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	if capacity {
		fmt.Println(batch.AvailableParallelism())
		return 0
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(logLevel)
	logCfg.Pretty = pretty
	logger := logging.Setup(logCfg)

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 2
	}
	if len(inputs) == 0 {
		logger.Error().Msg("No input files: pass at least one -input")
		return 2
	}
	if len(keyFiles) == 0 {
		logger.Error().Msg("No credential files: pass at least one -keyfile")
		return 2
	}

	opts := batch.Options{
		ExecuteInTime:    cfg.ExecuteInTime,
		SplitTransit:     cfg.SplitTransit,
		QueriesPerSecond: cfg.QueriesPerSecond,
		WriteCSV:         cfg.WriteCSV,
		WriteDump:        cfg.WriteDump,
		BaseURL:          cfg.BaseURL,
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
			return 2
		}
		defer rdb.Close()
		opts.Redis = rdb
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Using shared Redis rate gate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := batch.NewOrchestrator(opts)
	outcomes, report, err := orch.Run(ctx, inputs, keyFiles, cfg.OutputFilename)
	if err != nil {
		logger.Error().Err(err).Msg("Run aborted")
		return 2
	}

	for _, outcome := range outcomes {
		status := "ok"
		detail := ""
		if outcome.Err != nil {
			status = "failed"
			detail = ": " + outcome.Err.Error()
		}
		fmt.Printf("%s\t%s\t%d records, %d warnings%s\n",
			outcome.InputPath, status, outcome.Records, len(outcome.Warnings), detail)
	}
	fmt.Printf("%d/%d batches succeeded, %d records, %d warnings\n",
		report.Batches-report.Fatal, report.Batches, report.Records, report.Warnings)

	if report.Fatal > 0 {
		return 1
	}
	return 0
}
