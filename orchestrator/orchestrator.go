package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tp-distribuidos-2c2025/measurements/dispatcher"
	"github.com/tp-distribuidos-2c2025/measurements/shared/aggregate"
	"github.com/tp-distribuidos-2c2025/measurements/shared/metrics"
	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware"
	"github.com/tp-distribuidos-2c2025/measurements/shared/queues"
	"github.com/tp-distribuidos-2c2025/measurements/workers/aggregator"
	"github.com/tp-distribuidos-2c2025/measurements/workers/reducer"
)

const component = "Orchestrator"

// Config sizes the pipeline
type Config struct {
	Workers int
	// Per-worker queue capacity in batches; 0 is unbounded
	QueueDepth   int
	BatchSize    int
	MaxLineBytes int
}

// Summary describes a finished run
type Summary struct {
	Workers      int
	Lines        int
	Records      int
	FormatErrors int
	ValueErrors  int
	Keys         int
	Elapsed      time.Duration
	Reports      []aggregator.Report
}

// Malformed returns the number of skipped lines
func (s Summary) Malformed() int {
	return s.FormatErrors + s.ValueErrors
}

// GroupByOrchestrator wires dispatcher, workers and reducer for one run
type GroupByOrchestrator struct {
	config Config
	logger *middleware.Logger
	stats  metrics.Stats
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(config Config, logger *middleware.Logger, stats metrics.Stats) *GroupByOrchestrator {
	if logger == nil {
		logger = middleware.NopLogger()
	}
	if stats == nil {
		stats = metrics.NopStats{}
	}
	return &GroupByOrchestrator{config: config, logger: logger, stats: stats}
}

// Run aggregates every line of r. On a fatal stream error or cancellation
// the partial tables are discarded and only the error is returned.
func (o *GroupByOrchestrator) Run(ctx context.Context, r io.Reader) (*aggregate.Table, Summary, error) {
	numWorkers := o.config.Workers
	if numWorkers < 1 {
		return nil, Summary{}, fmt.Errorf("orchestrator: need at least one worker, got %d", numWorkers)
	}

	start := time.Now()
	o.logger.LogInfo(component, "Starting with %d workers (queue depth %d)", numWorkers, o.config.QueueDepth)

	workerQueues := make([]queues.BatchQueue, numWorkers)
	tables := make([]*aggregate.Table, numWorkers)
	reports := make([]aggregator.Report, numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		workerQueues[i] = queues.NewBatchQueue(o.config.QueueDepth)
		worker := aggregator.NewAggregatorWorker(i, workerQueues[i].Receive(), o.logger, o.stats)

		wg.Add(1)
		go func(i int, w *aggregator.AggregatorWorker) {
			defer wg.Done()
			tables[i], reports[i] = w.Run()
		}(i, worker)
	}

	d := dispatcher.NewDispatcher(workerQueues, dispatcher.Config{
		BatchSize:    o.config.BatchSize,
		MaxLineBytes: o.config.MaxLineBytes,
	}, o.logger, o.stats)
	lines, err := d.Run(ctx, r)
	o.logger.LogDebug(component, "Dispatcher finished after %d lines in %v", lines, time.Since(start))

	// the dispatcher closed every queue, so all workers reach Done
	wg.Wait()

	if err != nil {
		o.logger.LogError(component, "Aborting run: %v", err)
		return nil, Summary{}, err
	}

	result := reducer.NewReducer(o.logger, o.stats).Merge(tables...)

	summary := Summary{
		Workers: numWorkers,
		Lines:   lines,
		Keys:    result.Len(),
		Elapsed: time.Since(start),
		Reports: reports,
	}
	for _, rep := range reports {
		summary.Records += rep.Records
		summary.FormatErrors += rep.FormatErrors
		summary.ValueErrors += rep.ValueErrors
	}

	o.logger.LogInfo(component, "Processed %d lines (%d malformed) into %d keys in %v",
		summary.Lines, summary.Malformed(), summary.Keys, summary.Elapsed)
	return result, summary, nil
}
