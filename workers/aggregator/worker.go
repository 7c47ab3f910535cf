package aggregator

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tp-distribuidos-2c2025/measurements/protocol/measurement"
	"github.com/tp-distribuidos-2c2025/measurements/shared/aggregate"
	"github.com/tp-distribuidos-2c2025/measurements/shared/metrics"
	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware"
	"github.com/tp-distribuidos-2c2025/measurements/shared/queues"
)

const tableSizeHint = 1024

// State is the lifecycle position of a worker
type State int32

const (
	StateReceiving State = iota
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReceiving:
		return "RECEIVING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Report summarizes what one worker saw
type Report struct {
	WorkerID     int
	Lines        int
	Records      int
	FormatErrors int
	ValueErrors  int
	Duration     time.Duration
}

// Malformed returns the number of skipped lines
func (r Report) Malformed() int {
	return r.FormatErrors + r.ValueErrors
}

// AggregatorWorker folds the lines of its shard into a private table
type AggregatorWorker struct {
	workerID  int
	component string
	queue     <-chan queues.Batch
	table     *aggregate.Table
	state     atomic.Int32
	started   atomic.Bool
	report    Report
	logger    *middleware.Logger
	stats     metrics.Stats
}

// NewAggregatorWorker creates a worker consuming batches from queue
func NewAggregatorWorker(workerID int, queue <-chan queues.Batch, logger *middleware.Logger, stats metrics.Stats) *AggregatorWorker {
	if logger == nil {
		logger = middleware.NopLogger()
	}
	if stats == nil {
		stats = metrics.NopStats{}
	}
	return &AggregatorWorker{
		workerID:  workerID,
		component: fmt.Sprintf("Worker %d", workerID),
		queue:     queue,
		table:     aggregate.NewTable(tableSizeHint),
		report:    Report{WorkerID: workerID},
		logger:    logger,
		stats:     stats,
	}
}

// State returns the current lifecycle state
func (w *AggregatorWorker) State() State {
	return State(w.state.Load())
}

// Run receives until the queue is closed and drained, then hands back the
// table. The worker keeps no reference to it afterwards. Run may be called
// only once.
func (w *AggregatorWorker) Run() (*aggregate.Table, Report) {
	if !w.started.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("aggregator: worker %d started twice", w.workerID))
	}

	start := time.Now()
	w.stats.WorkerStarted()
	w.logger.LogDebug(w.component, "Started and waiting for lines")

	for batch := range w.queue {
		for _, line := range batch {
			w.processLine(line)
		}
	}

	w.report.Duration = time.Since(start)
	w.state.Store(int32(StateDone))
	w.stats.WorkerDone()
	w.stats.AddRecordsAggregated(w.report.Records)
	w.stats.ObserveWorkerDuration(w.report.Duration)
	w.logger.LogDebug(w.component, "Queue closed after %d lines (%d keys, %d malformed) in %v",
		w.report.Lines, w.table.Len(), w.report.Malformed(), w.report.Duration)

	table := w.table
	w.table = nil
	return table, w.report
}

// processLine parses one line and folds it into the table, skipping it when malformed
func (w *AggregatorWorker) processLine(line string) {
	w.report.Lines++

	record, err := measurement.ParseLine(line)
	if err != nil {
		var formatErr *measurement.FormatError
		if errors.As(err, &formatErr) {
			w.report.FormatErrors++
			w.stats.IncMalformed(metrics.KindFormat)
		} else {
			w.report.ValueErrors++
			w.stats.IncMalformed(metrics.KindValue)
		}
		w.logger.LogWarn(w.component, "Skipping malformed line: %v", err)
		return
	}

	w.report.Records++
	w.table.Update(record.Key, record.Value)
}
