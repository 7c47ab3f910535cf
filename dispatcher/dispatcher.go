package dispatcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/tp-distribuidos-2c2025/measurements/shared/metrics"
	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware"
	"github.com/tp-distribuidos-2c2025/measurements/shared/queues"
)

const (
	component = "Dispatcher"

	DefaultBatchSize    = 512
	DefaultMaxLineBytes = 512 * 1024

	// lines between two context checks
	cancelCheckInterval = 4096
)

var (
	// ErrInvalidEncoding marks an input line that is not valid UTF-8
	ErrInvalidEncoding = errors.New("line is not valid UTF-8")
	// ErrLineTooLong marks an input line longer than the configured maximum
	ErrLineTooLong = errors.New("line exceeds maximum length")
)

// StreamReadError is a fatal failure of the input stream. Line is the
// 1-based number of the line being read when the failure happened.
type StreamReadError struct {
	Line int
	Err  error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("reading input at line %d: %v", e.Line, e.Err)
}

func (e *StreamReadError) Unwrap() error {
	return e.Err
}

// Config tunes the dispatcher
type Config struct {
	// Lines accumulated per worker before a send
	BatchSize    int
	MaxLineBytes int
}

// Dispatcher reads the input sequentially and routes line i to worker i mod N
type Dispatcher struct {
	queues       []queues.BatchQueue
	batchSize    int
	maxLineBytes int
	logger       *middleware.Logger
	stats        metrics.Stats
}

// NewDispatcher creates a dispatcher over one queue per worker
func NewDispatcher(workerQueues []queues.BatchQueue, config Config, logger *middleware.Logger, stats metrics.Stats) *Dispatcher {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.MaxLineBytes <= 0 {
		config.MaxLineBytes = DefaultMaxLineBytes
	}
	if logger == nil {
		logger = middleware.NopLogger()
	}
	if stats == nil {
		stats = metrics.NopStats{}
	}
	return &Dispatcher{
		queues:       workerQueues,
		batchSize:    config.BatchSize,
		maxLineBytes: config.MaxLineBytes,
		logger:       logger,
		stats:        stats,
	}
}

// Run routes every line of r and returns the number of lines dispatched.
// All worker queues are closed when Run returns, whatever the outcome.
func (d *Dispatcher) Run(ctx context.Context, r io.Reader) (int, error) {
	defer d.closeQueues()

	if len(d.queues) == 0 {
		return 0, errors.New("dispatcher: no worker queues")
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, d.maxLineBytes)), d.maxLineBytes)

	numWorkers := len(d.queues)
	pending := make([]queues.Batch, numWorkers)
	for i := range pending {
		pending[i] = make(queues.Batch, 0, d.batchSize)
	}

	index := 0
	for scanner.Scan() {
		if index%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				d.logger.LogWarn(component, "Cancelled after %d lines", index)
				return index, err
			}
		}

		// ScanLines already strips "\r\n" endings
		line := scanner.Text()
		if !utf8.ValidString(line) {
			d.stats.IncStreamFailed()
			return index, &StreamReadError{Line: index + 1, Err: ErrInvalidEncoding}
		}

		worker := index % numWorkers
		pending[worker] = append(pending[worker], line)
		if len(pending[worker]) == d.batchSize {
			d.send(worker, pending[worker])
			pending[worker] = make(queues.Batch, 0, d.batchSize)
		}
		index++
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			err = fmt.Errorf("%w (%d bytes)", ErrLineTooLong, d.maxLineBytes)
		}
		d.stats.IncStreamFailed()
		return index, &StreamReadError{Line: index + 1, Err: err}
	}

	for worker, batch := range pending {
		if len(batch) > 0 {
			d.send(worker, batch)
		}
	}

	d.logger.LogDebug(component, "All %d lines routed to %d workers", index, numWorkers)
	return index, nil
}

func (d *Dispatcher) send(worker int, batch queues.Batch) {
	d.queues[worker].Send(batch)
	d.stats.AddLinesDispatched(len(batch))
	d.stats.SetQueueBacklog(worker, d.queues[worker].Len())
}

func (d *Dispatcher) closeQueues() {
	for _, q := range d.queues {
		q.Close()
	}
}
