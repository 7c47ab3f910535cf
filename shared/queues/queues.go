package queues

// Batch is a run of consecutive lines routed to the same worker
type Batch []string

// BatchQueue is a single-producer single-consumer FIFO of line batches.
// Close must be called exactly once by the producer; the receive channel is
// closed after every queued batch has been delivered.
type BatchQueue interface {
	// Send enqueues a batch. It blocks only when a bounded queue is full.
	Send(batch Batch)
	// Receive returns the channel the consumer ranges over
	Receive() <-chan Batch
	Close()
	// Len reports the number of batches waiting to be received
	Len() int
}

// NewBatchQueue returns a bounded queue of the given depth, or an unbounded
// queue when depth is 0
func NewBatchQueue(depth int) BatchQueue {
	if depth > 0 {
		return newBoundedQueue(depth)
	}
	return newUnboundedQueue()
}

type boundedQueue struct {
	ch chan Batch
}

func newBoundedQueue(depth int) *boundedQueue {
	return &boundedQueue{ch: make(chan Batch, depth)}
}

func (q *boundedQueue) Send(batch Batch)      { q.ch <- batch }
func (q *boundedQueue) Receive() <-chan Batch { return q.ch }
func (q *boundedQueue) Close()                { close(q.ch) }
func (q *boundedQueue) Len() int              { return len(q.ch) }
