package queues

import "sync/atomic"

// unboundedQueue never blocks the producer; backlog is held in memory by a
// pump goroutine between the in and out channels
type unboundedQueue struct {
	in      chan Batch
	out     chan Batch
	pending atomic.Int64
}

func newUnboundedQueue() *unboundedQueue {
	q := &unboundedQueue{
		in:  make(chan Batch),
		out: make(chan Batch),
	}
	go q.pump()
	return q
}

func (q *unboundedQueue) Send(batch Batch) {
	q.pending.Add(1)
	q.in <- batch
}

func (q *unboundedQueue) Receive() <-chan Batch { return q.out }

func (q *unboundedQueue) Close() { close(q.in) }

func (q *unboundedQueue) Len() int { return int(q.pending.Load()) }

func (q *unboundedQueue) pump() {
	defer close(q.out)

	var backlog []Batch
	in := q.in
	for in != nil || len(backlog) > 0 {
		var out chan Batch
		var next Batch
		if len(backlog) > 0 {
			out = q.out
			next = backlog[0]
		}

		select {
		case batch, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			backlog = append(backlog, batch)
		case out <- next:
			backlog[0] = nil
			backlog = backlog[1:]
			q.pending.Add(-1)
		}
	}
}
