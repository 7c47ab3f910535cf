package writter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tp-distribuidos-2c2025/measurements/shared/aggregate"
	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware"
	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware/workerqueue"
)

// Publisher sends the final table to a RabbitMQ queue as a JSON array
type Publisher struct {
	queue  *workerqueue.QueueMiddleware
	logger *middleware.Logger
}

// NewPublisher creates a publisher over an open queue
func NewPublisher(queue *workerqueue.QueueMiddleware, logger *middleware.Logger) *Publisher {
	if logger == nil {
		logger = middleware.NopLogger()
	}
	return &Publisher{queue: queue, logger: logger}
}

// Publish declares the durable results queue and sends the table
func (p *Publisher) Publish(ctx context.Context, table *aggregate.Table) error {
	body, err := json.Marshal(Entries(table))
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	if err := p.queue.DeclareQueue(true, false, false, false); err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body, "application/json"); err != nil {
		return err
	}

	p.logger.LogInfo("Publisher", "Published %d keys to queue '%s'", table.Len(), p.queue.QueueName)
	return nil
}
