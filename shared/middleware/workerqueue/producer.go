package workerqueue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware"
)

// Channel is the subset of *amqp.Channel used by the producer
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// QueueMiddleware publishes messages to a single named queue
type QueueMiddleware struct {
	QueueName string
	Channel   Channel
	logger    *middleware.Logger
}

// NewMessageMiddlewareQueue creates a new QueueMiddleware on an open channel
func NewMessageMiddlewareQueue(queueName string, channel Channel, logger *middleware.Logger) *QueueMiddleware {
	if logger == nil {
		logger = middleware.NopLogger()
	}
	return &QueueMiddleware{
		QueueName: queueName,
		Channel:   channel,
		logger:    logger,
	}
}

func (m *QueueMiddleware) component() string {
	return fmt.Sprintf("Queue '%s' Producer", m.QueueName)
}

// DeclareQueue declares the queue on the RabbitMQ server.
// Parameters:
//   - durable: If true, the queue will survive server restarts
//   - autoDelete: If true, the queue will be deleted when no longer used
//   - exclusive: If true, the queue can only be used by one connection
//   - noWait: If true, don't wait for a server response
func (m *QueueMiddleware) DeclareQueue(durable, autoDelete, exclusive, noWait bool) error {
	if m.Channel == nil {
		return middleware.ErrDisconnected
	}

	if _, err := m.Channel.QueueDeclare(m.QueueName, durable, autoDelete, exclusive, noWait, nil); err != nil {
		m.logger.LogError(m.component(), "Failed to declare queue: %v", err)
		return fmt.Errorf("%w: declare %s: %v", middleware.ErrMessage, m.QueueName, err)
	}

	m.logger.LogDebug(m.component(), "Successfully declared (durable: %t)", durable)
	return nil
}

// Send publishes message on the default exchange routed to the queue
func (m *QueueMiddleware) Send(ctx context.Context, message []byte, contentType string) error {
	if m.Channel == nil {
		return middleware.ErrDisconnected
	}

	err := m.Channel.PublishWithContext(
		ctx,
		"",          // exchange (empty for default queue)
		m.QueueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  contentType,
			DeliveryMode: amqp.Persistent,
			Body:         message,
		},
	)
	if err != nil {
		m.logger.LogError(m.component(), "Send error: %v", err)
		return fmt.Errorf("%w: publish to %s: %v", middleware.ErrMessage, m.QueueName, err)
	}

	m.logger.LogDebug(m.component(), "Message sent (%d bytes)", len(message))
	return nil
}

// Close disconnects the channel
func (m *QueueMiddleware) Close() error {
	if m.Channel == nil {
		return nil
	}
	err := m.Channel.Close()
	m.Channel = nil
	return err
}
