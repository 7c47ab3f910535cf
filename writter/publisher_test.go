package writter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware"
	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware/workerqueue"
)

type recordingChannel struct {
	durable    bool
	published  []amqp.Publishing
	publishErr error
}

func (c *recordingChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.durable = durable
	return amqp.Queue{Name: name}, nil
}

func (c *recordingChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *recordingChannel) Close() error { return nil }

func TestPublish(t *testing.T) {
	ch := &recordingChannel{}
	queue := workerqueue.NewMessageMiddlewareQueue("measurement-results", ch, nil)

	require.NoError(t, NewPublisher(queue, nil).Publish(context.Background(), sampleTable()))

	assert.True(t, ch.durable)
	require.Len(t, ch.published, 1)
	assert.Equal(t, "application/json", ch.published[0].ContentType)

	var entries []Entry
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "Amsterdam", entries[0].Key)
	assert.Equal(t, 3.0, entries[0].Mean)
}

func TestPublishFailure(t *testing.T) {
	ch := &recordingChannel{publishErr: errors.New("channel closed")}
	queue := workerqueue.NewMessageMiddlewareQueue("measurement-results", ch, nil)

	err := NewPublisher(queue, nil).Publish(context.Background(), sampleTable())
	assert.ErrorIs(t, err, middleware.ErrMessage)
}
