package middleware

import (
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrDisconnected is returned when a middleware has no open channel
	ErrDisconnected = errors.New("middleware: channel is not connected")
	// ErrMessage is returned when the broker rejects a declare or publish
	ErrMessage = errors.New("middleware: message error")
)

// ConnectionConfig holds configuration for RabbitMQ connections
type ConnectionConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	VHost    string `yaml:"vhost"`
}

// DefaultConnectionConfig returns a default configuration for local RabbitMQ
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Username: "guest",
		Password: "guest",
		Host:     "localhost",
		Port:     5672,
		VHost:    "/",
	}
}

// BuildURL constructs a RabbitMQ URL from the configuration
func (c *ConnectionConfig) BuildURL() string {
	if c.URL != "" {
		return c.URL
	}
	vhost := c.VHost
	if vhost == "" || vhost[0] != '/' {
		vhost = "/" + vhost
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", c.Username, c.Password, c.Host, c.Port, vhost)
}

// Connection bundles the broker connection with the channel opened on it
type Connection struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
}

// Close closes the channel and then the connection
func (c *Connection) Close() error {
	var errs []error
	if c.Channel != nil {
		errs = append(errs, c.Channel.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}

// CreateConnection dials the broker and opens a channel on it
func CreateConnection(config *ConnectionConfig) (*Connection, error) {
	conn, err := amqp.Dial(config.BuildURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ connection: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &Connection{conn: conn, Channel: ch}, nil
}

// WaitForConnection retries CreateConnection until the broker is available
func WaitForConnection(config *ConnectionConfig, maxRetries int, retryInterval time.Duration) (*Connection, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		conn, err := CreateConnection(config)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d retries: %w", maxRetries, lastErr)
}
