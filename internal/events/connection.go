package events

import (
	"errors"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection manages the broker link for the event publisher. Publishing is
// best effort, so a dropped link is redialed on the next use instead of
// tearing the process down.
type Connection struct {
	url string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewConnection dials the broker and keeps the URL for later redials
func NewConnection(url string) (*Connection, error) {
	if url == "" {
		return nil, errors.New("rabbitmq url cannot be empty")
	}

	c := &Connection{url: url}
	conn, channel, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.channel = channel

	return c, nil
}

func (c *Connection) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return conn, channel, nil
}

// Channel returns the publish channel, redialing a dead link first
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.alive() {
		return c.channel, nil
	}

	log.Println("Event broker link is down, redialing...")
	c.teardown()

	conn, channel, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.channel = channel

	log.Println("Event broker link restored")
	return c.channel, nil
}

// IsConnected reports whether the broker link is currently up. It never
// redials, so health checks stay cheap.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive()
}

func (c *Connection) alive() bool {
	return c.conn != nil && c.channel != nil && !c.conn.IsClosed()
}

func (c *Connection) teardown() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close shuts the broker link down for good
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
		c.conn = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
