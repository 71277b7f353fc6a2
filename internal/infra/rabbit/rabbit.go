package rabbit

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client wraps a single durable RabbitMQ connection and channel. Every
// process opens exactly one Client at startup and keeps it for the lifetime
// of the process.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials the broker with a bounded timeout and opens a channel.
// There is no retry loop: a process that cannot reach its queues must not
// run, so a failed dial is returned to the caller to treat as fatal and let
// the supervisor restart the process.
func Connect(url string, timeout time.Duration) (*Client, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return &Client{conn: conn, channel: channel}, nil
}

// DeclareQueues declares the given queues as durable. Declaring a queue that
// already exists with the same properties is a no-op on the broker side, so
// every process declares the queues it touches.
func (c *Client) DeclareQueues(names ...string) error {
	for _, name := range names {
		_, err := c.channel.QueueDeclare(
			name,  // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	return nil
}

// Publish sends a persistent message to the named queue via the default
// exchange. It does not wait for a broker confirmation; once the message is
// accepted the broker owns delivery.
func (c *Client) Publish(ctx context.Context, queue, contentType string, body []byte) error {
	err := c.channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  contentType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	return nil
}

// Consume registers a competing consumer on the named queue with manual
// acknowledgment and a prefetch of one, so a message is fully handled before
// the next is delivered on this channel. Unacknowledged messages are
// redelivered by the broker after the consumer disconnects.
func (c *Client) Consume(queue string) (<-chan amqp.Delivery, error) {
	err := c.channel.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer on %s: %w", queue, err)
	}

	return msgs, nil
}

// Close closes the channel and the connection.
func (c *Client) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
