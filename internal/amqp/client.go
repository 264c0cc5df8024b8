package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Client wraps a RabbitMQ connection and publishes budget events on a
// direct exchange. A nil *Client is a no-op publisher, so callers can
// run without a broker configured.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

func NewClient(url, exchange, queue string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := channel.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(q.Name, q.Name, exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &Client{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		queue:    queue,
	}, nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	if c == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := c.channel.PublishWithContext(ctx,
		c.exchange,
		c.queue, // routing key matches the bound queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishRecordEvent emits a record change notification. Errors are
// returned so callers can decide whether to log or fail; a nil client
// silently succeeds.
func (c *Client) PublishRecordEvent(ctx context.Context, msg *RecordEventMessage) error {
	if c == nil {
		return nil
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize record event: %w", err)
	}
	return c.publish(ctx, body)
}

func (c *Client) PublishDuplicationEvent(ctx context.Context, msg *DuplicationEventMessage) error {
	if c == nil {
		return nil
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize duplication event: %w", err)
	}
	return c.publish(ctx, body)
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			slog.Error("failed to close AMQP channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			slog.Error("failed to close AMQP connection", "error", err)
		}
	}
}
