// Package amqp publishes and consumes the spreadsheet sync queue.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Message type names carried in the AMQP message Type property.
const (
	typeSync   = "transaction.sync"
	typeDelete = "transaction.delete"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key matches the queue name on a direct exchange.
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Type:         msgType,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// PublishTransactionSync enqueues a sync message for the given transaction.
func (c *Client) PublishTransactionSync(ctx context.Context, id int64) error {
	body, err := NewTransactionSyncMessage(id).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal sync message: %w", err)
	}
	if err := c.publish(ctx, typeSync, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published transaction sync message",
		"id", id,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishTransactionDelete enqueues a delete audit message.
func (c *Client) PublishTransactionDelete(ctx context.Context, msg *TransactionDeleteMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal delete message: %w", err)
	}
	if err := c.publish(ctx, typeDelete, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published transaction delete message",
		"id", msg.ID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// ConsumeMessages dispatches queue deliveries to the handlers until ctx is
// cancelled. Handler failures nack with requeue; undecodable messages are
// dropped.
func (c *Client) ConsumeMessages(
	ctx context.Context,
	onSync func(context.Context, *TransactionSyncMessage) error,
	onDelete func(context.Context, *TransactionDeleteMessage) error,
) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming sync messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.dispatch(ctx, delivery, onSync, onDelete)
		}
	}
}

func (c *Client) dispatch(
	ctx context.Context,
	delivery amqp091.Delivery,
	onSync func(context.Context, *TransactionSyncMessage) error,
	onDelete func(context.Context, *TransactionDeleteMessage) error,
) {
	var err error
	switch delivery.Type {
	case typeSync:
		var msg *TransactionSyncMessage
		if msg, err = TransactionSyncMessageFromJSON(delivery.Body); err == nil {
			err = onSync(ctx, msg)
		}
	case typeDelete:
		var msg *TransactionDeleteMessage
		if msg, err = TransactionDeleteMessageFromJSON(delivery.Body); err == nil {
			err = onDelete(ctx, msg)
		}
	default:
		slog.WarnContext(ctx, "Unknown message type, dropping", "type", delivery.Type)
		delivery.Nack(false, false)
		return
	}

	if err != nil {
		slog.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"type", delivery.Type)
		delivery.Nack(false, true) // requeue for retry
		return
	}
	delivery.Ack(false)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
