// Package mq consumes CSV exports from RabbitMQ and publishes the resulting
// dashboard views.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"

	"tweet-sentiment/src/dashboard"
	"tweet-sentiment/src/pipeline"
)

// Config holds RabbitMQ connection configuration
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// Queue receives whole CSV exports, one per message.
	Queue string
	// ResultQueue receives the dashboard view of each export. Empty disables publishing.
	ResultQueue string
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("empty host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Queue == "" {
		return errors.New("empty queue name")
	}
	if c.ResultQueue == c.Queue {
		return errors.New("result queue must differ from the input queue")
	}
	return nil
}

// URL builds the AMQP connection URL.
func (c Config) URL() string {
	u := url.URL{
		Scheme: "amqp",
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/",
	}
	if c.Username != "" || c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

// Analyzer runs one export through the analysis chain.
type Analyzer interface {
	AnalyzeText(ctx context.Context, name, text string) (dashboard.Result, error)
}

// Response is the message published for each consumed export.
type Response struct {
	ID        string                  `json:"id,omitempty"`
	Timestamp string                  `json:"timestamp,omitempty"`
	Source    string                  `json:"source"`
	View      *pipeline.DashboardView `json:"view,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// Consumer implements the queue intake using RabbitMQ
type Consumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    amqp.Queue
	config   Config
	analyzer Analyzer
}

// NewConsumer connects to RabbitMQ and declares the queues.
func NewConsumer(config Config, analyzer Analyzer) (*Consumer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rabbitmq config: %w", err)
	}

	// Connect to RabbitMQ
	conn, err := amqp.Dial(config.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	// Create channel
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Declare queues
	q, err := declare(ch, config.Queue)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if config.ResultQueue != "" {
		if _, err := declare(ch, config.ResultQueue); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}

	// Set QoS for fair dispatch
	err = ch.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &Consumer{
		conn:     conn,
		channel:  ch,
		queue:    q,
		config:   config,
		analyzer: analyzer,
	}, nil
}

func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return q, nil
}

// Run consumes until ctx is done or the delivery channel closes. Each message is
// acked once handled; exports that fail to analyse are acked too, with the error
// published instead of a view, since redelivery would fail the same way.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.channel.ConsumeWithContext(ctx,
		c.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}
	slog.Info("Connected to RabbitMQ. Waiting for exports...", "queue", c.queue.Name)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.deliver(ctx, msg)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, msg amqp.Delivery) {
	body, err := Handle(ctx, c.analyzer, messageName(msg), msg.Body)
	if err != nil {
		slog.Warn("Export rejected", "message_id", msg.MessageId, "error", err)
	}
	if c.config.ResultQueue != "" {
		pubErr := c.channel.PublishWithContext(ctx,
			"",                   // exchange
			c.config.ResultQueue, // routing key
			false,                // mandatory
			false,                // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				CorrelationId: msg.MessageId,
				Body:          body,
			})
		if pubErr != nil {
			slog.Error("Failed to publish result", "queue", c.config.ResultQueue, "error", pubErr)
			if nackErr := msg.Nack(false, true); nackErr != nil {
				slog.Error("Failed to nack message", "error", nackErr)
			}
			return
		}
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		slog.Error("Failed to ack message", "error", ackErr)
	}
}

func messageName(msg amqp.Delivery) string {
	if msg.MessageId != "" {
		return msg.MessageId
	}
	return "amqp:" + strconv.FormatUint(msg.DeliveryTag, 10)
}

// Handle analyses one message body and returns the JSON response to publish.
// The returned error is the analysis error, already encoded in the response.
func Handle(ctx context.Context, analyzer Analyzer, name string, body []byte) ([]byte, error) {
	resp := Response{Source: name}
	res, err := analyzer.AnalyzeText(ctx, name, string(body))
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.ID = res.ID
		resp.Timestamp = res.Timestamp
		resp.View = &res.View
	}
	data, mErr := json.Marshal(resp)
	if mErr != nil {
		return nil, fmt.Errorf("encode response: %w", mErr)
	}
	return data, err
}

// Close closes the RabbitMQ connection
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Backlog reports how many exports wait in the input queue and how many
// consumers are attached to it.
type Backlog struct {
	Queue     string
	Messages  int
	Consumers int
}

// Backlog asks the broker for the current state of the input queue.
func (c *Consumer) Backlog() (Backlog, error) {
	if c == nil || c.channel == nil {
		return Backlog{}, errors.New("consumer is not connected")
	}
	q, err := c.channel.QueueDeclarePassive(c.config.Queue, true, false, false, false, nil)
	if err != nil {
		return Backlog{}, fmt.Errorf("failed to inspect queue %s: %w", c.config.Queue, err)
	}
	return Backlog{Queue: q.Name, Messages: q.Messages, Consumers: q.Consumers}, nil
}
