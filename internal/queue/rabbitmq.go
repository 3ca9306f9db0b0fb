package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"thera-watch/internal/notify"
)

// Event is the JSON body published for every notification.
type Event struct {
	ScoutID      int64  `json:"scout_id"`
	Reference    string `json:"reference"`
	ReferenceID  int64  `json:"reference_id"`
	System       string `json:"system"`
	Region       string `json:"region"`
	Jumps        int    `json:"jumps"`
	InSignature  string `json:"in_signature"`
	OutSignature string `json:"out_signature"`
	Content      string `json:"content"`
}

func EventFrom(n notify.Notification) Event {
	return Event{
		ScoutID:      n.ScoutID,
		Reference:    n.Reference,
		ReferenceID:  n.ReferenceID,
		System:       n.System,
		Region:       n.Region,
		Jumps:        n.Jumps,
		InSignature:  n.InSignature,
		OutSignature: n.OutSignature,
		Content:      n.Content,
	}
}

type RabbitMQ struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	queueName string
	confirmCh <-chan amqp.Confirmation
	timeout   time.Duration
}

func NewRabbitMQ(url, queueName string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening RabbitMQ channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %q: %w", queueName, err)
	}

	// publisher confirms
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enabling publisher confirms: %w", err)
	}

	confirmCh := ch.NotifyPublish(make(chan amqp.Confirmation, 16))

	return &RabbitMQ{
		conn:      conn,
		ch:        ch,
		queueName: queueName,
		confirmCh: confirmCh,
		timeout:   5 * time.Second,
	}, nil
}

func (r *RabbitMQ) publish(ctx context.Context, body []byte) error {
	err := r.ch.PublishWithContext(
		ctx,
		"", // default exchange
		r.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publishing to RabbitMQ: %w", err)
	}

	select {
	case conf := <-r.confirmCh:
		if !conf.Ack {
			return fmt.Errorf("message nacked by broker")
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (r *RabbitMQ) PublishEvent(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return r.publish(ctx, body)
}

// Notify publishes n; failures are logged only.
func (r *RabbitMQ) Notify(ctx context.Context, n notify.Notification) {
	pubCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.PublishEvent(pubCtx, EventFrom(n)); err != nil {
		slog.Error("failed to publish notification to RabbitMQ",
			"scout_id", n.ScoutID,
			"reference", n.Reference,
			"queue", r.queueName,
			"err", err,
		)
		return
	}
	slog.Debug("notification published to RabbitMQ",
		"scout_id", n.ScoutID,
		"reference", n.Reference,
		"queue", r.queueName,
	)
}

func (r *RabbitMQ) Close() error {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
