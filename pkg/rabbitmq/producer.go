/**
 * @description
 * This package provides a producer for publishing transfer events to
 * RabbitMQ. It encapsulates connecting to the broker and publishing JSON
 * payloads to the configured queue.
 *
 * @dependencies
 * - context, encoding/json, time: Standard Go libraries.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/SamMDev/Console-Banking-App/internal/domain"
)

// Publisher is the interface implemented by types that can publish transfer
// events.
type Publisher interface {
	PublishTransferEvent(ctx context.Context, event domain.TransferEvent) error
	Close()
}

// EventProducer holds the RabbitMQ connection and channel for publishing.
type EventProducer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
}

// FallbackProducer is a no-op publisher used when RabbitMQ is unavailable at
// startup: a broker outage must not take the ledger down with it.
type FallbackProducer struct {
	Logger *slog.Logger
}

func (p *FallbackProducer) PublishTransferEvent(ctx context.Context, event domain.TransferEvent) error {
	if p.Logger != nil {
		p.Logger.Warn("transfer event publish skipped, broker unavailable",
			"status", event.Status, "sender_id", event.SenderID, "receiver_id", event.ReceiverID)
	}
	return nil
}

func (p *FallbackProducer) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	// If any stray characters precede the scheme, slice from first occurrence of amqp
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer connects to RabbitMQ and declares the transfer event
// queue.
func NewEventProducer(amqpURL, queue string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Bounded dial timeout so startup does not hang indefinitely.
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: ch, queue: queue}, nil
}

// PublishTransferEvent publishes one transfer event as a persistent JSON
// message. The event id is filled here when the caller left it zero.
func (p *EventProducer) PublishTransferEvent(ctx context.Context, event domain.TransferEvent) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(publishCtx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.EventID.String(),
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

// Close shuts down the channel and connection.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
