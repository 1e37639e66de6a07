package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueueName is the queue mail messages are published to.
const DefaultQueueName = "a5l.mail"

// Queue is a durable AMQP queue of mail messages. The API server publishes to
// it and the mailer process consumes from it. Send redials the broker when
// the connection has been closed.
type Queue struct {
	url  string
	name string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// DialQueue connects to the broker at url and declares the queue.
func DialQueue(url, name string) (*Queue, error) {
	if name == "" {
		name = DefaultQueueName
	}

	q := &Queue{url: url, name: name}
	if err := q.dial(); err != nil {
		return nil, err
	}
	return q, nil
}

// dial opens a connection and channel and declares the queue. Callers hold
// q.mu or own q exclusively.
func (q *Queue) dial() error {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("opening channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		q.name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declaring queue: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err, ok := <-closed; ok && err != nil {
			slog.Warn("mail queue connection closed", "error", err)
		}
	}()

	q.conn, q.channel = conn, channel
	return nil
}

// open returns a usable channel, redialing if the connection or channel has
// been closed since the last call.
func (q *Queue) open() (*amqp.Channel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn != nil && !q.conn.IsClosed() && q.channel != nil && !q.channel.IsClosed() {
		return q.channel, nil
	}
	if q.conn != nil {
		q.conn.Close()
		q.conn, q.channel = nil, nil
	}
	if err := q.dial(); err != nil {
		return nil, fmt.Errorf("reconnecting mail queue: %w", err)
	}
	slog.Info("mail queue reconnected", "queue", q.name)
	return q.channel, nil
}

// Send publishes msg as a persistent JSON message.
func (q *Queue) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding mail message: %w", err)
	}

	channel, err := q.open()
	if err != nil {
		return err
	}

	err = channel.PublishWithContext(ctx,
		"",     // exchange
		q.name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publishing mail message: %w", err)
	}
	return nil
}

// Consume delivers queued messages to sender until ctx is done or the
// channel closes. A message that fails to send is requeued once; a message
// that cannot be decoded is dropped.
func (q *Queue) Consume(ctx context.Context, sender Sender) error {
	channel, err := q.open()
	if err != nil {
		return err
	}
	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("setting qos: %w", err)
	}

	deliveries, err := channel.Consume(
		q.name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consuming queue: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			if err := settle(ctx, sender, d); err != nil {
				slog.Error("acknowledging mail message", "error", err, "delivery_tag", d.DeliveryTag)
			}
		}
	}
}

// settle sends one delivery and acks, rejects or requeues it accordingly.
// The returned error is the broker's answer to that acknowledgement.
func settle(ctx context.Context, sender Sender, d amqp.Delivery) error {
	switch err := HandleDelivery(ctx, sender, d.Body); {
	case err == nil:
		return d.Ack(false)
	case errors.Is(err, errBadMessage):
		slog.Error("dropping mail message", "error", err)
		return d.Reject(false)
	default:
		slog.Warn("mail delivery failed", "error", err, "redelivered", d.Redelivered)
		return d.Nack(false, !d.Redelivered)
	}
}

var errBadMessage = errors.New("malformed mail message")

// HandleDelivery decodes a queued message and passes it to sender.
func HandleDelivery(ctx context.Context, sender Sender, body []byte) error {
	msg, err := DecodeMessage(body)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}
	return sender.Send(ctx, msg)
}

// Close closes the channel and the connection.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn == nil {
		return nil
	}
	err := errors.Join(q.channel.Close(), q.conn.Close())
	q.conn, q.channel = nil, nil
	return err
}
