package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const notifyQueue = "mail.notify"

// QueueSender hands messages to a mail worker through RabbitMQ. One
// persistent message is published per recipient
type QueueSender struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewQueueSender(url string) (*QueueSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq, %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel, %w", err)
	}

	_, err = ch.QueueDeclare(
		notifyQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue, %w", err)
	}

	return &QueueSender{conn: conn, ch: ch}, nil
}

func (q *QueueSender) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	return q.ch.PublishWithContext(ctx, "", notifyQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (q *QueueSender) Close() {
	if err := q.ch.Close(); err != nil {
		zap.L().Warn("Failed to close rabbitmq channel", zap.Error(err))
	}

	if err := q.conn.Close(); err != nil {
		zap.L().Warn("Failed to close rabbitmq connection", zap.Error(err))
	}
}
