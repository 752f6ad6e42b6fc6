package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"wa-relay/internal/metrics"
	"wa-relay/internal/model"
)

const DefaultQueue = "wa_relay_inbound"

// RabbitClient publishes received messages to a durable queue. Consumers are
// external to the relay.
type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
	Queue   string

	mu  sync.Mutex
	log logrus.FieldLogger
}

func NewRabbitClient(url, queue string, log logrus.FieldLogger) (*RabbitClient, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	r := &RabbitClient{
		conn:    conn,
		channel: ch,
		URL:     url,
		Queue:   queue,
		log:     log.WithField("component", "rabbit"),
	}
	if err := r.DeclareQueue(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *RabbitClient) GetChannel() *amqp.Channel {
	return r.channel
}

func (r *RabbitClient) dlqName() string {
	return r.Queue + "_dlq"
}

// DeclareQueue creates the durable inbound queue and its dead-letter queue.
func (r *RabbitClient) DeclareQueue() error {
	dlqName := r.dlqName()

	// 1. DLQ
	_, err := r.channel.QueueDeclare(
		dlqName,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	// 2. Main Queue with DLQ binding
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	}
	_, err = r.channel.QueueDeclare(
		r.Queue,
		true, false, false, false,
		args,
	)
	if err != nil {
		return fmt.Errorf("declare main queue: %w", err)
	}

	r.log.WithField("queue", r.Queue).Info("queues declared")
	return nil
}

// Publish sends a raw body to the inbound queue.
func (r *RabbitClient) Publish(body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.channel.Publish(
		"",      // default exchange
		r.Queue, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", r.Queue, err)
	}
	return nil
}

// PublishMessage publishes a received message as JSON.
func (r *RabbitClient) PublishMessage(m model.Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		metrics.AMQPPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal message %s: %w", m.ID, err)
	}
	if err := r.Publish(body); err != nil {
		metrics.AMQPPublished.WithLabelValues("error").Inc()
		return err
	}
	metrics.AMQPPublished.WithLabelValues("ok").Inc()
	return nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}

func (r *RabbitClient) UpdateQueueDepth() {
	r.mu.Lock()
	q, err := r.channel.QueueInspect(r.Queue)
	r.mu.Unlock()
	if err != nil {
		r.log.WithError(err).Warn("failed to inspect queue")
		return
	}

	metrics.QueueDepth.Set(float64(q.Messages))
}
