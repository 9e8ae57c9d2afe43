package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// AMQPQueue publishes envelopes to a RabbitMQ topic exchange. Each Subscribe
// declares a durable queue named "<QueuePrefix>.<topic>" bound to the topic.
type AMQPQueue struct {
	conn        *amqp.Connection
	pubMu       sync.Mutex
	pub         *amqp.Channel
	exchange    string
	QueuePrefix string
	Log         zerolog.Logger

	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once
}

func NewAMQPQueue(url, exchange string, log zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPQueue{
		conn:        conn,
		pub:         ch,
		exchange:    exchange,
		QueuePrefix: "partnerline",
		Log:         log.With().Str("component", "amqp").Logger(),
		done:        make(chan struct{}),
	}, nil
}

func (q *AMQPQueue) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env, err := NewEnvelope(topic, payload, time.Now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	err = q.pub.Publish(q.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Timestamp:    env.Time,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	q.Log.Debug().Str("topic", topic).Str("id", env.ID).Msg("published")
	return nil
}

// Subscribe starts a consumer goroutine. Failed deliveries are dead-lettered
// (nack without requeue) so a poison message cannot spin.
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	name := q.QueuePrefix + "." + topic
	queue, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	if err := ch.QueueBind(queue.Name, topic, q.exchange, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("bind queue %s: %w", name, err)
	}
	deliveries, err := ch.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("consume %s: %w", name, err)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer ch.Close()
		for {
			select {
			case <-q.done:
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				q.handle(handler, d)
			}
		}
	}()
	q.Log.Info().Str("queue", name).Msg("subscriber started")
	return nil
}

func (q *AMQPQueue) handle(handler Handler, d amqp.Delivery) {
	var env Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		q.Log.Warn().Err(err).Str("key", d.RoutingKey).Msg("invalid envelope")
		_ = d.Ack(false)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := handler(ctx, env); err != nil {
		q.Log.Error().Err(err).Str("key", d.RoutingKey).Str("id", env.ID).Msg("handler error")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (q *AMQPQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	q.wg.Wait()
	q.pubMu.Lock()
	_ = q.pub.Close()
	q.pubMu.Unlock()
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
