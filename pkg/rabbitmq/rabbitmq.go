package rabbitmq

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// Queues declared on connect and the routing patterns bound to them.
const (
	OrderEventsQueue = "order_events"
	EmailQueue       = "email_queue"
)

// DefaultBindings routes order lifecycle events and outgoing mail to their queues.
var DefaultBindings = map[string]string{
	OrderEventsQueue: "order.#",
	EmailQueue:       "email.#",
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
	// Bindings maps queue name to routing pattern. Nil uses DefaultBindings.
	Bindings map[string]string
}

// NewClient connects, declares a durable topic exchange and binds the queues.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to open channel")
	}

	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "food.events"
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, errors.Wrapf(err, "failed to declare exchange %s", exchange)
	}

	bindings := cfg.Bindings
	if bindings == nil {
		bindings = DefaultBindings
	}
	for queue, pattern := range bindings {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, errors.Wrapf(err, "failed to declare %s", queue)
		}
		if err := ch.QueueBind(queue, pattern, exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, errors.Wrapf(err, "failed to bind %s to %s", queue, pattern)
		}
	}

	logrus.WithField("exchange", exchange).Info("RabbitMQ client connected")

	return &Client{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
	}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close channel"))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close connection"))
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish sends a persistent JSON message to the exchange under routingKey.
func (c *Client) Publish(routingKey string, body []byte) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		c.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return errors.Wrapf(err, "failed to publish %s", routingKey)
	}
	logrus.WithField("routing_key", routingKey).Debug("published event")
	return nil
}

// Consume starts a goroutine delivering messages of queue to handler.
// A handler error nacks the message without requeueing it.
func (c *Client) Consume(queue string, handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		queue,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to register consumer on %s", queue)
	}

	logrus.WithField("queue", queue).Info("waiting for messages")

	go func() {
		for msg := range msgs {
			if err := handler(msg); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"queue": queue,
					"tag":   msg.DeliveryTag,
				}).Warn("failed to process message")
				if nackErr := msg.Nack(false, false); nackErr != nil {
					logrus.WithError(nackErr).Warn("failed to nack message")
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				logrus.WithError(ackErr).Warn("failed to ack message")
			}
		}
		logrus.WithField("queue", queue).Info("consumer stopped")
	}()

	return nil
}

// Healthy reports an error once the broker connection is gone.
func (c *Client) Healthy() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("RabbitMQ connection is closed")
	}
	return nil
}
