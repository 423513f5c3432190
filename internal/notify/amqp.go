package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"uturn/internal/logger"
)

// RoutingPrefix starts every routing key; the WhatsApp sender binds
// "notify.customer.*".
const RoutingPrefix = "notify."

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes messages as persistent JSON to a topic exchange.
type AMQPNotifier struct {
	mu       sync.Mutex
	ch       Channel
	exchange string
	timeout  time.Duration
	closer   func() error
}

// NewAMQPNotifier publishes on an existing channel. The exchange must already
// be declared.
func NewAMQPNotifier(ch Channel, exchange string, timeout time.Duration) *AMQPNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AMQPNotifier{ch: ch, exchange: exchange, timeout: timeout}
}

// DialAMQP connects to the broker, declares the topic exchange and returns a
// notifier that owns the connection.
func DialAMQP(url, exchange string, timeout time.Duration, log logger.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	log.Info("rabbitmq connected", logger.String("exchange", exchange))

	n := NewAMQPNotifier(ch, exchange, timeout)
	n.closer = func() error {
		return errors.Join(ch.Close(), conn.Close())
	}
	return n, nil
}

// RoutingKey is "notify.<audience>.<template>".
func RoutingKey(msg Message) string {
	return RoutingPrefix + string(msg.Audience) + "." + string(msg.Template)
}

func (n *AMQPNotifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.ch.PublishWithContext(ctx, n.exchange, RoutingKey(msg), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", msg.Template, err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}
