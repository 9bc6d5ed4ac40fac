package notify

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pedidolocal/storefront/internal/domain/order"
)

const (
	// Exchange is the topic exchange status events are published to.
	Exchange = "orders.status"
	// routingPrefix builds per-status routing keys, e.g.
	// order.status.confirmed, so consumers can bind selectively.
	routingPrefix = "order.status."
)

// AMQPNotifier publishes status events to a RabbitMQ topic exchange.
// A fresh channel per publish keeps the connection usable after
// channel-level errors.
type AMQPNotifier struct {
	conn *amqp.Connection
	now  func() time.Time
}

// NewAMQPNotifier dials the broker and declares the exchange.
func NewAMQPNotifier(url string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}

	return &AMQPNotifier{conn: conn, now: time.Now}, nil
}

// OrderStatusChanged implements order.Notifier.
func (n *AMQPNotifier) OrderStatusChanged(ctx context.Context, code string, status order.Status) error {
	ch, err := n.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	body := encodeEvent(Event{OrderCode: code, Status: status, At: n.now()})

	err = ch.PublishWithContext(ctx, Exchange, routingPrefix+string(status), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		return errors.Wrap(err, "publish status event")
	}
	return nil
}

// Close releases the broker connection.
func (n *AMQPNotifier) Close() error {
	return n.conn.Close()
}
