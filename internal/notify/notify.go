// Package notify delivers order status events to the outside world.
// The workflow only decides that an event fires; everything past the
// exchange is someone else's problem.
package notify

import (
	"context"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/pedidolocal/storefront/internal/domain/order"
)

// Event is emitted on every successful status write, order creation
// included.
type Event struct {
	OrderCode string
	Status    order.Status
	At        time.Time
}

// encodeEvent renders the event payload published to consumers.
func encodeEvent(ev Event) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_code", func(e *jx.Encoder) {
			e.Str(ev.OrderCode)
		})
		e.Field("status", func(e *jx.Encoder) {
			e.Str(string(ev.Status))
		})
		e.Field("at", func(e *jx.Encoder) {
			e.Str(ev.At.UTC().Format(time.RFC3339))
		})
	})
	return e.Bytes()
}

// LogNotifier is the fallback dispatcher used when no broker is
// configured: it just logs the event.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier returns a LogNotifier writing to lg.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg}
}

// OrderStatusChanged implements order.Notifier.
func (n *LogNotifier) OrderStatusChanged(_ context.Context, code string, status order.Status) error {
	n.lg.Info("order status changed",
		zap.String("order_code", code),
		zap.String("status", string(status)),
	)
	return nil
}
