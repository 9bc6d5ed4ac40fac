package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pedidolocal/storefront/internal/domain/order"
)

func TestEncodeEvent(t *testing.T) {
	at := time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)
	body := encodeEvent(Event{
		OrderCode: "PD-1A2B3C4D",
		Status:    order.StatusOutForDelivery,
		At:        at,
	})

	var decoded struct {
		OrderCode string `json:"order_code"`
		Status    string `json:"status"`
		At        string `json:"at"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "PD-1A2B3C4D", decoded.OrderCode)
	assert.Equal(t, "out_for_delivery", decoded.Status)
	assert.Equal(t, "2025-06-15T12:30:00Z", decoded.At)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(zaptest.NewLogger(t))
	err := n.OrderStatusChanged(context.Background(), "PD-AA", order.StatusConfirmed)
	assert.NoError(t, err)
}

func TestNotifierInterfaces(t *testing.T) {
	var _ order.Notifier = (*LogNotifier)(nil)
	var _ order.Notifier = (*AMQPNotifier)(nil)
}
