package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/artisan-shop/internal/email"
	"github.com/example/artisan-shop/internal/order"
)

type sentEmail struct {
	to      string
	orderID string
	total   decimal.Decimal
	items   []email.OrderItem
}

type mockSender struct {
	sent []sentEmail
	err  error
}

func (m *mockSender) SendOrderConfirmation(to, orderID string, total decimal.Decimal, items []email.OrderItem) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to: to, orderID: orderID, total: total, items: items})
	return nil
}

func orderCreatedMessage(t *testing.T, created order.OrderCreated) []byte {
	t.Helper()
	value, err := json.Marshal(order.Event{
		Type:       order.EventOrderCreated,
		OrderID:    created.OrderID,
		OccurredAt: time.Now(),
		Data:       created,
	})
	require.NoError(t, err)
	return value
}

func TestHandler_SendsConfirmation(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender)

	value := orderCreatedMessage(t, order.OrderCreated{
		OrderID:       "order-1",
		CustomerEmail: "marie@example.com",
		Total:         "142.50",
		Items: []order.OrderCreatedItem{
			{ProductID: "p1", Name: "Bol en grès", Quantity: 3, UnitPrice: "25.00"},
		},
	})

	err := handler.HandleEvent(context.Background(), []byte("order-1"), value)

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, "marie@example.com", sent.to)
	assert.Equal(t, "order-1", sent.orderID)
	assert.Equal(t, "142.50", sent.total.StringFixed(2))
	require.Len(t, sent.items, 1)
	assert.Equal(t, "Bol en grès", sent.items[0].Name)
	assert.Equal(t, "25.00", sent.items[0].UnitPrice.StringFixed(2))
}

func TestHandler_SkipsOtherEventTypes(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender)

	value, err := json.Marshal(order.Event{Type: order.EventOrderStatusChanged, OrderID: "order-1"})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), []byte("order-1"), value))
	assert.Empty(t, sender.sent)
}

func TestHandler_SkipsMissingEmail(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender)

	value := orderCreatedMessage(t, order.OrderCreated{OrderID: "order-1", Total: "10.00"})

	require.NoError(t, handler.HandleEvent(context.Background(), []byte("order-1"), value))
	assert.Empty(t, sender.sent)
}

func TestHandler_BadPayload(t *testing.T) {
	handler := NewHandler(&mockSender{})

	err := handler.HandleEvent(context.Background(), nil, []byte("not json"))

	assert.Error(t, err)
}

func TestHandler_SenderFailurePropagates(t *testing.T) {
	sender := &mockSender{err: fmt.Errorf("smtp unavailable")}
	handler := NewHandler(sender)

	value := orderCreatedMessage(t, order.OrderCreated{
		OrderID:       "order-1",
		CustomerEmail: "marie@example.com",
		Total:         "10.00",
	})

	assert.Error(t, handler.HandleEvent(context.Background(), []byte("order-1"), value))
}
