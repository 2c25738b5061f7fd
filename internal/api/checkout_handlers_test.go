package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/artisan-shop/internal/catalog"
	"github.com/example/artisan-shop/internal/checkout"
	"github.com/example/artisan-shop/internal/order"
	"github.com/example/artisan-shop/internal/payment"
	"github.com/example/artisan-shop/internal/shipping"
)

const testWebhookSecret = "whsec_test_secret"

// fakeOrderStore backs the reconciler in endpoint tests. Stock lives at
// the store level so rollback behavior is observable.
type fakeOrderStore struct {
	stock   map[string]int
	prices  map[string]decimal.Decimal
	orders  map[string]*order.Order // by session id
	findErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		stock:  map[string]int{"p1": 10},
		prices: map[string]decimal.Decimal{"p1": decimal.RequireFromString("25.00")},
		orders: make(map[string]*order.Order),
	}
}

func (s *fakeOrderStore) FindBySessionID(_ context.Context, sessionID string) (*order.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if o, ok := s.orders[sessionID]; ok {
		return o, nil
	}
	return nil, order.ErrOrderNotFound
}

func (s *fakeOrderStore) WithinTx(_ context.Context, fn func(tx order.Tx) error) error {
	tx := &fakeTx{store: s, pending: make(map[string]int)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, delta := range tx.pending {
		s.stock[id] -= delta
	}
	for _, o := range tx.created {
		s.orders[o.ProviderSessionID] = o
	}
	return nil
}

type fakeTx struct {
	store   *fakeOrderStore
	created []*order.Order
	pending map[string]int
	seq     int
}

func (t *fakeTx) CreateOrder(_ context.Context, o *order.Order) error {
	if _, exists := t.store.orders[o.ProviderSessionID]; exists {
		return order.ErrDuplicateSession
	}
	o.ID = fmt.Sprintf("order-%d", len(t.store.orders)+1)
	t.created = append(t.created, o)
	return nil
}

func (t *fakeTx) CreateLineItem(_ context.Context, orderID, productID string, quantity int) (*order.LineItem, error) {
	t.seq++
	return &order.LineItem{
		ID: fmt.Sprintf("li-%d", t.seq), OrderID: orderID,
		ProductID: productID, Quantity: quantity, UnitPrice: decimal.Zero,
	}, nil
}

func (t *fakeTx) UpdateLineItemPrice(_ context.Context, _ string, _ decimal.Decimal) error {
	return nil
}

func (t *fakeTx) DecrementStockIfSufficient(_ context.Context, productID string, quantity int) (bool, error) {
	if t.store.stock[productID]-t.pending[productID] < quantity {
		return false, nil
	}
	t.pending[productID] += quantity
	return true, nil
}

func (t *fakeTx) FindProduct(_ context.Context, productID string) (*catalog.Product, error) {
	price, ok := t.store.prices[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &catalog.Product{ID: productID, Name: "Bol en grès", Price: price}, nil
}

func (t *fakeTx) FindShippingMethod(_ context.Context, _ string) (*shipping.Method, error) {
	return nil, shipping.ErrMethodNotFound
}

func newWebhookHandler(store *fakeOrderStore) *CheckoutHandlers {
	reconciler := checkout.NewReconciler(checkout.ReconcilerConfig{
		Store:         store,
		WebhookSecret: testWebhookSecret,
	})
	return NewCheckoutHandlers(nil, reconciler)
}

func signedDelivery(t *testing.T, sessionID string, metadata map[string]string) (*bytes.Reader, string) {
	t.Helper()
	object, err := json.Marshal(payment.CheckoutSession{
		ID:          sessionID,
		AmountTotal: 2500,
		Metadata:    metadata,
	})
	require.NoError(t, err)
	body, err := json.Marshal(payment.Event{
		ID:   "evt_" + sessionID,
		Type: payment.EventCheckoutSessionCompleted,
		Data: payment.EventData{Object: object},
	})
	require.NoError(t, err)
	return bytes.NewReader(body), payment.Sign(body, testWebhookSecret, time.Now())
}

func postWebhook(handler *CheckoutHandlers, body *bytes.Reader, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", body)
	if signature != "" {
		req.Header.Set(payment.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)
	return rec
}

func TestHandleWebhook_Success(t *testing.T) {
	store := newFakeOrderStore()
	handler := newWebhookHandler(store)
	body, sig := signedDelivery(t, "cs_1", map[string]string{
		payment.MetadataItems: `[{"productId":"p1","quantity":1}]`,
	})

	rec := postWebhook(handler, body, sig)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, 9, store.stock["p1"])
	assert.Len(t, store.orders, 1)
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	store := newFakeOrderStore()
	handler := newWebhookHandler(store)
	body, _ := signedDelivery(t, "cs_1", map[string]string{
		payment.MetadataItems: `[{"productId":"p1","quantity":1}]`,
	})

	rec := postWebhook(handler, body, "t=123,v1=deadbeef")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, store.orders, 0)
}

func TestHandleWebhook_MissingSignature(t *testing.T) {
	store := newFakeOrderStore()
	handler := newWebhookHandler(store)
	body, _ := signedDelivery(t, "cs_1", map[string]string{
		payment.MetadataItems: `[{"productId":"p1","quantity":1}]`,
	})

	rec := postWebhook(handler, body, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWebhook_MalformedMetadataAcked(t *testing.T) {
	store := newFakeOrderStore()
	handler := newWebhookHandler(store)
	body, sig := signedDelivery(t, "cs_1", nil)

	rec := postWebhook(handler, body, sig)

	// Acknowledged so the provider stops redelivering an unprocessable
	// event.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Len(t, store.orders, 0)
}

func TestHandleWebhook_InsufficientStockAcked(t *testing.T) {
	store := newFakeOrderStore()
	handler := newWebhookHandler(store)
	body, sig := signedDelivery(t, "cs_1", map[string]string{
		payment.MetadataItems: `[{"productId":"p1","quantity":99}]`,
	})

	rec := postWebhook(handler, body, sig)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.orders, 0)
	assert.Equal(t, 10, store.stock["p1"])
}

func TestHandleWebhook_TransientFailure(t *testing.T) {
	store := newFakeOrderStore()
	store.findErr = fmt.Errorf("connection refused")
	handler := newWebhookHandler(store)
	body, sig := signedDelivery(t, "cs_1", map[string]string{
		payment.MetadataItems: `[{"productId":"p1","quantity":1}]`,
	})

	rec := postWebhook(handler, body, sig)

	// Non-2xx invites the provider to redeliver once the store recovers.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleWebhook_DuplicateAcked(t *testing.T) {
	store := newFakeOrderStore()
	handler := newWebhookHandler(store)
	meta := map[string]string{payment.MetadataItems: `[{"productId":"p1","quantity":1}]`}

	body1, sig1 := signedDelivery(t, "cs_1", meta)
	rec := postWebhook(handler, body1, sig1)
	require.Equal(t, http.StatusOK, rec.Code)

	body2, sig2 := signedDelivery(t, "cs_1", meta)
	rec = postWebhook(handler, body2, sig2)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.orders, 1)
	assert.Equal(t, 9, store.stock["p1"])
}

func TestHandleWebhook_UnhandledKindAcked(t *testing.T) {
	store := newFakeOrderStore()
	handler := newWebhookHandler(store)
	body, err := json.Marshal(payment.Event{ID: "evt_1", Type: payment.EventPaymentSucceeded})
	require.NoError(t, err)
	sig := payment.Sign(body, testWebhookSecret, time.Now())

	rec := postWebhook(handler, bytes.NewReader(body), sig)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.orders, 0)
}
