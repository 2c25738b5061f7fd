package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateCheckoutSession_Success(t *testing.T) {
	var gotReq CreateSessionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(CheckoutSession{
			ID:          "cs_test_1",
			URL:         "https://pay.example.com/cs_test_1",
			AmountTotal: 14250,
			Currency:    "eur",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123")
	session, err := client.CreateCheckoutSession(context.Background(), CreateSessionRequest{
		Currency: "eur",
		LineItems: []SessionLineItem{
			{Name: "Bol en grès", UnitAmount: 2500, Quantity: 3},
		},
		SuccessURL: "https://shop.example.com/succes",
		CancelURL:  "https://shop.example.com/panier",
		Metadata:   map[string]string{"items": `[{"productId":"p1","quantity":3}]`},
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://pay.example.com/cs_test_1", session.URL)
	assert.Equal(t, int64(14250), session.AmountTotal)

	assert.Equal(t, "eur", gotReq.Currency)
	assert.Len(t, gotReq.LineItems, 1)
	assert.Equal(t, `[{"productId":"p1","quantity":3}]`, gotReq.Metadata["items"])
}

func TestClient_CreateCheckoutSession_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_bad")
	_, err := client.CreateCheckoutSession(context.Background(), CreateSessionRequest{Currency: "eur"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "invalid api key")
}

func TestClient_CreateCheckoutSession_BadResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123")
	_, err := client.CreateCheckoutSession(context.Background(), CreateSessionRequest{Currency: "eur"})

	assert.Error(t, err)
}
