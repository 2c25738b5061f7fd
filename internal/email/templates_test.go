package email

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBuildOrderConfirmationBody(t *testing.T) {
	items := []OrderItem{
		{ProductID: "p1", Name: "Bol en grès", Quantity: 3, UnitPrice: decimal.RequireFromString("25.00")},
		{ProductID: "p2", Name: "Vase émaillé", Quantity: 1, UnitPrice: decimal.RequireFromString("40.00")},
	}

	body := BuildOrderConfirmationBody("order-abc-123", decimal.RequireFromString("142.50"), items)

	assert.Contains(t, body, "order-abc-123")
	assert.Contains(t, body, "Bol en grès")
	assert.Contains(t, body, "Vase émaillé")
	assert.Contains(t, body, "25.00")
	// Line total, quantity times unit price.
	assert.Contains(t, body, "75.00")
	assert.Contains(t, body, "142.50")
	assert.Contains(t, body, "Merci pour votre commande")
}

func TestBuildOrderConfirmationBody_FallsBackToProductID(t *testing.T) {
	items := []OrderItem{
		{ProductID: "p1", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
	}

	body := BuildOrderConfirmationBody("order-1", decimal.RequireFromString("10.00"), items)

	assert.Contains(t, body, "p1")
}
