package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/example/artisan-shop/internal/shipping"
)

// ShippingHandlers serves the public shipping-method list and the admin
// CRUD.
type ShippingHandlers struct {
	store *shipping.Store
}

func NewShippingHandlers(store *shipping.Store) *ShippingHandlers {
	return &ShippingHandlers{store: store}
}

type ShippingMethodRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

func (h *ShippingHandlers) List(w http.ResponseWriter, r *http.Request) {
	methods, err := h.store.List(r.Context())
	if err != nil {
		log.Printf("[API] Error listing shipping methods: %v", err)
		respondJSONError(w, "failed to fetch shipping methods", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, methods)
}

func (h *ShippingHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req ShippingMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		respondJSONError(w, "invalid price", http.StatusBadRequest)
		return
	}

	m := &shipping.Method{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
	}
	if err := h.store.Create(r.Context(), m); err != nil {
		if errors.Is(err, shipping.ErrInvalidName) || errors.Is(err, shipping.ErrInvalidPrice) {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[API] Error creating shipping method: %v", err)
		respondJSONError(w, "failed to create shipping method", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (h *ShippingHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/admin/shipping-methods/")
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, shipping.ErrMethodNotFound) {
			respondJSONError(w, "shipping method not found", http.StatusNotFound)
			return
		}
		log.Printf("[API] Error deleting shipping method %s: %v", id, err)
		respondJSONError(w, "failed to delete shipping method", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "shipping method deleted"})
}
