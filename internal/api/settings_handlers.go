package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/example/artisan-shop/internal/settings"
)

// SettingsHandlers exposes the back-office key-value site settings.
type SettingsHandlers struct {
	store *settings.Store
}

func NewSettingsHandlers(store *settings.Store) *SettingsHandlers {
	return &SettingsHandlers{store: store}
}

func (h *SettingsHandlers) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.All(r.Context())
	if err != nil {
		log.Printf("[API] Error loading settings: %v", err)
		respondJSONError(w, "failed to fetch settings", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, all)
}

func (h *SettingsHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req) == 0 {
		respondJSONError(w, "no settings provided", http.StatusBadRequest)
		return
	}
	for key, value := range req {
		if key == "" {
			respondJSONError(w, "setting key cannot be empty", http.StatusBadRequest)
			return
		}
		if err := h.store.Set(r.Context(), key, value); err != nil {
			log.Printf("[API] Error saving setting %s: %v", key, err)
			respondJSONError(w, "failed to save settings", http.StatusInternalServerError)
			return
		}
	}
	all, err := h.store.All(r.Context())
	if err != nil {
		log.Printf("[API] Error loading settings: %v", err)
		respondJSONError(w, "failed to fetch settings", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, all)
}
