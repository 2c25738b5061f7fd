package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/example/artisan-shop/internal/auth"
	"github.com/example/artisan-shop/internal/users"
)

// UserHandlers is the admin user management screen.
type UserHandlers struct {
	store *users.Store
}

func NewUserHandlers(store *users.Store) *UserHandlers {
	return &UserHandlers{store: store}
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.List(r.Context())
	if err != nil {
		log.Printf("[API] Error listing users: %v", err)
		respondJSONError(w, "failed to fetch users", http.StatusInternalServerError)
		return
	}
	resp := make([]UserResponse, len(all))
	for i, u := range all {
		resp[i] = toUserResponse(u)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		respondJSONError(w, "email is required", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	u := &users.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := h.store.Create(r.Context(), u); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			respondJSONError(w, "email already registered", http.StatusConflict)
			return
		}
		log.Printf("[API] Error creating user: %v", err)
		respondJSONError(w, "failed to create user", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/admin/users/")
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		log.Printf("[API] Error deleting user %s: %v", id, err)
		respondJSONError(w, "failed to delete user", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
