package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/example/artisan-shop/internal/api/middleware"
	"github.com/example/artisan-shop/internal/auth"
	"github.com/example/artisan-shop/internal/users"
)

// AuthHandlers handles back-office authentication.
type AuthHandlers struct {
	users      *users.Store
	jwtService *auth.JWTService
}

func NewAuthHandlers(userStore *users.Store, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{users: userStore, jwtService: jwtService}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *users.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Login checks credentials and sets the session cookie.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, users.ErrUserNotFound) || (err == nil && !auth.CheckPassword(req.Password, u.PasswordHash)) {
		// Same response either way; no account enumeration.
		respondJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		log.Printf("[API] Error during login for %s: %v", req.Email, err)
		respondJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(u.ID, u.Email, u.Role)
	if err != nil {
		log.Printf("[API] Error generating token: %v", err)
		respondJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, toUserResponse(u))
}

// Logout clears the session cookie.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the authenticated user.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	u, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(u))
}
