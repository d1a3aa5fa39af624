package auth

import (
	"encoding/json"
	"net/http"

	"github.com/feedpost/backend/internal/apperr"
	"github.com/feedpost/backend/internal/models"
)

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Signup creates a new user.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.New(apperr.InvalidInput, "Invalid request body."))
		return
	}

	user, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User created!",
		"userId":  user.ID.Hex(),
	})
}

// Login authenticates a user and returns a signed token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.New(apperr.InvalidInput, "Invalid request body."))
		return
	}

	token, userID, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token":  token,
		"userId": userID,
	})
}
