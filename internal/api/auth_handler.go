package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/carboncoin/carboncoin-api/internal/api/shared"
	"github.com/carboncoin/carboncoin-api/internal/service"
)

// AuthHandler serves registration, login and token refresh.
type AuthHandler struct {
	users    *service.UserService
	validate *validator.Validate
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users *service.UserService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{users: users, validate: validate}
}

// Register creates a trader account and logs it in, returning the user with
// a fresh token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if _, err := h.users.Register(r.Context(), req.Username, req.Password); err != nil {
		status := MapErrorToStatusCode(err)
		shared.RespondWithErrorAndLog(w, r, status,
			GetSafeErrorMessage(err, "Failed to register user"), err)
		return
	}

	result, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to log in new user", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

// Login authenticates a user and returns a token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		status := MapErrorToStatusCode(err)
		opts := []shared.ResponseOption{}
		if status == http.StatusUnauthorized {
			opts = append(opts, shared.WithElevatedLogLevel())
		}
		shared.RespondWithErrorAndLog(w, r, status,
			GetSafeErrorMessage(err, "Failed to log in"), err, opts...)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

// Refresh exchanges a valid refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to refresh token"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

// Logout acknowledges a logout. Tokens are stateless, so the client simply
// discards its pair.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Logged out"})
}
