// Package handler exposes the auth surface over HTTP: register, login,
// refresh, and logout.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"testhub/backend/internal/apperr"
	"testhub/backend/internal/identity/service"
	"testhub/backend/internal/server/middleware"
	"testhub/backend/internal/server/respond"
)

// AuthHandler translates HTTP requests into auth service calls and maps the
// service sentinels to the error envelope.
type AuthHandler struct {
	svc *service.AuthService
	log *zap.Logger
}

// NewAuthHandler returns an AuthHandler backed by svc.
func NewAuthHandler(svc *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Register mounts the auth routes on the /api subrouter.
func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", h.refresh).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.log, apperr.BadRequest("invalid request body"))
		return
	}
	res, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respond.Error(w, h.log, mapAuthErr(err))
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{"user_id": res.UserID})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.log, apperr.BadRequest("invalid request body"))
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, h.log, mapAuthErr(err))
		return
	}
	respond.JSON(w, http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		UserID:       res.UserID,
	})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.log, apperr.BadRequest("invalid request body"))
		return
	}
	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respond.Error(w, h.log, mapAuthErr(err))
		return
	}
	respond.JSON(w, http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		UserID:       res.UserID,
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	sessionID, _ := middleware.GetSessionID(r.Context())
	if userID == "" || sessionID == "" {
		respond.Error(w, h.log, apperr.Unauthorized("missing or invalid authorization"))
		return
	}
	err := h.svc.Logout(r.Context(), userID, sessionID)
	if err != nil && !errors.Is(err, service.ErrAlreadyLoggedOut) {
		respond.Error(w, h.log, mapAuthErr(err))
		return
	}
	// Logging out twice is benign.
	respond.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// mapAuthErr converts auth service sentinels to taxonomy errors; anything
// unrecognized is an internal failure.
func mapAuthErr(err error) error {
	switch {
	case errors.Is(err, service.ErrUserExists):
		return apperr.ResourceExists("user")
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid credentials")
	case errors.Is(err, service.ErrUserDisabled):
		return apperr.Forbidden("user account is disabled")
	case errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, service.ErrRefreshTokenReuse):
		return apperr.Unauthorized(err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		return apperr.NotFound("user")
	default:
		var e *apperr.Error
		if errors.As(err, &e) {
			return e
		}
		return apperr.Internal(err)
	}
}
