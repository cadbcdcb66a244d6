// Package handler exposes the user administration surface: disable, enable,
// and delete accounts. All routes sit behind the admin module in the
// permission rule table.
package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	identityservice "testhub/backend/internal/identity/service"
	"testhub/backend/internal/server/respond"
)

type UserHandler struct {
	svc *identityservice.AuthService
	log *zap.Logger
}

// NewUserHandler returns a UserHandler backed by the auth service, which owns
// the session-destruction side effects of account changes.
func NewUserHandler(svc *identityservice.AuthService, log *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// Register mounts the user admin routes on the /api subrouter.
func (h *UserHandler) Register(r *mux.Router) {
	r.HandleFunc("/user/{id}/disable", h.disable).Methods(http.MethodPost)
	r.HandleFunc("/user/{id}/enable", h.enable).Methods(http.MethodPost)
	r.HandleFunc("/user/{id}", h.remove).Methods(http.MethodDelete)
}

func (h *UserHandler) disable(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DisableUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		respond.Error(w, h.log, mapUserErr(err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

func (h *UserHandler) enable(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.EnableUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		respond.Error(w, h.log, mapUserErr(err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

func (h *UserHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		respond.Error(w, h.log, mapUserErr(err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
