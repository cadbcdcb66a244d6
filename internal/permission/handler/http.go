// Package handler exposes role and permission administration. All routes
// resolve to the admin module in the rule table.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"testhub/backend/internal/apperr"
	"testhub/backend/internal/permission/domain"
	"testhub/backend/internal/permission/repository"
	"testhub/backend/internal/server/middleware"
	"testhub/backend/internal/server/respond"
)

type RoleHandler struct {
	repo repository.Repository
	log  *zap.Logger
}

// NewRoleHandler returns a RoleHandler backed by repo.
func NewRoleHandler(repo repository.Repository, log *zap.Logger) *RoleHandler {
	return &RoleHandler{repo: repo, log: log}
}

// Register mounts the role/permission admin routes on the /api subrouter.
func (h *RoleHandler) Register(r *mux.Router) {
	r.HandleFunc("/role", h.createRole).Methods(http.MethodPost)
	r.HandleFunc("/role/{id:[0-9]+}", h.deleteRole).Methods(http.MethodDelete)
	r.HandleFunc("/role/{id:[0-9]+}/assign", h.assignRole).Methods(http.MethodPost)
	r.HandleFunc("/permission", h.grant).Methods(http.MethodPost)
}

type createRoleRequest struct {
	Name string `json:"name"`
}

type grantRequest struct {
	RoleID int64  `json:"role_id"`
	Module string `json:"module"`
	Scope  string `json:"scope"`
}

type assignRequest struct {
	UserID string `json:"user_id"`
}

func (h *RoleHandler) createRole(w http.ResponseWriter, r *http.Request) {
	projectID, _ := middleware.GetProjectID(r.Context())
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respond.Error(w, h.log, apperr.BadRequest("role name is required"))
		return
	}
	role := &domain.Role{Name: req.Name, ProjectID: projectID}
	if err := h.repo.CreateRole(r.Context(), role); err != nil {
		respond.Error(w, h.log, apperr.Wrap(apperr.KindInternal, "create role", err))
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]int64{"id": role.ID})
}

func (h *RoleHandler) deleteRole(w http.ResponseWriter, r *http.Request) {
	projectID, _ := middleware.GetProjectID(r.Context())
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	role, err := h.repo.GetRole(r.Context(), id)
	if err != nil {
		respond.Error(w, h.log, apperr.Wrap(apperr.KindInternal, "load role", err))
		return
	}
	if role == nil || role.ProjectID != projectID {
		respond.Error(w, h.log, apperr.NotFound("role"))
		return
	}
	if err := h.repo.DeleteRole(r.Context(), id); err != nil {
		respond.Error(w, h.log, apperr.Wrap(apperr.KindInternal, "delete role", err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *RoleHandler) assignRole(w http.ResponseWriter, r *http.Request) {
	projectID, _ := middleware.GetProjectID(r.Context())
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respond.Error(w, h.log, apperr.BadRequest("user_id is required"))
		return
	}
	role, err := h.repo.GetRole(r.Context(), id)
	if err != nil {
		respond.Error(w, h.log, apperr.Wrap(apperr.KindInternal, "load role", err))
		return
	}
	if role == nil || role.ProjectID != projectID {
		respond.Error(w, h.log, apperr.NotFound("role"))
		return
	}
	rel := &domain.UserRoleRelation{UserID: req.UserID, RoleID: id, ProjectID: projectID}
	if err := h.repo.AssignRole(r.Context(), rel); err != nil {
		respond.Error(w, h.log, apperr.Wrap(apperr.KindInternal, "assign role", err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (h *RoleHandler) grant(w http.ResponseWriter, r *http.Request) {
	projectID, _ := middleware.GetProjectID(r.Context())
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.log, apperr.BadRequest("invalid request body"))
		return
	}
	if req.Scope != domain.ScopeRead && req.Scope != domain.ScopeWrite {
		respond.Error(w, h.log, apperr.BadRequest("scope must be read or write").
			WithDetails(apperr.FieldError{Field: "scope", Reason: "must be read or write"}))
		return
	}
	role, err := h.repo.GetRole(r.Context(), req.RoleID)
	if err != nil {
		respond.Error(w, h.log, apperr.Wrap(apperr.KindInternal, "load role", err))
		return
	}
	if role == nil || role.ProjectID != projectID {
		respond.Error(w, h.log, apperr.NotFound("role"))
		return
	}
	p := &domain.Permission{RoleID: req.RoleID, Module: req.Module, Scope: req.Scope}
	if err := h.repo.GrantPermission(r.Context(), p); err != nil {
		respond.Error(w, h.log, apperr.Wrap(apperr.KindInternal, "grant permission", err))
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]int64{"id": p.ID})
}
