// Package handler exposes module-tree CRUD over HTTP. Every route is scoped
// by the ProjectId header and the {kind} path segment.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"testhub/backend/internal/apperr"
	"testhub/backend/internal/filemodule/domain"
	"testhub/backend/internal/filemodule/service"
	"testhub/backend/internal/server/middleware"
	"testhub/backend/internal/server/respond"
)

type ModuleHandler struct {
	svc *service.Service
	log *zap.Logger
}

// NewModuleHandler returns a ModuleHandler backed by svc.
func NewModuleHandler(svc *service.Service, log *zap.Logger) *ModuleHandler {
	return &ModuleHandler{svc: svc, log: log}
}

// Register mounts the module routes on the /api subrouter. The kind segment is constrained to
// the known artifact kinds so the permission rule table and the handler agree
// on the URI shape.
func (h *ModuleHandler) Register(r *mux.Router) {
	kinds := "{kind:case|bug|plan|element}"
	r.HandleFunc("/"+kinds+"/module/tree", h.tree).Methods(http.MethodGet)
	r.HandleFunc("/"+kinds+"/module", h.create).Methods(http.MethodPost)
	r.HandleFunc("/"+kinds+"/module/{id:[0-9]+}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/"+kinds+"/module/{id:[0-9]+}", h.remove).Methods(http.MethodDelete)
}

type moduleNode struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Position int           `json:"position"`
	ParentID *int64        `json:"parent_id"`
	Count    int           `json:"count"`
	Path     string        `json:"path"`
	Children []*moduleNode `json:"children"`
}

type moduleRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

type moduleResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Position int    `json:"position"`
	ParentID *int64 `json:"parent_id"`
}

func (h *ModuleHandler) tree(w http.ResponseWriter, r *http.Request) {
	projectID, _ := middleware.GetProjectID(r.Context())
	kind := domain.ParseKind(mux.Vars(r)["kind"])
	roots, err := h.svc.GetTree(r.Context(), projectID, kind)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, toNodes(roots))
}

func (h *ModuleHandler) create(w http.ResponseWriter, r *http.Request) {
	projectID, _ := middleware.GetProjectID(r.Context())
	kind := domain.ParseKind(mux.Vars(r)["kind"])
	var req moduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.log, apperr.BadRequest("invalid request body"))
		return
	}
	m, err := h.svc.Create(r.Context(), projectID, kind, req.Name, req.ParentID)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, moduleResponse{
		ID:       m.ID,
		Name:     m.Name,
		Kind:     string(m.Kind),
		Position: m.Position,
		ParentID: m.ParentID,
	})
}

func (h *ModuleHandler) update(w http.ResponseWriter, r *http.Request) {
	projectID, _ := middleware.GetProjectID(r.Context())
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var req moduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.log, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.svc.Update(r.Context(), projectID, id, req.Name, req.ParentID); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *ModuleHandler) remove(w http.ResponseWriter, r *http.Request) {
	projectID, _ := middleware.GetProjectID(r.Context())
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err := h.svc.Delete(r.Context(), projectID, id); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func toNodes(roots []*domain.TreeNode) []*moduleNode {
	out := make([]*moduleNode, 0, len(roots))
	for _, n := range roots {
		out = append(out, &moduleNode{
			ID:       n.ID,
			Name:     n.Name,
			Position: n.Position,
			ParentID: n.ParentID,
			Count:    n.Count,
			Path:     n.Path,
			Children: toNodes(n.Children),
		})
	}
	return out
}
