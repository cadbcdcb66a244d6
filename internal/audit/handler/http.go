package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	auditrepo "testhub/backend/internal/audit/repository"
	"testhub/backend/internal/server/middleware"
	"testhub/backend/internal/server/respond"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// AuditHandler serves the audit log listing for project admins.
type AuditHandler struct {
	repo auditrepo.Repository
	log  *zap.Logger
}

func NewAuditHandler(repo auditrepo.Repository, log *zap.Logger) *AuditHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditHandler{repo: repo, log: log}
}

// Register mounts the audit routes on the /api subrouter.
func (h *AuditHandler) Register(r *mux.Router) {
	r.HandleFunc("/admin/audit", h.list).Methods(http.MethodGet)
}

type auditEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *AuditHandler) list(w http.ResponseWriter, r *http.Request) {
	projectID, _ := middleware.GetProjectID(r.Context())
	limit := queryInt32(r, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt32(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	logs, err := h.repo.ListByProject(r.Context(), projectID, limit, offset)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	entries := make([]auditEntry, 0, len(logs))
	for _, a := range logs {
		entries = append(entries, auditEntry{
			ID:        a.ID,
			UserID:    a.UserID,
			Action:    a.Action,
			Resource:  a.Resource,
			IP:        a.IP,
			Metadata:  a.Metadata,
			CreatedAt: a.CreatedAt,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"logs": entries})
}

func queryInt32(r *http.Request, name string, fallback int32) int32 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(v)
}
