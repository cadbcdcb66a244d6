package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"testhub/backend/internal/apperr"
	"testhub/backend/internal/audit"
	"testhub/backend/internal/server/respond"
)

// PermissionChecker answers whether a user may perform method on uri within a
// project.
type PermissionChecker interface {
	Check(ctx context.Context, userID string, projectID int64, uri, method string) (bool, error)
}

// Permission authorizes every request against the role-permission tables.
// Paths in exemptPaths skip the check. A denial is recorded in the audit
// trail; a data-access failure during the check renders as a 500.
func Permission(checker PermissionChecker, auditor audit.EventLogger, exemptPaths map[string]bool, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			userID, _ := GetUserID(r.Context())
			projectID, _ := GetProjectID(r.Context())
			allowed, err := checker.Check(r.Context(), userID, projectID, r.URL.Path, r.Method)
			if err != nil {
				respond.Error(w, log, apperr.Wrap(apperr.KindInternal, "permission check", err))
				return
			}
			if !allowed {
				if auditor != nil {
					ar := audit.ParseRoute(r.Method, r.URL.Path)
					auditor.LogEvent(r.Context(), projectID, userID, audit.ActionPermissionDenied, ar.Resource, r.Method+" "+r.URL.Path)
				}
				respond.Error(w, log, apperr.Forbidden("permission denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
