package middleware

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"testhub/backend/internal/apperr"
	"testhub/backend/internal/server/respond"
)

// ProjectHeader parses the required ProjectId header. It must be a positive
// integer or the request is rejected before any business logic runs. Paths in
// exemptPaths (the auth surface) skip the requirement.
func ProjectHeader(exemptPaths map[string]bool, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			raw := r.Header.Get("ProjectId")
			projectID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || projectID <= 0 {
				respond.Error(w, log, apperr.BadRequest("ProjectId header must be a positive integer").
					WithDetails(apperr.FieldError{Field: "ProjectId", Reason: "must be a positive integer"}))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithProjectID(r.Context(), projectID)))
		})
	}
}
