package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds the action and resource derived from an HTTP request.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseRoute returns an action and resource for an HTTP method and path
// (e.g. DELETE /api/case/module/3 -> delete, case). The resource is the first
// path segment after /api; /admin paths map to resource "admin". Anything
// unrecognizable becomes "unknown" rather than an error, since audit entries
// must never block a request.
func ParseRoute(method, path string) ActionResource {
	var action string
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		action = "get"
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	default:
		action = strings.ToLower(method)
	}

	resource := "unknown"
	trimmed := strings.Trim(path, "/")
	segs := strings.Split(trimmed, "/")
	switch {
	case len(segs) > 0 && segs[0] == "admin":
		resource = "admin"
	case len(segs) > 1 && segs[0] == "api":
		if segs[1] == "admin" {
			resource = "admin"
		} else {
			resource = segs[1]
		}
	}
	return ActionResource{Action: action, Resource: resource}
}
