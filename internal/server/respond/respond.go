// Package respond renders success payloads and the structured error envelope.
// Success responses are the payload itself; errors are always
// {code, message, details} with details listing per-field problems.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"testhub/backend/internal/apperr"
)

// Detail describes one field-level problem inside an error envelope.
type Detail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ErrorBody is the wire form of every error response.
type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
}

// JSON writes payload with the given status. A nil payload writes only the
// status line.
func JSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error renders err as the structured envelope. Internal errors are logged
// with their cause and rendered with a generic message so driver text never
// reaches the client.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindInternal && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	body := ErrorBody{
		Code:    e.Kind.Code(),
		Message: e.Message,
	}
	for _, d := range e.Details {
		body.Details = append(body.Details, Detail{Field: d.Field, Reason: d.Reason})
	}
	JSON(w, e.Kind.HTTPStatus(), body)
}
