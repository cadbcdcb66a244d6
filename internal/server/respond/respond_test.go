package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"testhub/backend/internal/apperr"
)

func TestJSON_WritesPayloadAndContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"id": "42"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["id"] != "42" {
		t.Errorf("body id = %q, want 42", body["id"])
	}
}

func TestJSON_NilPayloadWritesStatusOnly(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusNoContent, nil)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestError_RendersEnvelopeWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apperr.BadRequest("invalid ProjectId header").
		WithDetails(apperr.FieldError{Field: "ProjectId", Reason: "must be a positive integer"})
	Error(rec, nil, err)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "bad_request" {
		t.Errorf("code = %q, want bad_request", body.Code)
	}
	if body.Message != "invalid ProjectId header" {
		t.Errorf("message = %q", body.Message)
	}
	if len(body.Details) != 1 || body.Details[0].Field != "ProjectId" {
		t.Errorf("details = %+v, want one ProjectId entry", body.Details)
	}
}

func TestError_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, nil, errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "internal" {
		t.Errorf("code = %q, want internal", body.Code)
	}
	for _, fragment := range []string{"pq:", "users_email_key"} {
		if strings.Contains(body.Message, fragment) {
			t.Errorf("message %q leaks driver text %q", body.Message, fragment)
		}
	}
}

