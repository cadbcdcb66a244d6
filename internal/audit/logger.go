// Package audit records security-relevant events (logins, logouts, refreshes,
// permission denials, account changes) to the database. Recording is
// best-effort: a failed write is logged and never fails the caller's request.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"testhub/backend/internal/audit/domain"
	auditrepo "testhub/backend/internal/audit/repository"
)

// Actions recorded by the auth and permission paths.
const (
	ActionLoginSuccess     = "login_success"
	ActionLoginFailure     = "login_failure"
	ActionLogout           = "logout"
	ActionRefresh          = "refresh"
	ActionPermissionDenied = "permission_denied"
	ActionUserDisabled     = "user_disabled"
	ActionUserDeleted      = "user_deleted"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// EventLogger writes a single audit event with explicit action/resource.
// Used by the auth service and the permission middleware.
type EventLogger interface {
	LogEvent(ctx context.Context, projectID int64, userID, action, resource, metadata string)
}

// Logger implements EventLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         *zap.Logger
}

// NewLogger returns an EventLogger that persists to repo and uses ipExtractor
// for client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log}
}

// LogEvent writes one audit entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, projectID int64, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn("audit write failed",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.Error(err))
	}
}
