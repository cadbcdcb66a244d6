package domain

import "time"

// AuditLog represents one recorded security event. ProjectID 0 marks events
// with no project context, such as failed logins.
type AuditLog struct {
	ID        string
	ProjectID int64
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
