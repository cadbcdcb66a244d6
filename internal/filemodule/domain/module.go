// Package domain holds the file-module entities: folder-like grouping nodes
// that scope test artifacts (functional cases, test plans, UI elements) within
// a project, and the derived tree projection built from them.
package domain

import "time"

// Kind is the artifact category a module tree scopes.
type Kind string

const (
	KindCase    Kind = "case"
	KindBug     Kind = "bug"
	KindPlan    Kind = "plan"
	KindElement Kind = "element"
	KindUnknown Kind = "unknown"
)

// ParseKind maps a string to a Kind; anything unrecognized is KindUnknown.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindCase, KindBug, KindPlan, KindElement:
		return Kind(s)
	default:
		return KindUnknown
	}
}

// Valid reports whether k names a real module kind.
func (k Kind) Valid() bool {
	return k == KindCase || k == KindBug || k == KindPlan || k == KindElement
}

// FileModule is one node of a project's module forest. ParentID is nil for
// roots. The parent/child relation must form a forest; the tree builder
// tolerates (and drops) rows that violate this.
type FileModule struct {
	ID        int64
	Name      string
	Kind      Kind
	Position  int
	ParentID  *int64
	ProjectID int64
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TreeNode wraps a FileModule with its computed artifact count, materialized
// path and ordered children. It is a pure projection rebuilt on every read;
// nothing persists it.
type TreeNode struct {
	FileModule
	// Count is the number of non-deleted artifacts attached directly to this
	// module (not including descendants).
	Count int
	// Path is the slash-joined name chain from root to this node, e.g. "/API/Login".
	Path string
	// Children are ordered by Position.
	Children []*TreeNode
}
