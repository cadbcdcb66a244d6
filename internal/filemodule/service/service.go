package service

import (
	"context"
	"fmt"
	"strings"

	"testhub/backend/internal/apperr"
	"testhub/backend/internal/filemodule"
	"testhub/backend/internal/filemodule/domain"
)

// Repo is the minimal module repository needed by the tree service.
type Repo interface {
	ListByProjectAndKind(ctx context.Context, projectID int64, kind domain.Kind) ([]domain.FileModule, error)
	GetByID(ctx context.Context, id int64) (*domain.FileModule, error)
	CountArtifacts(ctx context.Context, moduleID int64, kind domain.Kind) (int, error)
	Create(ctx context.Context, m *domain.FileModule) error
	Update(ctx context.Context, id int64, name string, parentID *int64) (int64, error)
	SoftDelete(ctx context.Context, id int64) error
}

// Service builds module trees and manages the module lifecycle for a project.
type Service struct {
	repo Repo
}

// NewService returns a Service backed by repo.
func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// GetTree returns the module forest for a project and kind. Each node carries
// the number of artifacts attached directly to that module.
func (s *Service) GetTree(ctx context.Context, projectID int64, kind domain.Kind) ([]*domain.TreeNode, error) {
	if !kind.Valid() {
		return nil, apperr.BadRequest(fmt.Sprintf("unknown module kind %q", kind))
	}
	modules, err := s.repo.ListByProjectAndKind(ctx, projectID, kind)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list modules", err)
	}
	roots, err := filemodule.BuildTree(modules, func(moduleID int64) (int, error) {
		return s.repo.CountArtifacts(ctx, moduleID, kind)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build module tree", err)
	}
	return roots, nil
}

// Create adds a module under parentID (nil for a root) at the end of its
// sibling list. Sibling names must be distinct.
func (s *Service) Create(ctx context.Context, projectID int64, kind domain.Kind, name string, parentID *int64) (*domain.FileModule, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("module name must not be empty")
	}
	if !kind.Valid() {
		return nil, apperr.BadRequest(fmt.Sprintf("unknown module kind %q", kind))
	}
	if parentID != nil {
		parent, err := s.repo.GetByID(ctx, *parentID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "load parent module", err)
		}
		if parent == nil || parent.ProjectID != projectID || parent.Kind != kind {
			return nil, apperr.NotFound("parent module")
		}
	}
	if err := s.checkSiblingName(ctx, projectID, kind, parentID, name, 0); err != nil {
		return nil, err
	}
	m := &domain.FileModule{
		Name:      name,
		Kind:      kind,
		ParentID:  parentID,
		ProjectID: projectID,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create module", err)
	}
	return m, nil
}

// Update renames and/or reparents a module. Reparenting into the module's own
// subtree is rejected, as is a parent from another project or kind.
func (s *Service) Update(ctx context.Context, projectID, id int64, name string, parentID *int64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.BadRequest("module name must not be empty")
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "load module", err)
	}
	if m == nil || m.ProjectID != projectID {
		return apperr.NotFound("module")
	}
	if parentID != nil {
		if *parentID == id {
			return apperr.BadRequest("module cannot be its own parent")
		}
		parent, err := s.repo.GetByID(ctx, *parentID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "load parent module", err)
		}
		if parent == nil || parent.ProjectID != projectID || parent.Kind != m.Kind {
			return apperr.NotFound("parent module")
		}
		inSubtree, err := s.isDescendant(ctx, id, *parentID)
		if err != nil {
			return err
		}
		if inSubtree {
			return apperr.BadRequest("cannot move a module under its own descendant")
		}
	}
	if err := s.checkSiblingName(ctx, projectID, m.Kind, parentID, name, id); err != nil {
		return err
	}
	rows, err := s.repo.Update(ctx, id, name, parentID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "update module", err)
	}
	if rows == 0 {
		return apperr.NotModified("module unchanged")
	}
	return nil
}

// Delete soft-deletes a module. Its descendants keep their rows but leave the
// tree on the next read, since their ancestor chain is broken.
func (s *Service) Delete(ctx context.Context, projectID, id int64) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "load module", err)
	}
	if m == nil || m.ProjectID != projectID {
		return apperr.NotFound("module")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete module", err)
	}
	return nil
}

// checkSiblingName rejects a name already used by another child of the same
// parent. selfID excludes the module being renamed from the check.
func (s *Service) checkSiblingName(ctx context.Context, projectID int64, kind domain.Kind, parentID *int64, name string, selfID int64) error {
	siblings, err := s.repo.ListByProjectAndKind(ctx, projectID, kind)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "list modules", err)
	}
	for _, sib := range siblings {
		if sib.ID == selfID || !sameParent(sib.ParentID, parentID) {
			continue
		}
		if sib.Name == name {
			return apperr.ResourceExists(fmt.Sprintf("module %q", name))
		}
	}
	return nil
}

// isDescendant reports whether candidate sits in the subtree rooted at rootID,
// walking parent pointers upward from candidate.
func (s *Service) isDescendant(ctx context.Context, rootID, candidate int64) (bool, error) {
	cur := candidate
	for {
		m, err := s.repo.GetByID(ctx, cur)
		if err != nil {
			return false, apperr.Wrap(apperr.KindInternal, "walk module ancestors", err)
		}
		if m == nil || m.ParentID == nil {
			return false, nil
		}
		if *m.ParentID == rootID {
			return true, nil
		}
		cur = *m.ParentID
	}
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
