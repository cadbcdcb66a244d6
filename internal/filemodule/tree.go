// Package filemodule builds the in-memory module tree used by the test
// artifact views: a forest of folders per (project, kind) with per-node
// artifact counts and materialized paths.
package filemodule

import (
	"sort"

	"testhub/backend/internal/filemodule/domain"
)

// CountFunc returns the number of non-deleted artifacts attached directly to
// the given module. The builder never queries storage itself; the collaborator
// decides which artifact table backs the count for the kind being built.
type CountFunc func(moduleID int64) (int, error)

// BuildTree reconstructs the module forest from a flat row list.
//
// Every module is indexed by id, counted via countFn, and attached under its
// parent. Attaching removes the node from the index: a node belongs to exactly
// one parent, so even a corrupt duplicate parent pointer cannot attach it
// twice, and recursion is guaranteed to terminate. Modules whose parent id
// references a row that is absent (or already consumed) are orphans and are
// silently excluded from the result; this mirrors how every caller has always
// treated them and is asserted by tests rather than "fixed".
//
// Siblings are ordered by Position explicitly. Callers must not rely on the
// input row order.
//
// The child scan is O(n^2): each attachment walks the whole remaining index.
// Per-project module counts are small enough that this has never mattered; a
// one-pass grouping of children by parent id would make it O(n) with
// identical output if it ever does.
func BuildTree(modules []domain.FileModule, countFn CountFunc) ([]*domain.TreeNode, error) {
	working := make(map[int64]*domain.TreeNode, len(modules))
	order := make([]int64, 0, len(modules))
	for _, m := range modules {
		node := &domain.TreeNode{FileModule: m}
		if countFn != nil {
			n, err := countFn(m.ID)
			if err != nil {
				return nil, err
			}
			node.Count = n
		}
		working[m.ID] = node
		order = append(order, m.ID)
	}

	var roots []*domain.TreeNode
	for _, id := range order {
		node, ok := working[id]
		if !ok || node.ParentID != nil {
			continue
		}
		delete(working, id)
		attachChildren(node, working)
		roots = append(roots, node)
	}
	sortSiblings(roots)

	// Orphans: whatever is left in the index has no chain to a root. Dropped.

	for _, root := range roots {
		setPaths(root, "")
	}
	return roots, nil
}

func attachChildren(parent *domain.TreeNode, working map[int64]*domain.TreeNode) {
	var children []*domain.TreeNode
	for id, node := range working {
		if node.ParentID != nil && *node.ParentID == parent.ID {
			delete(working, id)
			children = append(children, node)
		}
	}
	sortSiblings(children)
	for _, child := range children {
		attachChildren(child, working)
	}
	parent.Children = children
}

func sortSiblings(nodes []*domain.TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Position != nodes[j].Position {
			return nodes[i].Position < nodes[j].Position
		}
		return nodes[i].ID < nodes[j].ID
	})
}

// setPaths runs top-down after the forest is assembled: root path is "/"+name,
// child path is parent path + "/" + name.
func setPaths(node *domain.TreeNode, parentPath string) {
	node.Path = parentPath + "/" + node.Name
	for _, child := range node.Children {
		setPaths(child, node.Path)
	}
}

// CountNodes returns the total number of nodes in the forest.
func CountNodes(roots []*domain.TreeNode) int {
	total := 0
	for _, r := range roots {
		total += 1 + CountNodes(r.Children)
	}
	return total
}
