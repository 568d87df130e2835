// Package menu models the permission-filtered navigation tree served by the backend.
package menu

import "fmt"

// PermissionLogic states how RequiredPermissions combine.
type PermissionLogic string

const (
	PermissionAny PermissionLogic = "ANY"
	PermissionAll PermissionLogic = "ALL"
)

// Node is one entry of the navigation tree. Children are ordered.
type Node struct {
	ID                  int64           `json:"id"`
	MenuKey             string          `json:"menuKey,omitempty"`
	Label               string          `json:"label"`
	RoutePath           string          `json:"routePath"`
	Type                string          `json:"type,omitempty"`
	Icon                *string         `json:"icon,omitempty"`
	SortOrder           *int            `json:"sortOrder,omitempty"`
	IsActive            *bool           `json:"isActive,omitempty"`
	RequiredPermissions []string        `json:"requiredPermissions,omitempty"`
	PermissionLogic     PermissionLogic `json:"permissionLogic,omitempty"`
	Children            []Node          `json:"children,omitempty"`
}

// HasChildren reports whether the node has at least one child.
func (n Node) HasChildren() bool { return len(n.Children) > 0 }

// Href returns the link target, "#" for nodes without a route.
func (n Node) Href() string {
	if n.RoutePath == "" {
		return "#"
	}
	return n.RoutePath
}

// Visit is called once per node in depth-first pre-order. Returning false skips the node's children.
type Visit func(n Node, depth int) bool

// Walk traverses nodes depth-first in their given order.
func Walk(nodes []Node, fn Visit) {
	walk(nodes, 0, fn)
}

func walk(nodes []Node, depth int, fn Visit) {
	for _, n := range nodes {
		if fn(n, depth) && n.HasChildren() {
			walk(n.Children, depth+1, fn)
		}
	}
}

// Entry is a flattened node with its depth and active flag, ready for rendering.
type Entry struct {
	Node
	Depth       int
	Active      bool
	HasChildren bool
}

// Flatten returns the tree in render order, marking entries whose route equals activePath.
func Flatten(nodes []Node, activePath string) []Entry {
	var out []Entry
	Walk(nodes, func(n Node, depth int) bool {
		out = append(out, Entry{
			Node:        n,
			Depth:       depth,
			Active:      activePath != "" && n.RoutePath == activePath,
			HasChildren: n.HasChildren(),
		})
		return true
	})
	return out
}

// Count returns the number of nodes in the tree.
func Count(nodes []Node) int {
	total := 0
	Walk(nodes, func(Node, int) bool {
		total++
		return true
	})
	return total
}

// Validate rejects trees where a node ID repeats on its own ancestor path.
// Decoded JSON cannot form a true cycle, but a server bug that echoes a parent
// as its own descendant would otherwise render without end.
func Validate(nodes []Node) error {
	return validate(nodes, map[int64]bool{})
}

func validate(nodes []Node, ancestors map[int64]bool) error {
	for _, n := range nodes {
		if ancestors[n.ID] {
			return fmt.Errorf("menu node %d repeats on its own path", n.ID)
		}
		if !n.HasChildren() {
			continue
		}
		ancestors[n.ID] = true
		if err := validate(n.Children, ancestors); err != nil {
			return err
		}
		delete(ancestors, n.ID)
	}
	return nil
}
