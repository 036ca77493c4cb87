package parser

import "fmt"

// Node is one topic in a roadmap. Reference nodes point at an existing topic
// by name and never have children.
type Node struct {
	Name        string  `json:"name"`
	Children    []*Node `json:"children,omitempty"`
	IsReference bool    `json:"isReference,omitempty"`
}

// Tree is the result of a Parse call.
type Tree struct {
	Root        *Node        `json:"root"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// DiagnosticKind classifies a tolerated input problem.
type DiagnosticKind string

const (
	DiagMissingMarker       DiagnosticKind = "missing_marker"
	DiagEmptyName           DiagnosticKind = "empty_name"
	DiagOrphan              DiagnosticKind = "orphan"
	DiagUnresolvedReference DiagnosticKind = "unresolved_reference"
)

// Diagnostic describes a line that was parsed in degraded form or skipped.
// Line is 1-based within the trimmed input.
type Diagnostic struct {
	Line  int            `json:"line"`
	Level int            `json:"level,omitempty"`
	Kind  DiagnosticKind `json:"kind"`
	Text  string         `json:"text,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Text == "" {
		return fmt.Sprintf("line %d: %s", d.Line, d.Kind)
	}
	return fmt.Sprintf("line %d: %s %q", d.Line, d.Kind, d.Text)
}

// Stats summarizes the shape of a tree.
type Stats struct {
	Nodes      int `json:"nodes"`
	References int `json:"references"`
	Depth      int `json:"depth"`
	Orphans    int `json:"orphans"`
}

// Walk visits the attached nodes in pre-order, the root at depth 0. Returning
// false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	if t == nil || t.Root == nil {
		return
	}
	walk(t.Root, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// Stats counts the attached nodes below the root and the orphans reported
// during parsing.
func (t *Tree) Stats() Stats {
	var s Stats
	t.Walk(func(n *Node, depth int) bool {
		if depth == 0 {
			return true
		}
		if n.IsReference {
			s.References++
			return false
		}
		s.Nodes++
		if depth > s.Depth {
			s.Depth = depth
		}
		return true
	})
	if t != nil {
		for _, d := range t.Diagnostics {
			if d.Kind == DiagOrphan {
				s.Orphans++
			}
		}
	}
	return s
}
