// Package render turns parsed roadmaps into terminal and JSON output.
package render

import (
	"encoding/json"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/starford/roadmapper/internal/parser"
)

const (
	referencePrefix = "↪ "
	emptyName       = "∅"
)

var (
	rootStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	itemStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	referenceStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
	branchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).MarginRight(1)
)

// Tree renders t as an indented terminal tree.
func Tree(t *parser.Tree) string {
	if t == nil || t.Root == nil {
		return ""
	}
	out := tree.Root(rootStyle.Render(label(t.Root))).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(branchStyle)
	for _, c := range t.Root.Children {
		out.Child(child(c))
	}
	return out.String()
}

func child(n *parser.Node) any {
	if n.IsReference {
		return referenceStyle.Render(referencePrefix + label(n))
	}
	if len(n.Children) == 0 {
		return itemStyle.Render(label(n))
	}
	sub := tree.Root(itemStyle.Render(label(n))).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(branchStyle)
	for _, c := range n.Children {
		sub.Child(child(c))
	}
	return sub
}

func label(n *parser.Node) string {
	if n.Name == "" {
		return emptyName
	}
	return n.Name
}

// JSON writes v as indented JSON followed by a newline.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
