package parser

import (
	"strings"
)

// Format renders the attached part of t back into bar-delimited text. Orphans
// are not part of the tree and are not written.
func Format(t *Tree) string {
	if t == nil || t.Root == nil {
		return ""
	}
	var b strings.Builder
	t.Walk(func(n *Node, depth int) bool {
		if depth == 0 {
			return true
		}
		if n.IsReference {
			return false
		}
		b.WriteString(strings.Repeat(string(Marker), depth))
		b.WriteByte(' ')
		b.WriteString(n.Name)

		var refs []string
		for _, c := range n.Children {
			if c.IsReference {
				refs = append(refs, c.Name)
			}
		}
		if len(refs) > 0 {
			b.WriteString(" " + Separator + " ")
			b.WriteString(strings.Join(refs, ", "))
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

// Lines returns the number of non-blank lines in raw.
func Lines(raw string) int {
	n := 0
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
