package parser

import (
	"strconv"
	"strings"
)

type entry struct {
	level int
	name  string
}

// key is the composite lookup key. The root is keyed by its topic alone.
func (e entry) key() string {
	if e.level == 0 {
		return e.name
	}
	return strconv.Itoa(e.level) + ":" + e.name
}

// registry tracks what a single Parse call has seen so far. open[i] holds the
// most recent node at level i and is truncated whenever a shallower or equal
// level appears; entries keeps every registration in source order for
// reference lookups.
type registry struct {
	open    []*Node
	entries []entry
}

func newRegistry(root *Node, topic string) *registry {
	return &registry{
		open:    []*Node{root},
		entries: []entry{{level: 0, name: topic}},
	}
}

// parent returns the open node one level above level, if any.
func (r *registry) parent(level int) (*Node, bool) {
	i := level - 1
	if i < 0 || i >= len(r.open) || r.open[i] == nil {
		return nil, false
	}
	return r.open[i], true
}

// push makes n the open node at level and records its entry. Deeper levels
// are closed; skipped levels are left empty so their children orphan.
func (r *registry) push(level int, n *Node) {
	if level < len(r.open) {
		r.open = r.open[:level]
	}
	for len(r.open) < level {
		r.open = append(r.open, nil)
	}
	r.open = append(r.open, n)
	r.entries = append(r.entries, entry{level: level, name: n.Name})
}

// resolve reports whether any registered entry matches target.
func (r *registry) resolve(target string, mode MatchMode) bool {
	for _, e := range r.entries {
		switch mode {
		case MatchExact:
			if e.name == target {
				return true
			}
		default:
			if strings.HasSuffix(e.key(), target) {
				return true
			}
		}
	}
	return false
}
