// Package parser turns bar-delimited roadmap text into a tree of topics.
//
// Each entry sits on its own line. A run of leading '|' characters gives the
// nesting level and an optional "->" introduces comma-separated references
// to previously seen entries:
//
//	| Topic A
//	|| Subtopic A1
//	|| Subtopic A2 -> Subtopic A1
//
// Parsing is best-effort. Malformed lines degrade into diagnostics instead of
// errors, so Parse always returns a usable tree.
package parser

import (
	"strings"
)

const (
	// Marker is the nesting marker repeated at the start of every entry.
	Marker = '|'
	// Separator splits an entry name from its reference targets.
	Separator = "->"
)

// MatchMode controls how reference targets are resolved against earlier entries.
type MatchMode int

const (
	// MatchSuffix accepts any entry whose "<level>:<name>" key ends with the target.
	MatchSuffix MatchMode = iota
	// MatchExact accepts only entries whose name equals the target.
	MatchExact
)

// String returns the config spelling of the mode.
func (m MatchMode) String() string {
	if m == MatchExact {
		return "exact"
	}
	return "suffix"
}

// ParseMatchMode maps "suffix" or "exact" to a MatchMode. Unknown values fall
// back to MatchSuffix and report false.
func ParseMatchMode(s string) (MatchMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "suffix":
		return MatchSuffix, true
	case "exact":
		return MatchExact, true
	}
	return MatchSuffix, false
}

// Option configures a single Parse call.
type Option func(*options)

type options struct {
	match MatchMode
	sink  func(Diagnostic)
}

// WithMatchMode sets how reference targets are resolved.
func WithMatchMode(m MatchMode) Option {
	return func(o *options) {
		o.match = m
	}
}

// WithDiagnosticSink registers fn to observe every diagnostic as it is raised.
func WithDiagnosticSink(fn func(Diagnostic)) Option {
	return func(o *options) {
		o.sink = fn
	}
}

// Parse builds a tree rooted at topic from raw roadmap text.
func Parse(raw, topic string, opts ...Option) *Tree {
	o := options{match: MatchSuffix}
	for _, opt := range opts {
		opt(&o)
	}

	root := &Node{Name: topic}
	tree := &Tree{Root: root}
	reg := newRegistry(root, topic)

	report := func(d Diagnostic) {
		tree.Diagnostics = append(tree.Diagnostics, d)
		if o.sink != nil {
			o.sink(d)
		}
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return tree
	}

	for i, line := range strings.Split(trimmed, "\n") {
		lineNo := i + 1
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		level, rest := splitMarkers(line)
		if level == 0 {
			report(Diagnostic{Line: lineNo, Kind: DiagMissingMarker, Text: strings.TrimSpace(line)})
			continue
		}

		name, connections := splitEntry(rest)
		node := &Node{Name: name}
		if name == "" {
			report(Diagnostic{Line: lineNo, Level: level, Kind: DiagEmptyName})
		}

		if parent, ok := reg.parent(level); ok {
			parent.Children = append(parent.Children, node)
		} else {
			report(Diagnostic{Line: lineNo, Level: level, Kind: DiagOrphan, Text: name})
		}
		reg.push(level, node)

		if connections == "" {
			continue
		}
		for _, target := range strings.Split(connections, ",") {
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
			if !reg.resolve(target, o.match) {
				report(Diagnostic{Line: lineNo, Level: level, Kind: DiagUnresolvedReference, Text: target})
				continue
			}
			node.Children = append(node.Children, &Node{Name: target, IsReference: true})
		}
	}

	return tree
}

// splitMarkers counts the leading marker run, ignoring indentation before it,
// and returns the level with the remaining text.
func splitMarkers(line string) (int, string) {
	line = strings.TrimLeft(line, " \t")
	level := 0
	for level < len(line) && line[level] == Marker {
		level++
	}
	return level, line[level:]
}

// splitEntry separates the entry name from its connection list on the first
// separator.
func splitEntry(content string) (name, connections string) {
	content = strings.TrimSpace(content)
	name, connections, _ = strings.Cut(content, Separator)
	return strings.TrimSpace(name), strings.TrimSpace(connections)
}
