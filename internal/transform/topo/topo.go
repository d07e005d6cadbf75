// Package topo provides the dependency-ordered generation order shared by
// the Fake and Format transformers (spec.md §4.4/§4.5): build a graph of
// target-column -> referenced-columns edges, then produce a generation
// order via DFS with cycle detection.
package topo

import "fmt"

// CycleError is returned when the reference graph contains a cycle.
// Initialization must fail with this before any row is read.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	s := "dependency cycle: "
	for i, n := range e.Path {
		if i > 0 {
			s += " -> "
		}
		s += n
	}
	return s
}

// color marks DFS visitation state for cycle detection.
type color int

const (
	white color = iota // unvisited
	gray               // on the current DFS stack
	black              // fully processed
)

// Order computes a generation order over targets such that every column a
// target references (and that is itself a target) is ordered before it.
// edges maps a target column name to the target column names it
// references; non-target references need not appear as keys. Names are
// compared case-insensitively on the caller's assurance: edges must
// already use a single canonical case per column (callers are expected to
// canonicalize before calling Order).
func Order(targets []string, edges map[string][]string) ([]string, error) {
	colors := make(map[string]color, len(targets))
	order := make([]string, 0, len(targets))

	var visit func(node string, path []string) error
	visit = func(node string, path []string) error {
		switch colors[node] {
		case black:
			return nil
		case gray:
			return &CycleError{Path: append(append([]string(nil), path...), node)}
		}
		colors[node] = gray
		for _, dep := range edges[node] {
			if _, isTarget := colors[dep]; !isTarget {
				// dep is not itself a target column; it needs no
				// generation step of its own.
				continue
			}
			if err := visit(dep, append(path, node)); err != nil {
				return err
			}
		}
		colors[node] = black
		order = append(order, node)
		return nil
	}

	// Seed colors for all targets so edges can distinguish "references a
	// target" from "references an ordinary upstream column".
	for _, t := range targets {
		colors[t] = white
	}
	for _, t := range targets {
		if colors[t] == white {
			if err := visit(t, nil); err != nil {
				return nil, err
			}
		}
	}
	if len(order) != len(targets) {
		return nil, fmt.Errorf("topo: internal inconsistency: expected %d targets, ordered %d", len(targets), len(order))
	}
	return order, nil
}
