package topo

import (
	"errors"
	"testing"
)

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestOrderRespectsDependencies(t *testing.T) {
	targets := []string{"FULLNAME", "FIRSTNAME", "LASTNAME"}
	edges := map[string][]string{
		"FULLNAME": {"FIRSTNAME", "LASTNAME"},
	}
	order, err := Order(targets, edges)
	if err != nil {
		t.Fatalf("Order() error = %v", err)
	}
	if indexOf(order, "FIRSTNAME") >= indexOf(order, "FULLNAME") {
		t.Errorf("FIRSTNAME must be ordered before FULLNAME, got %v", order)
	}
	if indexOf(order, "LASTNAME") >= indexOf(order, "FULLNAME") {
		t.Errorf("LASTNAME must be ordered before FULLNAME, got %v", order)
	}
}

func TestOrderDetectsCycle(t *testing.T) {
	targets := []string{"A", "B"}
	edges := map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}
	_, err := Order(targets, edges)
	if err == nil {
		t.Fatal("Order() error = nil, want CycleError")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Order() error = %T, want *CycleError", err)
	}
}

func TestOrderAllowsSelfReferenceWhenOmittedFromEdges(t *testing.T) {
	// Callers must not add a self-edge for a self-reference (it resolves
	// to the pre-transform value rather than requiring ordering).
	targets := []string{"A"}
	edges := map[string][]string{}
	order, err := Order(targets, edges)
	if err != nil {
		t.Fatalf("Order() error = %v", err)
	}
	if len(order) != 1 || order[0] != "A" {
		t.Errorf("Order() = %v, want [A]", order)
	}
}

func TestOrderIgnoresNonTargetReferences(t *testing.T) {
	targets := []string{"A"}
	edges := map[string][]string{
		"A": {"SOME_UPSTREAM_COLUMN"},
	}
	order, err := Order(targets, edges)
	if err != nil {
		t.Fatalf("Order() error = %v", err)
	}
	if len(order) != 1 || order[0] != "A" {
		t.Errorf("Order() = %v, want [A]", order)
	}
}
