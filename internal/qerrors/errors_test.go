package qerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{Security, 2},
		{CancelledErr, 130},
		{Config, 1},
		{Internal, 1},
	}
	for _, c := range cases {
		if got := c.kind.ExitCode(); got != c.want {
			t.Errorf("%s.ExitCode() = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestWrapDoesNotDoubleWrap(t *testing.T) {
	inner := New(Query, "op1", fmt.Errorf("boom"))
	wrapped := Wrap(Connection, "op2", inner)
	if wrapped != error(inner) {
		t.Fatalf("Wrap() = %v, want the original *Error unchanged", wrapped)
	}
	if KindOf(wrapped) != Query {
		t.Errorf("KindOf(wrapped) = %s, want %s (should keep original kind)", KindOf(wrapped), Query)
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if err := Wrap(Internal, "op", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestIsMatchesSentinelByKind(t *testing.T) {
	err := New(Security, "sqlguard.Check", fmt.Errorf("not a select"))
	if !errors.Is(err, Sentinel(Security)) {
		t.Error("errors.Is(err, Sentinel(Security)) = false, want true")
	}
	if errors.Is(err, Sentinel(Config)) {
		t.Error("errors.Is(err, Sentinel(Config)) = true, want false")
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	if got := KindOf(fmt.Errorf("plain error")); got != Internal {
		t.Errorf("KindOf(plain error) = %s, want %s", got, Internal)
	}
}
