package descriptor

import (
	"context"
	"strings"
	"testing"

	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/pkg/logger"
)

type fakeCapability struct{ name string }

func newSet() *Set[fakeCapability] {
	s := NewSet[fakeCapability]()
	s.Register(Descriptor[fakeCapability]{
		Name: "postgres",
		CanHandle: func(target string) bool {
			return strings.HasPrefix(target, "postgres://")
		},
		New: func(ctx context.Context, target string, opts *options.Registry, log *logger.Logger) (fakeCapability, error) {
			return fakeCapability{name: "postgres"}, nil
		},
	})
	s.Register(Descriptor[fakeCapability]{
		Name: "mysql",
		CanHandle: func(target string) bool {
			return strings.Contains(target, "@tcp(")
		},
	})
	return s
}

func TestGetIsCaseInsensitive(t *testing.T) {
	s := newSet()
	d, err := s.Get("POSTGRES")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.Name != "postgres" {
		t.Errorf("Get().Name = %q, want %q", d.Name, "postgres")
	}
}

func TestGetUnknownNameReturnsErrNotFound(t *testing.T) {
	s := newSet()
	if _, err := s.Get("oracle"); err == nil {
		t.Fatal("Get() error = nil, want ErrNotFound")
	}
}

func TestDetectPicksMatchingDescriptor(t *testing.T) {
	s := newSet()
	d, err := s.Detect("user:pass@tcp(localhost:3306)/db")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if d.Name != "mysql" {
		t.Errorf("Detect() = %q, want %q", d.Name, "mysql")
	}
}

func TestDetectNoMatchReturnsErrNotFound(t *testing.T) {
	s := newSet()
	if _, err := s.Detect("sqlite:///tmp/db"); err == nil {
		t.Fatal("Detect() error = nil, want ErrNotFound")
	}
}

func TestListNamesPreservesRegistrationOrder(t *testing.T) {
	s := newSet()
	got := s.ListNames()
	want := []string{"postgres", "mysql"}
	if len(got) != len(want) {
		t.Fatalf("ListNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
