package schema

import "testing"

func TestNewRejectsDuplicateNamesCaseInsensitively(t *testing.T) {
	_, err := New([]ColumnInfo{
		{Name: "ID", Type: Int64},
		{Name: "id", Type: String},
	})
	if err == nil {
		t.Fatal("New() error = nil, want duplicate column error")
	}
	var dupErr *DuplicateColumnError
	if _, ok := err.(*DuplicateColumnError); !ok {
		t.Fatalf("New() error = %T, want %T", err, dupErr)
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	s, err := New([]ColumnInfo{{Name: "Name", Type: String}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	col, ok := s.Lookup("NAME")
	if !ok {
		t.Fatal("Lookup(NAME) ok = false, want true")
	}
	if col.Name != "Name" {
		t.Errorf("Lookup(NAME).Name = %q, want %q", col.Name, "Name")
	}
	if _, ok := s.Lookup("missing"); ok {
		t.Error("Lookup(missing) ok = true, want false")
	}
}

func TestWithoutVirtualElidesVirtualColumns(t *testing.T) {
	s, err := New([]ColumnInfo{
		{Name: "ID", Type: Int64},
		{Name: "SCRATCH", Type: String, Virtual: true},
		{Name: "NAME", Type: String},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out := s.WithoutVirtual()
	if out.Len() != 2 {
		t.Fatalf("WithoutVirtual().Len() = %d, want 2", out.Len())
	}
	if _, ok := out.Lookup("SCRATCH"); ok {
		t.Error("WithoutVirtual() still contains SCRATCH")
	}
	if out.Names()[0] != "ID" || out.Names()[1] != "NAME" {
		t.Errorf("WithoutVirtual().Names() = %v, want [ID NAME]", out.Names())
	}
}

func TestColumnsReturnsIndependentCopy(t *testing.T) {
	s, err := New([]ColumnInfo{{Name: "A", Type: Int32}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cols := s.Columns()
	cols[0].Name = "MUTATED"
	if s.At(0).Name != "A" {
		t.Errorf("Schema was mutated through Columns() copy, At(0).Name = %q", s.At(0).Name)
	}
}
