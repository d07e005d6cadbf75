package fake

import (
	"context"
	"testing"

	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
)

func testSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.ColumnInfo{
		{Name: "ID", Type: schema.Int64},
		{Name: "FIRSTNAME", Type: schema.String},
		{Name: "LASTNAME", Type: schema.String},
		{Name: "FULLNAME", Type: schema.String},
		{Name: "EMAIL", Type: schema.String},
	})
	if err != nil {
		t.Fatalf("schema.New() error = %v", err)
	}
	return s
}

func newTransformer(t *testing.T, mappings, nullCols []string) *Transformer {
	t.Helper()
	opts := options.NewRegistry()
	seed := int64(42)
	options.Bind(opts, ProviderName, Options{
		Mappings:    mappings,
		NullColumns: nullCols,
		Locale:      "en",
		Seed:        &seed,
	})
	tr, err := New(context.Background(), "", opts, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tr.(*Transformer)
}

func TestTransformInvokesFakerMethod(t *testing.T) {
	tr := newTransformer(t, []string{"FIRSTNAME:name.firstname"}, nil)
	in := testSchema(t)
	if _, err := tr.Initialize(context.Background(), in); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	out, err := tr.Transform(row.Row{1, "Alice", "Smith", "Alice Smith", "alice@example.com"})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out[1] == "Alice" {
		t.Errorf("FIRSTNAME was not replaced by a generated value")
	}
}

func TestTransformLiteralSpecIsUsedVerbatim(t *testing.T) {
	tr := newTransformer(t, []string{"EMAIL:redacted@example.com"}, nil)
	in := testSchema(t)
	if _, err := tr.Initialize(context.Background(), in); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	out, err := tr.Transform(row.Row{1, "Alice", "Smith", "Alice Smith", "alice@example.com"})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out[4] != "redacted@example.com" {
		t.Errorf("EMAIL = %v, want literal text", out[4])
	}
}

func TestTransformTemplateReferencesGeneratedColumns(t *testing.T) {
	tr := newTransformer(t, []string{
		"FIRSTNAME:name.firstname",
		"LASTNAME:name.lastname",
		"FULLNAME:{{FIRSTNAME}} {{LASTNAME}}",
	}, nil)
	in := testSchema(t)
	if _, err := tr.Initialize(context.Background(), in); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	out, err := tr.Transform(row.Row{1, "Alice", "Smith", "Alice Smith", "alice@example.com"})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	first, _ := out[1].(string)
	last, _ := out[2].(string)
	full, _ := out[3].(string)
	if full != first+" "+last {
		t.Errorf("FULLNAME = %q, want %q", full, first+" "+last)
	}
}

func TestTransformNullColumnOverridesAnyMapping(t *testing.T) {
	tr := newTransformer(t, []string{"FIRSTNAME:name.firstname"}, []string{"FIRSTNAME"})
	in := testSchema(t)
	if _, err := tr.Initialize(context.Background(), in); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	out, err := tr.Transform(row.Row{1, "Alice", "Smith", "Alice Smith", "alice@example.com"})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if !row.IsNull(out[1]) {
		t.Errorf("FIRSTNAME = %v, want Null", out[1])
	}
}

func TestNewRejectsCyclicTemplateReferences(t *testing.T) {
	opts := options.NewRegistry()
	options.Bind(opts, ProviderName, Options{
		Mappings: []string{
			"FIRSTNAME:{{LASTNAME}}",
			"LASTNAME:{{FIRSTNAME}}",
		},
		Locale: "en",
	})
	if _, err := New(context.Background(), "", opts, nil); err == nil {
		t.Fatal("New() error = nil, want cycle error")
	}
}

func TestNewRejectsUnknownLocale(t *testing.T) {
	opts := options.NewRegistry()
	options.Bind(opts, ProviderName, Options{Locale: "xx"})
	if _, err := New(context.Background(), "", opts, nil); err == nil {
		t.Fatal("New() error = nil, want UnknownLocaleError")
	}
}

func TestInitializeRewritesMappedColumnsToString(t *testing.T) {
	tr := newTransformer(t, []string{"ID:lorem.word"}, nil)
	out, err := tr.Initialize(context.Background(), testSchema(t))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	col, ok := out.Lookup("ID")
	if !ok || col.Type != schema.String {
		t.Errorf("ID column type = %v, want string", col.Type)
	}
}
