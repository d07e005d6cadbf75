// Package fake implements the FakeDataTransformer of spec.md §4.4:
// locale+seed-driven synthetic data generation with per-column template
// expansion and inter-column references, backed by the FakerRegistry in
// registry.go.
package fake

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/redbco/qdump/internal/descriptor"
	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/internal/qerrors"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
	"github.com/redbco/qdump/internal/transform"
	"github.com/redbco/qdump/internal/transform/topo"
	"github.com/redbco/qdump/pkg/logger"
)

const ProviderName = "fake"

// Options configures the FakeDataTransformer.
type Options struct {
	// Mappings is a list of "COLUMN:spec" entries (spec.md §4.4 grammar).
	Mappings []string
	// NullColumns lists columns whose output cell is always null,
	// regardless of any mapping.
	NullColumns []string
	// Locale selects the FakerRegistry's dataset table. Defaults to "en".
	Locale string
	// Seed, when non-nil, makes generation reproducible across runs for
	// the same (seed, locale, spec list, row index).
	Seed *int64
}

// mapping is one parsed "COLUMN:spec" entry.
type mapping struct {
	column    string // column name as written in this mapping entry
	raw       string // original spec text
	dataset   string // "" if literal
	method    string // "" if literal
	isLiteral bool
	refs      []string // {{OTHER}} column names referenced, upper-cased
}

// Transformer implements transform.DataTransformer.
type Transformer struct {
	log         *logger.Logger
	registry    *Registry
	mappings    map[string]*mapping // canonical upper column name -> mapping
	order       []string            // generation order, canonical upper names
	nullColumns map[string]bool     // canonical upper column name -> true
	faker       *gofakeit.Faker
	inputSchema schema.Schema
}

// New constructs a Transformer. Matches descriptor.Descriptor[transform.DataTransformer].New.
func New(ctx context.Context, _ string, opts *options.Registry, log *logger.Logger) (transform.DataTransformer, error) {
	o := options.MustGet[Options](opts, ProviderName)
	locale := o.Locale
	if locale == "" {
		locale = "en"
	}
	reg, err := NewRegistry(locale)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.Config, "fake.New", err)
	}

	mappings := make(map[string]*mapping, len(o.Mappings))
	var columnOrder []string
	for _, raw := range o.Mappings {
		m, err := parseMapping(raw)
		if err != nil {
			return nil, qerrors.Wrap(qerrors.Config, "fake.New.parseMapping", err)
		}
		key := strings.ToUpper(m.column)
		if _, exists := mappings[key]; !exists {
			columnOrder = append(columnOrder, key)
		}
		mappings[key] = m
	}

	nullColumns := make(map[string]bool, len(o.NullColumns))
	for _, c := range o.NullColumns {
		nullColumns[strings.ToUpper(c)] = true
	}

	var seed int64
	if o.Seed != nil {
		seed = *o.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	faker := gofakeit.NewFaker(rand.NewSource(seed), true)

	edges := make(map[string][]string, len(mappings))
	for key, m := range mappings {
		var deps []string
		for _, ref := range m.refs {
			if ref == key {
				// Self-reference: resolves to the pre-transform value,
				// not an ordering dependency.
				continue
			}
			deps = append(deps, ref)
		}
		edges[key] = deps
	}
	order, err := topo.Order(columnOrder, edges)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.Config, "fake.New.topo.Order", err)
	}

	return &Transformer{
		log:         log,
		registry:    reg,
		mappings:    mappings,
		order:       order,
		nullColumns: nullColumns,
		faker:       faker,
	}, nil
}

func (t *Transformer) Initialize(ctx context.Context, input schema.Schema) (schema.Schema, error) {
	t.inputSchema = input
	cols := input.Columns()
	for i, c := range cols {
		key := strings.ToUpper(c.Name)
		if _, mapped := t.mappings[key]; mapped {
			cols[i].Type = schema.String
		}
	}
	out, err := schema.New(cols)
	if err != nil {
		return schema.Schema{}, qerrors.Wrap(qerrors.SchemaKind, "fake.Initialize", err)
	}
	return out, nil
}

func (t *Transformer) Transform(r row.Row) (row.Row, error) {
	out := r.Clone()
	pre := r // pre-transform values, for self-reference resolution

	for _, key := range t.order {
		m := t.mappings[key]
		idx := t.inputSchema.IndexOf(m.column)
		if idx < 0 {
			continue // column named in a mapping but absent from the schema
		}

		var value string
		if m.isLiteral {
			value = t.expandTemplate(m.raw, out, pre, key, idx)
		} else {
			gen, datasetKnown := t.registry.Lookup(m.dataset, m.method)
			switch {
			case gen != nil:
				value = gen(t.faker)
			case datasetKnown:
				// Known dataset, unknown method: warn, keep original value.
				if t.log != nil {
					t.log.Warnf("fake: unknown method %q in dataset %q for column %s, keeping original value", m.method, m.dataset, m.column)
				}
				continue
			default:
				// Unknown dataset: treat the whole spec as literal text.
				value = t.expandTemplate(m.raw, out, pre, key, idx)
			}
		}
		out[idx] = value
	}

	for col := range t.nullColumns {
		if idx := t.inputSchema.IndexOf(col); idx >= 0 {
			out[idx] = row.Null
		}
	}

	return out, nil
}

// expandTemplate substitutes {{OTHER_COLUMN}} placeholders. selfKey/selfIdx
// identify the column currently being generated so a self-reference reads
// the pre-transform row rather than the (not yet fully generated) output
// row.
func (t *Transformer) expandTemplate(spec string, out, pre row.Row, selfKey string, selfIdx int) string {
	return templatePattern.ReplaceAllStringFunc(spec, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}")
		name = strings.TrimSpace(name)
		idx := t.inputSchema.IndexOf(name)
		if idx < 0 {
			return match // unresolved name stays literal, braces included
		}
		if strings.ToUpper(name) == selfKey && idx == selfIdx {
			return fmt.Sprint(cellOrEmpty(pre[idx]))
		}
		return fmt.Sprint(cellOrEmpty(out[idx]))
	})
}

func cellOrEmpty(v interface{}) interface{} {
	if row.IsNull(v) || v == nil {
		return ""
	}
	return v
}

// parseMapping parses one "COLUMN:spec" entry and extracts any
// {{OTHER_COLUMN}} references, independent of whether the spec resolves
// to a dataset.method or a literal — dataset resolution happens lazily in
// Transform against the configured Registry, since parseMapping has no
// registry access.
func parseMapping(raw string) (*mapping, error) {
	idx := strings.IndexByte(raw, ':')
	if idx < 0 {
		return nil, &MalformedMappingError{Raw: raw}
	}
	column := raw[:idx]
	spec := raw[idx+1:]
	if column == "" {
		return nil, &MalformedMappingError{Raw: raw}
	}

	dataset, method, isDatasetMethod := splitDatasetMethod(spec)

	m := &mapping{
		column:    column,
		raw:       spec,
		dataset:   dataset,
		method:    method,
		isLiteral: !isDatasetMethod,
		refs:      extractRefs(spec),
	}
	return m, nil
}

// splitDatasetMethod reports whether spec has the shape "dataset.method".
// Final resolution of whether "dataset" is actually registered happens
// against the Registry in Transform (an unknown dataset falls back to a
// literal spec, per spec.md §4.4).
func splitDatasetMethod(spec string) (dataset, method string, ok bool) {
	dot := strings.IndexByte(spec, '.')
	if dot < 0 {
		return "", "", false
	}
	return spec[:dot], spec[dot+1:], true
}

// templatePattern matches {{COLUMN_NAME}} placeholders inside a literal
// spec (spec.md §4.4, "Templates inside a spec").
var templatePattern = regexp.MustCompile(`\{\{\s*[A-Za-z0-9_]+\s*\}\}`)

// extractRefs returns the upper-cased column names referenced by {{...}}
// placeholders in spec, in first-seen order with duplicates removed.
func extractRefs(spec string) []string {
	matches := templatePattern.FindAllString(spec, -1)
	if matches == nil {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var refs []string
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(m, "{{"), "}}")
		name = strings.ToUpper(strings.TrimSpace(name))
		if !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	return refs
}

// MalformedMappingError is returned when a "COLUMN:spec" entry has no
// colon separator.
type MalformedMappingError struct{ Raw string }

func (e *MalformedMappingError) Error() string {
	return fmt.Sprintf("malformed fake mapping (want COLUMN:spec): %q", e.Raw)
}

func init() {
	transform.Registry.Register(descriptor.Descriptor[transform.DataTransformer]{
		Name:          ProviderName,
		OptionsPrefix: ProviderName,
		New:           New,
	})
}
