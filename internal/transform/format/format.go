// Package format implements the FormatDataTransformer of spec.md §4.5:
// template-based column rewriting ("{NAME}"/"{NAME:format}") with the same
// topological dependency ordering as the fake transformer.
package format

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/redbco/qdump/internal/descriptor"
	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/internal/qerrors"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
	"github.com/redbco/qdump/internal/transform"
	"github.com/redbco/qdump/internal/transform/topo"
	"github.com/redbco/qdump/pkg/logger"
)

const ProviderName = "format"

// Options configures the FormatDataTransformer.
type Options struct {
	// Mappings is a list of "COLUMN:template" entries.
	Mappings []string
}

// placeholderPattern matches {NAME} or {NAME:format} inside a template.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)(:([^{}]*))?\}`)

type mapping struct {
	column   string
	template string
	refs     []string // upper-cased column names referenced, deduplicated
}

// Transformer implements transform.DataTransformer.
type Transformer struct {
	log         *logger.Logger
	mappings    map[string]*mapping // canonical upper column name -> mapping
	order       []string
	inputSchema schema.Schema
}

// New constructs a Transformer. Matches descriptor.Descriptor[transform.DataTransformer].New.
func New(ctx context.Context, _ string, opts *options.Registry, log *logger.Logger) (transform.DataTransformer, error) {
	o := options.MustGet[Options](opts, ProviderName)

	mappings := make(map[string]*mapping, len(o.Mappings))
	var columnOrder []string
	for _, raw := range o.Mappings {
		idx := strings.IndexByte(raw, ':')
		if idx < 0 {
			return nil, qerrors.New(qerrors.Config, "format.New.parseMapping", fmt.Errorf("malformed format mapping (want COLUMN:template): %q", raw))
		}
		column := raw[:idx]
		template := raw[idx+1:]
		if column == "" {
			return nil, qerrors.New(qerrors.Config, "format.New.parseMapping", fmt.Errorf("malformed format mapping (want COLUMN:template): %q", raw))
		}
		key := strings.ToUpper(column)
		if _, exists := mappings[key]; !exists {
			columnOrder = append(columnOrder, key)
		}
		mappings[key] = &mapping{column: column, template: template, refs: extractRefs(template)}
	}

	edges := make(map[string][]string, len(mappings))
	for key, m := range mappings {
		var deps []string
		for _, ref := range m.refs {
			if ref == key {
				continue // self-reference resolves to the pre-transform value
			}
			deps = append(deps, ref)
		}
		edges[key] = deps
	}
	order, err := topo.Order(columnOrder, edges)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.Config, "format.New.topo.Order", err)
	}

	return &Transformer{log: log, mappings: mappings, order: order}, nil
}

func (t *Transformer) Initialize(ctx context.Context, input schema.Schema) (schema.Schema, error) {
	t.inputSchema = input
	cols := input.Columns()
	for i, c := range cols {
		if _, mapped := t.mappings[strings.ToUpper(c.Name)]; mapped {
			cols[i].Type = schema.String
		}
	}
	out, err := schema.New(cols)
	if err != nil {
		return schema.Schema{}, qerrors.Wrap(qerrors.SchemaKind, "format.Initialize", err)
	}
	return out, nil
}

func (t *Transformer) Transform(r row.Row) (row.Row, error) {
	out := r.Clone()
	pre := r

	for _, key := range t.order {
		m := t.mappings[key]
		idx := t.inputSchema.IndexOf(m.column)
		if idx < 0 {
			continue
		}
		out[idx] = t.render(m.template, out, pre, key, idx)
	}
	return out, nil
}

// render expands a template's {NAME} / {NAME:format} placeholders against
// the current schema. selfKey/selfIdx identify the column being rendered
// so a self-reference reads the pre-transform row.
func (t *Transformer) render(template string, out, pre row.Row, selfKey string, selfIdx int) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		name := groups[1]
		hint := groups[3]

		idx := t.inputSchema.IndexOf(name)
		if idx < 0 {
			return match // unresolved name stays literal, braces included
		}

		var value interface{}
		if strings.ToUpper(name) == selfKey && idx == selfIdx {
			value = pre[idx]
		} else {
			value = out[idx]
		}
		if row.IsNull(value) {
			value = nil
		}

		if hint == "" {
			return stringify(value)
		}
		formatted, ok := applyHint(hint, value)
		if !ok {
			return stringify(value)
		}
		return formatted
	})
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// applyHint formats value per an implementation-neutral format hint: a
// yyyy-MM-dd-style pattern for time.Time values, or a 0.00-style pattern
// for numeric values. It reports false (on which the caller falls back to
// the unformatted value) when value's type doesn't match the hint's kind
// or the hint cannot be parsed.
func applyHint(hint string, value interface{}) (string, bool) {
	if value == nil {
		return "", false
	}
	if isDateHint(hint) {
		t, ok := value.(time.Time)
		if !ok {
			return "", false
		}
		return t.Format(dateLayoutFromHint(hint)), true
	}
	return applyNumericHint(hint, value)
}

// dateTokenReplacer lists the yyyy-MM-dd-style tokens understood, ordered
// longest-match-first so it does not split a longer token (e.g. "yyyy"
// before "yy").
var dateTokenReplacer = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
	"SSS", "000",
)

func isDateHint(hint string) bool {
	return strings.ContainsAny(hint, "yMdHms")
}

func dateLayoutFromHint(hint string) string {
	return dateTokenReplacer.Replace(hint)
}

var numberPrinter = message.NewPrinter(language.English)

// applyNumericHint formats value (any numeric Go type) per a 0.00-style
// hint: digits after '.' set the decimal places, a ',' requests
// thousands grouping.
func applyNumericHint(hint string, value interface{}) (string, bool) {
	f, ok := toFloat(value)
	if !ok {
		return "", false
	}
	if !strings.ContainsAny(hint, "0#") {
		return "", false
	}
	places := 0
	if dot := strings.IndexByte(hint, '.'); dot >= 0 {
		places = len(hint) - dot - 1
	}
	if strings.Contains(hint, ",") {
		return numberPrinter.Sprintf("%.*f", places, f), true
	}
	return strconv.FormatFloat(f, 'f', places, 64), true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// extractRefs returns the upper-cased column names referenced by
// {NAME}/{NAME:format} placeholders in template, first-seen order,
// deduplicated.
func extractRefs(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	if matches == nil {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var refs []string
	for _, g := range matches {
		name := strings.ToUpper(g[1])
		if !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	return refs
}

func init() {
	transform.Registry.Register(descriptor.Descriptor[transform.DataTransformer]{
		Name:          ProviderName,
		OptionsPrefix: ProviderName,
		New:           New,
	})
}
