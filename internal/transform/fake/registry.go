package fake

import (
	"strconv"

	"github.com/brianvoe/gofakeit/v6"
)

// method generates a string value for one dataset method, given a seeded
// Faker instance.
type method func(f *gofakeit.Faker) string

// datasetMethods is the immutable (dataset -> method -> generator) table
// populated at init, grounded on the teacher's table-driven
// TransformationRegistry/GetBuiltInTransformations shape
// (_examples/redbco-redb-open/services/transformation/internal/engine/registry.go,
// builtin.go), backed by github.com/brianvoe/gofakeit/v6.
var datasetMethods = map[string]map[string]method{
	"name": {
		"firstname": func(f *gofakeit.Faker) string { return f.FirstName() },
		"lastname":  func(f *gofakeit.Faker) string { return f.LastName() },
		"fullname":  func(f *gofakeit.Faker) string { return f.Name() },
	},
	"address": {
		"street":  func(f *gofakeit.Faker) string { return f.Street() },
		"city":    func(f *gofakeit.Faker) string { return f.City() },
		"state":   func(f *gofakeit.Faker) string { return f.State() },
		"zip":     func(f *gofakeit.Faker) string { return f.Zip() },
		"country": func(f *gofakeit.Faker) string { return f.Country() },
	},
	"internet": {
		"email":    func(f *gofakeit.Faker) string { return f.Email() },
		"username": func(f *gofakeit.Faker) string { return f.Username() },
		"ipv4":     func(f *gofakeit.Faker) string { return f.IPv4Address() },
		"domain":   func(f *gofakeit.Faker) string { return f.DomainName() },
		"url":      func(f *gofakeit.Faker) string { return f.URL() },
	},
	"commerce": {
		"product":    func(f *gofakeit.Faker) string { return f.ProductName() },
		"price":      func(f *gofakeit.Faker) string { return strconv.FormatFloat(f.Price(1, 1000), 'f', 2, 64) },
		"department": func(f *gofakeit.Faker) string { return f.ProductCategory() },
	},
	"date": {
		"past":   func(f *gofakeit.Faker) string { return f.PastDate().Format("2006-01-02") },
		"future": func(f *gofakeit.Faker) string { return f.FutureDate().Format("2006-01-02") },
		"recent": func(f *gofakeit.Faker) string { return f.Date().Format("2006-01-02") },
	},
	"company": {
		"name":   func(f *gofakeit.Faker) string { return f.Company() },
		"suffix": func(f *gofakeit.Faker) string { return f.CompanySuffix() },
		"bs":     func(f *gofakeit.Faker) string { return f.BS() },
	},
	"phone": {
		"number":    func(f *gofakeit.Faker) string { return f.Phone() },
		"formatted": func(f *gofakeit.Faker) string { return f.PhoneFormatted() },
	},
	"lorem": {
		"word":      func(f *gofakeit.Faker) string { return f.Word() },
		"sentence":  func(f *gofakeit.Faker) string { return f.Sentence(8) },
		"paragraph": func(f *gofakeit.Faker) string { return f.Paragraph(1, 3, 8, " ") },
	},
}

// supportedLocales lists the locales FakerRegistry will accept.
// gofakeit ships a single English-language data pool, so "en" is the only
// entry today; the map shape (locale -> dataset -> method -> generator)
// is kept so additional locales are purely additive later, rather than a
// later locale addition requiring a reshape.
var supportedLocales = map[string]map[string]map[string]method{
	"en": datasetMethods,
}

// Registry exposes the (dataset, method) table for a locale, and is what
// --list-fakers walks.
type Registry struct {
	locale string
}

// NewRegistry returns a Registry for locale, or an error if the locale is
// not registered.
func NewRegistry(locale string) (*Registry, error) {
	if _, ok := supportedLocales[locale]; !ok {
		return nil, &UnknownLocaleError{Locale: locale}
	}
	return &Registry{locale: locale}, nil
}

// UnknownLocaleError is returned by NewRegistry for an unregistered locale.
type UnknownLocaleError struct{ Locale string }

func (e *UnknownLocaleError) Error() string { return "unknown faker locale: " + e.Locale }

// Lookup returns the generator for dataset.method, and whether the
// dataset itself is known (distinguishing "unknown dataset" from "known
// dataset, unknown method" per spec.md §4.4).
func (r *Registry) Lookup(dataset, methodName string) (gen method, datasetKnown bool) {
	methods, ok := supportedLocales[r.locale][dataset]
	if !ok {
		return nil, false
	}
	gen, ok = methods[methodName]
	return gen, true
}

// Datasets lists all registered (dataset, method) pairs for --list-fakers.
func (r *Registry) Datasets() map[string][]string {
	out := make(map[string][]string)
	for ds, methods := range supportedLocales[r.locale] {
		names := make([]string, 0, len(methods))
		for m := range methods {
			names = append(names, m)
		}
		out[ds] = names
	}
	return out
}
