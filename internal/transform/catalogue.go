package transform

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/tabula/internal/dataset"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Catalogue operation names.
const (
	FilterRows      = "filter_rows"
	RenameColumn    = "rename_column"
	UppercaseColumn = "uppercase_column"
	TitlecaseColumn = "titlecase_column"
	TrimWhitespace  = "trim_whitespace"
)

// Operations returns every catalogue operation, in registration order.
func Operations() []Operation {
	return []Operation{
		{
			Name:        FilterRows,
			Description: "Keep rows where column equals value (string comparison)",
			Params:      []ParamSpec{{Name: "column", Kind: ParamString}, {Name: "value", Kind: ParamScalar}},
			Apply:       filterRows,
		},
		{
			Name:        RenameColumn,
			Description: "Rename column to new_name; an existing new_name column is overwritten",
			Params:      []ParamSpec{{Name: "column", Kind: ParamString}, {Name: "new_name", Kind: ParamString}},
			Apply:       renameColumn,
		},
		{
			Name:        UppercaseColumn,
			Description: "Convert every value in column to upper case",
			Params:      []ParamSpec{{Name: "column", Kind: ParamString}},
			Apply:       uppercaseColumn,
		},
		{
			Name:        TitlecaseColumn,
			Description: "Capitalize the first letter of each whitespace-separated word",
			Params:      []ParamSpec{{Name: "column", Kind: ParamString}},
			Apply:       titlecaseColumn,
		},
		{
			Name:        TrimWhitespace,
			Description: "Strip leading and trailing whitespace from every value in column",
			Params:      []ParamSpec{{Name: "column", Kind: ParamString}},
			Apply:       trimWhitespace,
		},
	}
}

// NewCatalogue builds a Registry holding every catalogue operation.
// Call it once during startup, before serving requests.
func NewCatalogue() *Registry {
	r := NewRegistry()
	for _, op := range Operations() {
		r.Register(op)
	}
	return r
}

func filterRows(ds *dataset.Dataset, p Params) (*dataset.Dataset, error) {
	column := p.String("column")
	if err := requireColumn(ds.HasColumn, column); err != nil {
		return nil, err
	}

	want := p["value"]
	wantStr := dataset.String(want)

	kept := make([]dataset.Row, 0, ds.Len())
	for _, row := range ds.Rows() {
		v := row[column]
		if want == nil {
			if v == nil {
				kept = append(kept, row)
			}
			continue
		}
		if v != nil && dataset.String(v) == wantStr {
			kept = append(kept, row)
		}
	}
	return ds.WithRows(kept), nil
}

func renameColumn(ds *dataset.Dataset, p Params) (*dataset.Dataset, error) {
	column := p.String("column")
	if err := requireColumn(ds.HasColumn, column); err != nil {
		return nil, err
	}
	return ds.RenameColumn(column, p.String("new_name")), nil
}

func uppercaseColumn(ds *dataset.Dataset, p Params) (*dataset.Dataset, error) {
	column := p.String("column")
	if err := requireColumn(ds.HasColumn, column); err != nil {
		return nil, err
	}

	// Casers are stateful; one per call.
	upper := cases.Upper(language.Und)
	return ds.MapColumn(column, nonNull(func(s string) string {
		return upper.String(s)
	})), nil
}

func titlecaseColumn(ds *dataset.Dataset, p Params) (*dataset.Dataset, error) {
	column := p.String("column")
	if err := requireColumn(ds.HasColumn, column); err != nil {
		return nil, err
	}

	lower := cases.Lower(language.Und)
	return ds.MapColumn(column, nonNull(func(s string) string {
		return titleWords(s, lower)
	})), nil
}

func trimWhitespace(ds *dataset.Dataset, p Params) (*dataset.Dataset, error) {
	column := p.String("column")
	if err := requireColumn(ds.HasColumn, column); err != nil {
		return nil, err
	}
	return ds.MapColumn(column, nonNull(strings.TrimSpace)), nil
}

// nonNull lifts a string function to cell values. Null stays null; other
// values are stringified first.
func nonNull(fn func(string) string) func(dataset.Value) dataset.Value {
	return func(v dataset.Value) dataset.Value {
		if v == nil {
			return nil
		}
		return fn(dataset.String(v))
	}
}

// titleWords title-cases the first rune of every whitespace-separated word and
// lower-cases the rest. Whitespace is copied through unchanged.
func titleWords(s string, lower cases.Caser) string {
	var b strings.Builder
	b.Grow(len(s))

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := s[start:end]
		r, size := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToTitle(r))
		b.WriteString(lower.String(word[size:]))
		start = -1
	}

	for i, r := range s {
		if unicode.IsSpace(r) {
			flush(i)
			b.WriteRune(r)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(s))

	return b.String()
}
