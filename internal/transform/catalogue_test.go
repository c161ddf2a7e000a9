package transform

import (
	"errors"
	"testing"

	"github.com/JonMunkholm/tabula/internal/dataset"
)

func sampleDataset() *dataset.Dataset {
	d := dataset.MustNew([]string{"name", "status", "age"})
	_ = d.AppendValues("John Doe", "active", int64(30))
	_ = d.AppendValues(" Jane Smith ", "inactive", int64(25))
	_ = d.AppendValues("alice johnson", "active", int64(35))
	return d
}

func apply(t *testing.T, name string, ds *dataset.Dataset, p Params) *dataset.Dataset {
	t.Helper()
	op, ok := NewCatalogue().Get(name)
	if !ok {
		t.Fatalf("operation %q not registered", name)
	}
	if err := op.CheckParams(p); err != nil {
		t.Fatalf("CheckParams() error = %v", err)
	}
	out, err := op.Apply(ds, p)
	if err != nil {
		t.Fatalf("%s error = %v", name, err)
	}
	return out
}

func column(ds *dataset.Dataset, name string) []dataset.Value {
	out := make([]dataset.Value, ds.Len())
	for i, r := range ds.Rows() {
		out[i] = r[name]
	}
	return out
}

func assertColumn(t *testing.T, ds *dataset.Dataset, name string, want ...dataset.Value) {
	t.Helper()
	got := column(ds, name)
	if len(got) != len(want) {
		t.Fatalf("column %s = %v, want %v", name, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %s[%d] = %#v, want %#v", name, i, got[i], want[i])
		}
	}
}

func TestFilterRows(t *testing.T) {
	in := sampleDataset()
	out := apply(t, FilterRows, in, Params{"column": "status", "value": "active"})

	if out.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", out.Len())
	}
	assertColumn(t, out, "name", "John Doe", "alice johnson")
	if in.Len() != 3 {
		t.Error("input dataset mutated")
	}
}

func TestFilterRows_NumericValueMatchesStringForm(t *testing.T) {
	out := apply(t, FilterRows, sampleDataset(), Params{"column": "age", "value": float64(25)})
	assertColumn(t, out, "name", " Jane Smith ")
}

func TestFilterRows_Null(t *testing.T) {
	d := dataset.MustNew([]string{"a"})
	_ = d.AppendValues(nil)
	_ = d.AppendValues("")
	_ = d.AppendValues("x")

	out := apply(t, FilterRows, d, Params{"column": "a", "value": nil})
	assertColumn(t, out, "a", nil)

	out = apply(t, FilterRows, d, Params{"column": "a", "value": ""})
	assertColumn(t, out, "a", "")
}

func TestRenameColumn(t *testing.T) {
	in := sampleDataset()
	out := apply(t, RenameColumn, in, Params{"column": "name", "new_name": "full_name"})

	if out.HasColumn("name") {
		t.Error("old column still present")
	}
	if out.Len() != in.Len() {
		t.Fatalf("Len() = %d, want %d", out.Len(), in.Len())
	}
	assertColumn(t, out, "full_name", column(in, "name")...)
}

func TestUppercaseColumn(t *testing.T) {
	out := apply(t, UppercaseColumn, sampleDataset(), Params{"column": "name"})
	assertColumn(t, out, "name", "JOHN DOE", " JANE SMITH ", "ALICE JOHNSON")
}

func TestUppercaseColumn_StringifiesAndSpecialCases(t *testing.T) {
	d := dataset.MustNew([]string{"v"})
	_ = d.AppendValues(int64(7))
	_ = d.AppendValues("straße")
	_ = d.AppendValues(nil)

	out := apply(t, UppercaseColumn, d, Params{"column": "v"})
	assertColumn(t, out, "v", "7", "STRASSE", nil)
}

func TestTitlecaseColumn(t *testing.T) {
	out := apply(t, TitlecaseColumn, sampleDataset(), Params{"column": "name"})
	assertColumn(t, out, "name", "John Doe", " Jane Smith ", "Alice Johnson")
}

func TestTitleWords(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"hello", "Hello"},
		{"hELLO wORLD", "Hello World"},
		{"  two  spaces\tand tab ", "  Two  Spaces\tAnd Tab "},
		{"o'neil jean-luc", "O'neil Jean-luc"},
		{"élan vital", "Élan Vital"},
	}
	for _, tt := range tests {
		out := apply(t, TitlecaseColumn, single(tt.in), Params{"column": "v"})
		if got := out.Row(0)["v"]; got != tt.want {
			t.Errorf("titlecase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func single(v string) *dataset.Dataset {
	d := dataset.MustNew([]string{"v"})
	_ = d.AppendValues(v)
	return d
}

func TestTrimWhitespace(t *testing.T) {
	out := apply(t, TrimWhitespace, sampleDataset(), Params{"column": "name"})
	assertColumn(t, out, "name", "John Doe", "Jane Smith", "alice johnson")
}

func TestTrimWhitespace_Idempotent(t *testing.T) {
	once := apply(t, TrimWhitespace, sampleDataset(), Params{"column": "name"})
	twice := apply(t, TrimWhitespace, once, Params{"column": "name"})
	assertColumn(t, twice, "name", column(once, "name")...)
}

func TestOperations_ColumnNotFound(t *testing.T) {
	tests := []struct {
		op     string
		params Params
	}{
		{FilterRows, Params{"column": "invalid_column", "value": "x"}},
		{RenameColumn, Params{"column": "nonexistent", "new_name": "x"}},
		{UppercaseColumn, Params{"column": "Name"}},
		{TitlecaseColumn, Params{"column": " name "}},
		{TrimWhitespace, Params{"column": "column is not in data"}},
	}

	reg := NewCatalogue()
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			op, _ := reg.Get(tt.op)
			_, err := op.Apply(sampleDataset(), tt.params)

			var cnf *ColumnNotFoundError
			if !errors.As(err, &cnf) {
				t.Fatalf("error = %v, want ColumnNotFoundError", err)
			}
			want := tt.params.String("column")
			if cnf.Column != want {
				t.Errorf("Column = %q, want %q", cnf.Column, want)
			}
			if cnf.Error() != "column '"+want+"' not found" {
				t.Errorf("Error() = %q", cnf.Error())
			}
		})
	}
}

func TestOperations_EmptyDatasetStillChecksColumn(t *testing.T) {
	op, _ := NewCatalogue().Get(UppercaseColumn)
	_, err := op.Apply(dataset.MustNew([]string{"name"}), Params{"column": "status"})
	var cnf *ColumnNotFoundError
	if !errors.As(err, &cnf) || cnf.Column != "status" {
		t.Fatalf("error = %v, want ColumnNotFound(status)", err)
	}
}

func TestCheckParams(t *testing.T) {
	reg := NewCatalogue()
	tests := []struct {
		name      string
		op        string
		params    map[string]any
		wantParam string
	}{
		{"valid", UppercaseColumn, map[string]any{"column": "name"}, ""},
		{"missing", RenameColumn, map[string]any{"new_name": "x"}, "column"},
		{"missing wins over unexpected", RenameColumn, map[string]any{"old_name": "name", "new_name": "x"}, "column"},
		{"wrong type", UppercaseColumn, map[string]any{"column": float64(1)}, "column"},
		{"unexpected key", UppercaseColumn, map[string]any{"column": "name", "extra": true}, "extra"},
		{"scalar accepts null", FilterRows, map[string]any{"column": "a", "value": nil}, ""},
		{"scalar rejects object", FilterRows, map[string]any{"column": "a", "value": map[string]any{}}, "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, _ := reg.Get(tt.op)
			err := op.CheckParams(tt.params)
			if tt.wantParam == "" {
				if err != nil {
					t.Fatalf("CheckParams() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidParam) {
				t.Fatalf("error = %v, want ErrInvalidParam", err)
			}
			var pe *ParamError
			if !errors.As(err, &pe) || pe.Param != tt.wantParam {
				t.Errorf("ParamError = %+v, want param %q", pe, tt.wantParam)
			}
		})
	}
}

func TestOperations_Deterministic(t *testing.T) {
	p := Params{"column": "name"}
	a := apply(t, TitlecaseColumn, sampleDataset(), p)
	b := apply(t, TitlecaseColumn, sampleDataset(), p)
	assertColumn(t, b, "name", column(a, "name")...)
}
