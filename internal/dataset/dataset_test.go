package dataset

import "testing"

func people() *Dataset {
	d := MustNew([]string{"name", "status", "age"})
	_ = d.AppendValues("John Doe", "active", int64(30))
	_ = d.AppendValues("Jane Smith", "inactive", int64(25))
	return d
}

func TestNew_DuplicateColumn(t *testing.T) {
	if _, err := New([]string{"a", "b", "a"}); err == nil {
		t.Fatal("New() expected error for duplicate column")
	}
}

func TestAppend_FillsMissingWithNull(t *testing.T) {
	d := MustNew([]string{"a", "b"})
	if err := d.Append(Row{"a": "x"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	v, ok := d.Cell(0, "b")
	if !ok || v != nil {
		t.Errorf("Cell(0, b) = %v, %v; want nil, true", v, ok)
	}
	if err := d.Append(Row{"c": "x"}); err == nil {
		t.Error("Append() expected error for unknown column")
	}
}

func TestAppendValues_RejectsUnsupportedTypes(t *testing.T) {
	d := MustNew([]string{"a"})
	if err := d.AppendValues(3); err == nil {
		t.Error("AppendValues(int) expected error")
	}
	if err := d.AppendValues([]string{"x"}); err == nil {
		t.Error("AppendValues(slice) expected error")
	}
	if err := d.AppendValues("x", "y"); err == nil {
		t.Error("AppendValues() expected error for wrong arity")
	}
}

func TestMapColumn_DoesNotMutateInput(t *testing.T) {
	d := people()
	out := d.MapColumn("status", func(Value) Value { return "x" })

	if got := d.Row(0)["status"]; got != "active" {
		t.Errorf("input mutated: status = %v", got)
	}
	if got := out.Row(0)["status"]; got != "x" {
		t.Errorf("output status = %v, want x", got)
	}
}

func TestRenameColumn(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		wantCols []string
	}{
		{"simple", "name", "full_name", []string{"full_name", "status", "age"}},
		{"same name", "name", "name", []string{"name", "status", "age"}},
		{"overwrites existing", "name", "age", []string{"age", "status"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := people()
			out := d.RenameColumn(tt.from, tt.to)

			cols := out.Columns()
			if len(cols) != len(tt.wantCols) {
				t.Fatalf("Columns() = %v, want %v", cols, tt.wantCols)
			}
			for i := range cols {
				if cols[i] != tt.wantCols[i] {
					t.Fatalf("Columns() = %v, want %v", cols, tt.wantCols)
				}
			}
			for i := 0; i < out.Len(); i++ {
				if got, want := out.Row(i)[tt.to], d.Row(i)[tt.from]; got != want {
					t.Errorf("row %d %s = %v, want %v", i, tt.to, got, want)
				}
				if len(out.Row(i)) != len(tt.wantCols) {
					t.Errorf("row %d has %d keys, want %d", i, len(out.Row(i)), len(tt.wantCols))
				}
			}
			if !d.HasColumn(tt.from) {
				t.Error("input schema mutated")
			}
		})
	}
}

func TestRecords_KeepsSchemaOrder(t *testing.T) {
	recs := people().Records()
	if len(recs) != 2 {
		t.Fatalf("Records() len = %d, want 2", len(recs))
	}
	want := []string{"name", "status", "age"}
	for i, f := range recs[0] {
		if f.Name != want[i] {
			t.Errorf("field %d = %q, want %q", i, f.Name, want[i])
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{int64(30), "30"},
		{float64(30), "30"},
		{2.5, "2.5"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := String(tt.in); got != tt.want {
			t.Errorf("String(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
