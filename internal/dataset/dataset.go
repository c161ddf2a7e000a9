// Package dataset provides the in-memory tabular container that pipelines
// operate on.
//
// A Dataset is an ordered schema (column names) plus ordered rows. Every row
// holds exactly one value per schema column. Values are scalars: nil, string,
// int64, float64 or bool.
package dataset

import (
	"fmt"
	"strconv"
)

// Value is a single cell. Valid dynamic types are nil, string, int64,
// float64 and bool.
type Value = any

// Row maps column names to cell values.
type Row map[string]Value

// Dataset is a columnar-schema, row-oriented table.
// A Dataset is owned by a single run and is never shared between goroutines.
type Dataset struct {
	columns []string
	index   map[string]int // name -> position in columns
	rows    []Row
}

// New creates an empty dataset with the given schema.
// Returns an error if a column name is repeated.
func New(columns []string) (*Dataset, error) {
	d := &Dataset{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := d.index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		d.columns[i] = c
		d.index[c] = i
	}
	return d, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(columns []string) *Dataset {
	d, err := New(columns)
	if err != nil {
		panic(err)
	}
	return d
}

// Columns returns a copy of the schema in order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// HasColumn reports whether name is in the schema. The comparison is exact.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Row returns row i. The returned map must not be modified.
func (d *Dataset) Row(i int) Row { return d.rows[i] }

// Rows returns the rows in order. The returned maps must not be modified.
func (d *Dataset) Rows() []Row { return d.rows }

// Cell returns the value of column in row i.
func (d *Dataset) Cell(i int, column string) (Value, bool) {
	if !d.HasColumn(column) {
		return nil, false
	}
	return d.rows[i][column], true
}

// Append adds a row. Columns missing from values are stored as nil;
// values for columns outside the schema are rejected.
func (d *Dataset) Append(values Row) error {
	row := make(Row, len(d.columns))
	for k, v := range values {
		if !d.HasColumn(k) {
			return fmt.Errorf("unknown column: %s", k)
		}
		if err := checkScalar(k, v); err != nil {
			return err
		}
		row[k] = v
	}
	for _, c := range d.columns {
		if _, ok := row[c]; !ok {
			row[c] = nil
		}
	}
	d.rows = append(d.rows, row)
	return nil
}

// AppendValues adds a row given positionally, in schema order.
func (d *Dataset) AppendValues(values ...Value) error {
	if len(values) != len(d.columns) {
		return fmt.Errorf("row has %d values, expected %d", len(values), len(d.columns))
	}
	row := make(Row, len(d.columns))
	for i, c := range d.columns {
		if err := checkScalar(c, values[i]); err != nil {
			return err
		}
		row[c] = values[i]
	}
	d.rows = append(d.rows, row)
	return nil
}

// Clone returns a deep copy: new schema slice and new row maps.
func (d *Dataset) Clone() *Dataset {
	out := d.emptyLike(len(d.rows))
	for _, r := range d.rows {
		out.rows = append(out.rows, r.clone())
	}
	return out
}

// WithRows returns a dataset with the same schema holding copies of the
// given rows, which must come from d.
func (d *Dataset) WithRows(rows []Row) *Dataset {
	out := d.emptyLike(len(rows))
	for _, r := range rows {
		out.rows = append(out.rows, r.clone())
	}
	return out
}

// MapColumn returns a copy of d where every value of column is replaced by
// fn(value). The column must exist.
func (d *Dataset) MapColumn(column string, fn func(Value) Value) *Dataset {
	out := d.Clone()
	for _, r := range out.rows {
		r[column] = fn(r[column])
	}
	return out
}

// RenameColumn returns a copy of d with from renamed to to, keeping the
// column's position. If to already names a different column, that column is
// dropped and replaced. from must exist.
func (d *Dataset) RenameColumn(from, to string) *Dataset {
	if from == to {
		return d.Clone()
	}

	cols := make([]string, 0, len(d.columns))
	for _, c := range d.columns {
		switch c {
		case from:
			cols = append(cols, to)
		case to:
			// overwritten by the renamed column
		default:
			cols = append(cols, c)
		}
	}

	out := &Dataset{
		columns: cols,
		index:   make(map[string]int, len(cols)),
		rows:    make([]Row, 0, len(d.rows)),
	}
	for i, c := range cols {
		out.index[c] = i
	}
	for _, r := range d.rows {
		nr := r.clone()
		nr[to] = nr[from]
		delete(nr, from)
		out.rows = append(out.rows, nr)
	}
	return out
}

// Records returns the rows as ordered key/value slices, in schema order.
func (d *Dataset) Records() [][]Field {
	out := make([][]Field, len(d.rows))
	for i, r := range d.rows {
		rec := make([]Field, len(d.columns))
		for j, c := range d.columns {
			rec[j] = Field{Name: c, Value: r[c]}
		}
		out[i] = rec
	}
	return out
}

// Field is one named cell of a record.
type Field struct {
	Name  string
	Value Value
}

func (d *Dataset) emptyLike(capacity int) *Dataset {
	out := &Dataset{
		columns: make([]string, len(d.columns)),
		index:   make(map[string]int, len(d.index)),
		rows:    make([]Row, 0, capacity),
	}
	copy(out.columns, d.columns)
	for k, v := range d.index {
		out.index[k] = v
	}
	return out
}

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func checkScalar(column string, v Value) error {
	switch v.(type) {
	case nil, string, int64, float64, bool:
		return nil
	case int:
		return fmt.Errorf("column %s: use int64, not int", column)
	default:
		return fmt.Errorf("column %s: unsupported value type %T", column, v)
	}
}

// String returns the string form of a cell. Null becomes "", integers are
// base 10, floats use the shortest representation without exponent.
func String(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
