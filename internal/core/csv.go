package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/tabula/internal/dataset"
)

// ErrInvalidInputData is returned when the uploaded CSV cannot be turned into
// a dataset.
var ErrInvalidInputData = errors.New("invalid csv")

// columnKind is the type inferred for a whole CSV column.
type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindBool
	kindString
)

// DecodeCSV reads a CSV document with a header row into a dataset.
//
// A leading UTF-8 BOM is skipped. Input that is empty, not valid UTF-8, has
// an empty or repeated header name, or has rows whose field count differs
// from the header fails with ErrInvalidInputData.
//
// Empty cells become null. Each column takes the narrowest type every
// non-empty cell parses as: int64, then float64, then bool, else string.
// Cells are not trimmed.
func DecodeCSV(r io.Reader) (*dataset.Dataset, error) {
	data, err := io.ReadAll(NewBOMSkippingReader(r))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInputData)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: encoding error: input is not valid UTF-8", ErrInvalidInputData)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = 0 // header length fixes the width

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInputData, err)
	}
	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("%w: header column %d is empty", ErrInvalidInputData, i+1)
		}
	}

	ds, err := dataset.New(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInputData, err)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInputData, err)
	}

	kinds := inferKinds(len(header), records)
	values := make([]dataset.Value, len(header))
	for _, rec := range records {
		for i, cell := range rec {
			values[i] = parseCell(cell, kinds[i])
		}
		if err := ds.AppendValues(values...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInputData, err)
		}
	}

	return ds, nil
}

func inferKinds(width int, records [][]string) []columnKind {
	kinds := make([]columnKind, width)
	for col := range kinds {
		kind := kindInt
		for _, rec := range records {
			cell := rec[col]
			if cell == "" {
				continue
			}
			for kind < kindString && !fitsKind(cell, kind) {
				kind++
			}
			if kind == kindString {
				break
			}
		}
		kinds[col] = kind
	}
	return kinds
}

func fitsKind(cell string, kind columnKind) bool {
	switch kind {
	case kindInt:
		_, err := strconv.ParseInt(cell, 10, 64)
		return err == nil
	case kindFloat:
		f, err := strconv.ParseFloat(cell, 64)
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case kindBool:
		_, ok := parseBool(cell)
		return ok
	default:
		return true
	}
}

func parseCell(cell string, kind columnKind) dataset.Value {
	if cell == "" {
		return nil
	}
	switch kind {
	case kindInt:
		v, _ := strconv.ParseInt(cell, 10, 64)
		return v
	case kindFloat:
		v, _ := strconv.ParseFloat(cell, 64)
		return v
	case kindBool:
		v, _ := parseBool(cell)
		return v
	default:
		return cell
	}
}

// parseBool accepts true/false in any letter case. Unlike strconv.ParseBool
// it rejects 0/1 and t/f, which are more likely numbers or codes.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// EncodeCSV writes ds as CSV with a header row. Nulls become empty cells.
func EncodeCSV(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	cols := ds.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}

	rec := make([]string, len(cols))
	for _, row := range ds.Rows() {
		for i, c := range cols {
			rec[i] = dataset.String(row[c])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Records is a dataset rendered as a JSON array of objects whose keys follow
// the schema order.
type Records struct {
	ds *dataset.Dataset
}

// NewRecords wraps ds for JSON encoding.
func NewRecords(ds *dataset.Dataset) Records { return Records{ds: ds} }

// MarshalJSON implements json.Marshaler.
func (r Records) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, rec := range r.ds.Records() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, f := range rec {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Name)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(f.Value)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", f.Name, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
