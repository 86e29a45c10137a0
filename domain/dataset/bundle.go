package dataset

import (
	"encoding/binary"
	"fmt"
	"math"

	"gosim/domain/core"
)

// Frame is the in-memory Dataset: a set of equally long named columns.
// Frames are never mutated after construction; Subset and the builders
// always allocate.
type Frame struct {
	names   []string
	columns map[string]Column
	rows    int
}

// NewFrame builds a frame from columns, which must all have the same length
// and distinct names.
func NewFrame(columns ...Column) (*Frame, error) {
	f := &Frame{columns: make(map[string]Column, len(columns))}
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := f.columns[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", col.Name)
		}
		if col.Kind != KindNumeric && col.Kind != KindCategorical {
			return nil, fmt.Errorf("column %q has unknown kind %q", col.Name, col.Kind)
		}
		if i == 0 {
			f.rows = col.Len()
		} else if col.Len() != f.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", core.ErrLengthMismatch, col.Name, col.Len(), f.rows)
		}
		f.names = append(f.names, col.Name)
		f.columns[col.Name] = col
	}
	return f, nil
}

// FromFloat64s wraps a single numeric column. The slice is copied.
func FromFloat64s(name string, values []float64) *Frame {
	vals := make([]float64, len(values))
	copy(vals, values)
	f, _ := NewFrame(Column{Name: name, Kind: KindNumeric, Numbers: vals})
	return f
}

// FromStrings wraps a single categorical column. The slice is copied.
func FromStrings(name string, labels []string) *Frame {
	vals := make([]string, len(labels))
	copy(vals, labels)
	f, _ := NewFrame(Column{Name: name, Kind: KindCategorical, Labels: vals})
	return f
}

func (f *Frame) Len() int { return f.rows }

func (f *Frame) ColumnNames() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

func (f *Frame) Column(name string) (Column, error) {
	col, ok := f.columns[name]
	if !ok {
		return Column{}, core.NewColumnNotFoundError(name)
	}
	return col, nil
}

func (f *Frame) Subset(indices []int) (Dataset, error) {
	for _, idx := range indices {
		if idx < 0 || idx >= f.rows {
			return nil, fmt.Errorf("row index %d out of range [0, %d)", idx, f.rows)
		}
	}
	out := &Frame{
		names:   f.names,
		columns: make(map[string]Column, len(f.columns)),
		rows:    len(indices),
	}
	for _, name := range f.names {
		out.columns[name] = takeRows(f.columns[name], indices)
	}
	return out, nil
}

// WithColumn returns a copy of the frame with one column replaced (or
// appended when absent).
func (f *Frame) WithColumn(col Column) (*Frame, error) {
	cols := make([]Column, 0, len(f.names)+1)
	replaced := false
	for _, name := range f.names {
		if name == col.Name {
			cols = append(cols, col)
			replaced = true
			continue
		}
		cols = append(cols, f.columns[name])
	}
	if !replaced {
		cols = append(cols, col)
	}
	return NewFrame(cols...)
}

func takeRows(col Column, indices []int) Column {
	out := Column{Name: col.Name, Kind: col.Kind}
	switch col.Kind {
	case KindCategorical:
		out.Labels = make([]string, len(indices))
		for i, idx := range indices {
			out.Labels[i] = col.Labels[idx]
		}
	default:
		out.Numbers = make([]float64, len(indices))
		for i, idx := range indices {
			out.Numbers[i] = col.Numbers[idx]
		}
	}
	return out
}

// Float64s returns the numeric column name of ds.
func Float64s(ds Dataset, name string) ([]float64, error) {
	col, err := ds.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != KindNumeric {
		return nil, core.NewColumnTypeError(name, "numeric")
	}
	return col.Numbers, nil
}

// Strings returns the categorical column name of ds.
func Strings(ds Dataset, name string) ([]string, error) {
	col, err := ds.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != KindCategorical {
		return nil, core.NewColumnTypeError(name, "categorical")
	}
	return col.Labels, nil
}

// Concat stacks the rows of b under the rows of a. Both datasets must have
// the same column names and kinds, in any order; the result uses a's order.
func Concat(a, b Dataset) (*Frame, error) {
	namesA := a.ColumnNames()
	if len(namesA) != len(b.ColumnNames()) {
		return nil, fmt.Errorf("%w: datasets have %d and %d columns", core.ErrLengthMismatch, len(namesA), len(b.ColumnNames()))
	}
	cols := make([]Column, 0, len(namesA))
	for _, name := range namesA {
		ca, err := a.Column(name)
		if err != nil {
			return nil, err
		}
		cb, err := b.Column(name)
		if err != nil {
			return nil, err
		}
		if ca.Kind != cb.Kind {
			return nil, core.NewColumnTypeError(name, string(ca.Kind))
		}
		col := Column{Name: name, Kind: ca.Kind}
		if ca.Kind == KindCategorical {
			col.Labels = append(append(make([]string, 0, ca.Len()+cb.Len()), ca.Labels...), cb.Labels...)
		} else {
			col.Numbers = append(append(make([]float64, 0, ca.Len()+cb.Len()), ca.Numbers...), cb.Numbers...)
		}
		cols = append(cols, col)
	}
	return NewFrame(cols...)
}

// WhereLabel returns the rows of ds whose categorical column equals label.
func WhereLabel(ds Dataset, column, label string) (Dataset, error) {
	labels, err := Strings(ds, column)
	if err != nil {
		return nil, err
	}
	var indices []int
	for i, l := range labels {
		if l == label {
			indices = append(indices, i)
		}
	}
	return ds.Subset(indices)
}

// ContentHash hashes every column of ds, in column order and row order.
// Datasets with equal hashes hold the same values in the same rows.
func ContentHash(ds Dataset) (core.Hash, error) {
	var buf []byte
	buf = binary.AppendUvarint(buf, uint64(ds.Len()))
	for _, name := range ds.ColumnNames() {
		col, err := ds.Column(name)
		if err != nil {
			return "", err
		}
		buf = appendString(buf, name)
		buf = appendString(buf, string(col.Kind))
		if col.Kind == KindCategorical {
			for _, l := range col.Labels {
				buf = appendString(buf, l)
			}
			continue
		}
		for _, v := range col.Numbers {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return core.NewHash(buf), nil
}

// appendString length-prefixes s so adjacent values cannot run together.
func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}
