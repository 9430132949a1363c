package dataset

import (
	"fmt"
	"math"
)

// Type is the declared semantic type of a column. Classification is always
// driven by the declared type, never by inspecting the values.
type Type string

const (
	Numeric     Type = "numeric"
	Categorical Type = "categorical"
)

// Valid reports whether t is a known column type.
func (t Type) Valid() bool {
	return t == Numeric || t == Categorical
}

// Column holds one named, typed sequence of cells. Exactly one of Floats or
// Strings backs the values depending on Type; Missing marks absent cells and
// is always the same length as the backing slice. A missing cell is distinct
// from an empty string or a zero.
type Column struct {
	Name    string
	Type    Type
	Floats  []float64
	Strings []string
	Missing []bool
}

// NewNumericColumn builds a numeric column. NaN values are normalized to
// missing cells so downstream code only ever checks the mask.
func NewNumericColumn(name string, values []float64, missing []bool) *Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	c := &Column{Name: name, Type: Numeric, Floats: values, Missing: missing}
	for i, v := range c.Floats {
		if math.IsNaN(v) {
			c.Missing[i] = true
			c.Floats[i] = 0
		}
	}
	return c
}

// NewCategoricalColumn builds a categorical column.
func NewCategoricalColumn(name string, values []string, missing []bool) *Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return &Column{Name: name, Type: Categorical, Strings: values, Missing: missing}
}

// Len returns the row count of the column.
func (c *Column) Len() int {
	return len(c.Missing)
}

// IsMissing reports whether the cell at row i is absent.
func (c *Column) IsMissing(i int) bool {
	return c.Missing[i]
}

// MissingCount returns the number of absent cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// SetFloat fills the cell at row i with a numeric value, clearing the
// missing mark. NaN keeps the cell missing.
func (c *Column) SetFloat(i int, v float64) {
	if math.IsNaN(v) {
		return
	}
	c.Floats[i] = v
	c.Missing[i] = false
}

// SetString fills the cell at row i with a text value, clearing the missing
// mark.
func (c *Column) SetString(i int, v string) {
	c.Strings[i] = v
	c.Missing[i] = false
}

// NonMissingFloats returns the present numeric values in row order.
// Non-finite values are excluded as well so statistics never see them.
func (c *Column) NonMissingFloats() []float64 {
	out := make([]float64, 0, c.Len())
	for i, v := range c.Floats {
		if c.Missing[i] || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// NonMissingStrings returns the present text values in row order.
func (c *Column) NonMissingStrings() []string {
	out := make([]string, 0, c.Len())
	for i, v := range c.Strings {
		if c.Missing[i] {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	cp := &Column{Name: c.Name, Type: c.Type}
	if c.Floats != nil {
		cp.Floats = append([]float64(nil), c.Floats...)
	}
	if c.Strings != nil {
		cp.Strings = append([]string(nil), c.Strings...)
	}
	cp.Missing = append([]bool(nil), c.Missing...)
	return cp
}

// Dataset is an ordered collection of equally sized named columns. It is the
// unit of work for every cleaning operation: transformations run against a
// Clone and return the modified copy, the receiver is never mutated.
type Dataset struct {
	columns []*Column
	index   map[string]int
}

// New builds a dataset from columns, validating name uniqueness, type
// validity and equal row counts.
func New(columns ...*Column) (*Dataset, error) {
	d := &Dataset{index: make(map[string]int, len(columns))}
	rows := -1
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column name must not be empty")
		}
		if !c.Type.Valid() {
			return nil, fmt.Errorf("column %q: unknown type %q", c.Name, c.Type)
		}
		if _, exists := d.index[c.Name]; exists {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		if rows == -1 {
			rows = c.Len()
		} else if c.Len() != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), rows)
		}
		switch c.Type {
		case Numeric:
			if len(c.Floats) != c.Len() {
				return nil, fmt.Errorf("column %q: numeric backing has %d values for %d rows", c.Name, len(c.Floats), c.Len())
			}
		case Categorical:
			if len(c.Strings) != c.Len() {
				return nil, fmt.Errorf("column %q: string backing has %d values for %d rows", c.Name, len(c.Strings), c.Len())
			}
		}
		d.index[c.Name] = len(d.columns)
		d.columns = append(d.columns, c)
	}
	return d, nil
}

// Rows returns the row count. An empty dataset has zero rows.
func (d *Dataset) Rows() int {
	if len(d.columns) == 0 {
		return 0
	}
	return d.columns[0].Len()
}

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int {
	return len(d.columns)
}

// Columns returns the columns in declaration order. Callers must treat the
// slice as read-only.
func (d *Dataset) Columns() []*Column {
	return d.columns
}

// ColumnNames returns the column names in declaration order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// HasColumn reports whether a column with the given name exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Clone returns a deep copy of the dataset. This backs the copy-on-write
// contract: operations mutate the clone and commit it on success.
func (d *Dataset) Clone() *Dataset {
	cp := &Dataset{
		columns: make([]*Column, len(d.columns)),
		index:   make(map[string]int, len(d.index)),
	}
	for i, c := range d.columns {
		cp.columns[i] = c.Clone()
		cp.index[c.Name] = i
	}
	return cp
}

// Drop returns a new dataset without the named columns. Names not present
// are ignored; the returned slice lists the columns actually removed.
func (d *Dataset) Drop(names ...string) (*Dataset, []string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var kept []*Column
	var removed []string
	for _, c := range d.columns {
		if drop[c.Name] {
			removed = append(removed, c.Name)
			continue
		}
		kept = append(kept, c.Clone())
	}
	out := &Dataset{index: make(map[string]int, len(kept))}
	for i, c := range kept {
		out.index[c.Name] = i
		out.columns = append(out.columns, c)
	}
	return out, removed
}

// TotalMissing returns the number of absent cells across all columns.
func (d *Dataset) TotalMissing() int {
	n := 0
	for _, c := range d.columns {
		n += c.MissingCount()
	}
	return n
}

// EstimatedBytes returns a rough in-memory size of the cell data.
func (d *Dataset) EstimatedBytes() int64 {
	var n int64
	for _, c := range d.columns {
		n += int64(len(c.Missing)) // mask
		n += int64(len(c.Floats)) * 8
		for _, s := range c.Strings {
			n += int64(len(s)) + 16
		}
	}
	return n
}

// Equal reports bit-for-bit equality of two datasets: same column set in the
// same order, same types, same missing masks and same present values. Values
// under a missing mark are not compared. This backs the Reset invariant.
func Equal(a, b *Dataset) bool {
	if a.NumColumns() != b.NumColumns() {
		return false
	}
	for i, ca := range a.columns {
		cb := b.columns[i]
		if ca.Name != cb.Name || ca.Type != cb.Type || ca.Len() != cb.Len() {
			return false
		}
		for r := 0; r < ca.Len(); r++ {
			if ca.Missing[r] != cb.Missing[r] {
				return false
			}
			if ca.Missing[r] {
				continue
			}
			switch ca.Type {
			case Numeric:
				if ca.Floats[r] != cb.Floats[r] {
					return false
				}
			case Categorical:
				if ca.Strings[r] != cb.Strings[r] {
					return false
				}
			}
		}
	}
	return true
}
