package domain

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"
)

// Table is a date-indexed set of float64 columns. The index is sorted and
// unique, and every column holds one value per index entry. Cells missing
// after an outer join are NaN until FillMissing is applied. Every method
// returns a new table and leaves the receiver untouched.
type Table struct {
	index   []time.Time
	columns []string
	data    map[string][]float64
}

// NewTable builds a table from an index and columns given in order. The index
// must be strictly increasing and every column must match its length.
func NewTable(index []time.Time, columns []string, values [][]float64) (*Table, error) {
	if len(columns) != len(values) {
		return nil, shapeErrorf("table", "%d column names but %d columns", len(columns), len(values))
	}
	for i := 1; i < len(index); i++ {
		if !index[i].After(index[i-1]) {
			return nil, shapeErrorf("table", "index not strictly increasing at %s", index[i].Format(DateLayout))
		}
	}
	t := &Table{index: slices.Clone(index), data: make(map[string][]float64, len(columns))}
	for i, col := range columns {
		if len(values[i]) != len(index) {
			return nil, shapeErrorf(col, "%d values for %d dates", len(values[i]), len(index))
		}
		if _, dup := t.data[col]; dup {
			return nil, shapeErrorf(col, "duplicate column")
		}
		t.columns = append(t.columns, col)
		t.data[col] = slices.Clone(values[i])
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.index) }

// Index returns a copy of the date index.
func (t *Table) Index() []time.Time { return slices.Clone(t.index) }

// Columns returns the column names in order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.data[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// Value returns the cell at row i of the named column.
func (t *Table) Value(i int, name string) float64 {
	return t.data[name][i]
}

// HasColumn reports whether the table holds the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

// WithColumn returns a copy of t with one more column appended.
func (t *Table) WithColumn(name string, values []float64) (*Table, error) {
	if t.HasColumn(name) {
		return nil, shapeErrorf(name, "duplicate column")
	}
	if len(values) != len(t.index) {
		return nil, shapeErrorf(name, "%d values for %d dates", len(values), len(t.index))
	}
	out := t.clone()
	out.columns = append(out.columns, name)
	out.data[name] = slices.Clone(values)
	return out, nil
}

// Join outer-joins t with others on the date index.
func (t *Table) Join(others ...*Table) (*Table, error) {
	return JoinTables(append([]*Table{t}, others...)...)
}

// JoinTables outer-joins tables on their date index. Column names must be
// unique across all inputs. Nil tables are skipped.
func JoinTables(tables ...*Table) (*Table, error) {
	days := map[int64]time.Time{}
	var columns []string
	seen := map[string]bool{}
	for _, tb := range tables {
		if tb == nil {
			continue
		}
		for _, col := range tb.columns {
			if seen[col] {
				return nil, shapeErrorf(col, "duplicate column in join")
			}
			seen[col] = true
			columns = append(columns, col)
		}
		for _, d := range tb.index {
			days[d.Unix()] = d
		}
	}

	index := make([]time.Time, 0, len(days))
	for _, d := range days {
		index = append(index, d)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })
	pos := make(map[int64]int, len(index))
	for i, d := range index {
		pos[d.Unix()] = i
	}

	out := &Table{index: index, columns: columns, data: make(map[string][]float64, len(columns))}
	for _, tb := range tables {
		if tb == nil {
			continue
		}
		for _, col := range tb.columns {
			values := nanColumn(len(index))
			for i, d := range tb.index {
				values[pos[d.Unix()]] = tb.data[col][i]
			}
			out.data[col] = values
		}
	}
	return out, nil
}

// FillMissing replaces every NaN cell with v.
func (t *Table) FillMissing(v float64) *Table {
	return t.mapCells(func(x float64) float64 {
		if math.IsNaN(x) {
			return v
		}
		return x
	})
}

// Truncate casts every cell to an integral value, truncating toward zero.
// NaN cells stay NaN.
func (t *Table) Truncate() *Table {
	return t.mapCells(math.Trunc)
}

// Normalize applies FillMissing(0) followed by Truncate.
func (t *Table) Normalize() *Table {
	return t.FillMissing(0).Truncate()
}

// Filter keeps the columns whose name contains substr.
func (t *Table) Filter(substr string) *Table {
	out := &Table{index: slices.Clone(t.index), data: map[string][]float64{}}
	for _, col := range t.columns {
		if strings.Contains(col, substr) {
			out.columns = append(out.columns, col)
			out.data[col] = slices.Clone(t.data[col])
		}
	}
	return out
}

// Rename returns a copy of t with columns renamed by exact match.
func (t *Table) Rename(names map[string]string) (*Table, error) {
	out := &Table{index: slices.Clone(t.index), data: make(map[string][]float64, len(t.columns))}
	for _, col := range t.columns {
		name := col
		if n, ok := names[col]; ok {
			name = n
		}
		if _, dup := out.data[name]; dup {
			return nil, shapeErrorf(name, "duplicate column after rename")
		}
		out.columns = append(out.columns, name)
		out.data[name] = slices.Clone(t.data[col])
	}
	return out, nil
}

// DropLast removes the last n rows.
func (t *Table) DropLast(n int) *Table {
	keep := len(t.index) - n
	if n <= 0 {
		keep = len(t.index)
	}
	if keep < 0 {
		keep = 0
	}
	out := &Table{index: slices.Clone(t.index[:keep]), columns: slices.Clone(t.columns), data: make(map[string][]float64, len(t.columns))}
	for _, col := range t.columns {
		out.data[col] = slices.Clone(t.data[col][:keep])
	}
	return out
}

// RowSum returns a single-column table holding the sum of each row. NaN cells
// are skipped.
func (t *Table) RowSum(name string) *Table {
	sums := make([]float64, len(t.index))
	for _, col := range t.columns {
		for i, v := range t.data[col] {
			if !math.IsNaN(v) {
				sums[i] += v
			}
		}
	}
	return &Table{index: slices.Clone(t.index), columns: []string{name}, data: map[string][]float64{name: sums}}
}

func (t *Table) String() string {
	return fmt.Sprintf("Table(%d rows x %d columns)", len(t.index), len(t.columns))
}

func (t *Table) mapCells(f func(float64) float64) *Table {
	out := t.clone()
	for _, col := range out.columns {
		values := out.data[col]
		for i, v := range values {
			values[i] = f(v)
		}
	}
	return out
}

func (t *Table) clone() *Table {
	out := &Table{
		index:   slices.Clone(t.index),
		columns: slices.Clone(t.columns),
		data:    make(map[string][]float64, len(t.data)),
	}
	for col, v := range t.data {
		out.data[col] = slices.Clone(v)
	}
	return out
}

func nanColumn(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	return values
}
