package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultIncubationPeriod is the COVID-19 incubation period in days.
const DefaultIncubationPeriod = 5.2

// Suffixes of the derived doubling-time columns.
const (
	DoublingSuffix        = "dtime"
	RollingDoublingSuffix = "dtime_rw"
)

// DoublingOptions selects the columns to estimate and the rolling window.
type DoublingOptions struct {
	// ColumnSuffix selects cumulative columns by substring and is replaced by
	// the doubling suffixes in the output names.
	ColumnSuffix string
	// Window is both the number of days after the first nonzero value before
	// the rolling estimate activates, and the look-back distance in rows.
	Window int
	// Combine joins the derived columns onto the input table.
	Combine bool
}

// WindowFromIncubation rounds an incubation period up to a whole-day window.
func WindowFromIncubation(days float64) int {
	w := int(math.Ceil(days))
	if w < 1 {
		return 1
	}
	return w
}

// DoublingTimes derives anchored and rolling doubling times for every column
// of t whose name contains opts.ColumnSuffix.
func DoublingTimes(t *Table, opts DoublingOptions) (*Table, error) {
	if opts.ColumnSuffix == "" {
		return nil, errors.New("doubling times: empty column suffix")
	}
	if opts.Window < 1 {
		return nil, fmt.Errorf("doubling times: window must be positive, got %d", opts.Window)
	}

	src := t.Filter(opts.ColumnSuffix)
	out := &Table{index: t.Index(), data: map[string][]float64{}}
	for _, col := range src.columns {
		values := src.data[col]
		var err error
		out, err = out.WithColumn(strings.ReplaceAll(col, opts.ColumnSuffix, DoublingSuffix),
			AnchoredDoublingTimes(src.index, values))
		if err != nil {
			return nil, err
		}
		out, err = out.WithColumn(strings.ReplaceAll(col, opts.ColumnSuffix, RollingDoublingSuffix),
			RollingDoublingTimes(src.index, values, opts.Window))
		if err != nil {
			return nil, err
		}
	}
	if opts.Combine {
		return t.Join(out)
	}
	return out, nil
}

// DoublingTime returns days*ln2/ln(ratio), or 0 when ratio does not exceed 1.
func DoublingTime(days int, ratio float64) float64 {
	if ratio > 1 {
		return float64(days) * math.Ln2 / math.Log(ratio)
	}
	return 0
}

// AnchoredDoublingTimes measures growth from the first nonzero value to each
// later row. Row 0 and every row of an all-zero column are 0.
func AnchoredDoublingTimes(dates []time.Time, values []float64) []float64 {
	out := make([]float64, len(values))
	start, ok := firstNonZero(values)
	if !ok {
		return out
	}
	for i := 1; i < len(values); i++ {
		out[i] = DoublingTime(DaysBetween(dates[start], dates[i]), values[i]/values[start])
	}
	return out
}

// RollingDoublingTimes measures growth over the last window rows. Rows before
// the first nonzero index plus window are 0.
func RollingDoublingTimes(dates []time.Time, values []float64, window int) []float64 {
	out := make([]float64, len(values))
	start, ok := firstNonZero(values)
	if !ok || window < 1 {
		return out
	}
	for i := start + window; i < len(values); i++ {
		old := i - window
		if values[old] == 0 {
			continue
		}
		out[i] = DoublingTime(DaysBetween(dates[old], dates[i]), values[i]/values[old])
	}
	return out
}

func firstNonZero(values []float64) (int, bool) {
	for i, v := range values {
		if v != 0 && !math.IsNaN(v) {
			return i, true
		}
	}
	return 0, false
}
