package domain

import (
	"errors"
	"math"
	"strings"
)

// Default suffixes for deriving cumulative totals from daily counts.
const (
	DefaultNewCasesSuffix = "newCases"
	DefaultCumCasesSuffix = "cumCases"
)

// CumulativeSums computes a running total for every column whose name
// contains filterSuffix. Output columns substitute colSuffix for filterSuffix.
// With combine the derived columns are joined onto t. NaN cells stay NaN and
// do not contribute to the total.
func CumulativeSums(t *Table, filterSuffix, colSuffix string, combine bool) (*Table, error) {
	if filterSuffix == "" {
		return nil, errors.New("cumulative sums: empty filter suffix")
	}
	src := t.Filter(filterSuffix)
	out := &Table{index: t.Index(), data: map[string][]float64{}}
	for _, col := range src.columns {
		values := src.data[col]
		sums := make([]float64, len(values))
		var total float64
		for i, v := range values {
			if math.IsNaN(v) {
				sums[i] = v
				continue
			}
			total += v
			sums[i] = total
		}
		var err error
		out, err = out.WithColumn(strings.ReplaceAll(col, filterSuffix, colSuffix), sums)
		if err != nil {
			return nil, err
		}
	}
	if combine {
		return t.Join(out)
	}
	return out, nil
}
