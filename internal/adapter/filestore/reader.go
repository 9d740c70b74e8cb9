package filestore

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
)

// ReadCSV parses a file produced by WriteTable. Empty cells read as NaN.
func ReadCSV(r io.Reader) (*domain.Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != "date" {
		return nil, fmt.Errorf("read csv: missing date header")
	}

	columns := records[0][1:]
	index := make([]time.Time, 0, len(records)-1)
	values := make([][]float64, len(columns))
	for _, rec := range records[1:] {
		d, err := time.Parse(domain.DateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		index = append(index, d)
		for j := range columns {
			v := math.NaN()
			if rec[j+1] != "" {
				if v, err = strconv.ParseFloat(rec[j+1], 64); err != nil {
					return nil, fmt.Errorf("read csv: column %s on %s: %w", columns[j], rec[0], err)
				}
			}
			values[j] = append(values[j], v)
		}
	}
	return domain.NewTable(index, columns, values)
}

// ReadJSON parses a file produced by WriteTable. Columns come back sorted by
// name; null cells read as NaN.
func ReadJSON(r io.Reader) (*domain.Table, error) {
	var raw map[string]map[string]*float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	columns := make([]string, 0, len(raw))
	dateSet := map[string]struct{}{}
	for col, cells := range raw {
		columns = append(columns, col)
		for d := range cells {
			dateSet[d] = struct{}{}
		}
	}
	sort.Strings(columns)
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	index := make([]time.Time, len(dates))
	for i, d := range dates {
		t, err := time.Parse(domain.DateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("read json: %w", err)
		}
		index[i] = t
	}
	values := make([][]float64, len(columns))
	for j, col := range columns {
		values[j] = make([]float64, len(dates))
		for i, d := range dates {
			values[j][i] = math.NaN()
			if v := raw[col][d]; v != nil {
				values[j][i] = *v
			}
		}
	}
	return domain.NewTable(index, columns, values)
}
