package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// WidgetPayload is the htmlwidgets JSON blob embedded in a section script.
type WidgetPayload struct {
	X struct {
		Data []WidgetTrace `json:"data"`
	} `json:"x"`
}

// WidgetTrace is one plotted trace. A nil Y entry is a missing observation.
type WidgetTrace struct {
	Name string     `json:"name"`
	X    []string   `json:"x"`
	Y    []*float64 `json:"y"`
}

// ParseWidget decodes a script body into a widget payload.
func ParseWidget(script string) (WidgetPayload, error) {
	var p WidgetPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(script)), &p); err != nil {
		return WidgetPayload{}, fmt.Errorf("decode widget payload: %w", err)
	}
	return p, nil
}

// Traces returns the payload's trace list.
func (p WidgetPayload) Traces() []WidgetTrace { return p.X.Data }

// Series converts the trace to a series named column. Missing values become NaN.
func (tr WidgetTrace) Series(column string) (Series, error) {
	if len(tr.X) != len(tr.Y) {
		return Series{}, shapeErrorf(column, "trace %q has %d dates but %d values", tr.Name, len(tr.X), len(tr.Y))
	}
	dates := make([]time.Time, len(tr.X))
	values := make([]float64, len(tr.Y))
	for i, raw := range tr.X {
		d, err := ParseDate(raw)
		if err != nil {
			return Series{}, fmt.Errorf("trace %q: %w", tr.Name, err)
		}
		dates[i] = d
		if tr.Y[i] == nil {
			values[i] = math.NaN()
		} else {
			values[i] = *tr.Y[i]
		}
	}
	return NewSeries(column, dates, values)
}
