package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DateLayout is the canonical day format used in output files and message keys.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// ParseDate parses a widget date and truncates it to UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q", raw)
}

// Day returns t's calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// Point is one dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a named sequence of observations with strictly increasing dates.
type Series struct {
	Name   string
	Points []Point
}

// NewSeries pairs dates with values, sorts by date, and rejects duplicates.
func NewSeries(name string, dates []time.Time, values []float64) (Series, error) {
	if len(dates) != len(values) {
		return Series{}, shapeErrorf(name, "%d dates but %d values", len(dates), len(values))
	}
	points := make([]Point, len(dates))
	for i := range dates {
		points[i] = Point{Date: Day(dates[i]), Value: values[i]}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	for i := 1; i < len(points); i++ {
		if points[i].Date.Equal(points[i-1].Date) {
			return Series{}, shapeErrorf(name, "duplicate date %s", points[i].Date.Format(DateLayout))
		}
	}
	return Series{Name: name, Points: points}, nil
}

// Table converts the series to a single-column table.
func (s Series) Table() *Table {
	index := make([]time.Time, len(s.Points))
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		index[i] = p.Date
		values[i] = p.Value
	}
	return &Table{
		index:   index,
		columns: []string{s.Name},
		data:    map[string][]float64{s.Name: values},
	}
}
