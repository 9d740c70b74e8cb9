package domain

import "fmt"

// Axis selects the y axis a trace is drawn against.
type Axis int

const (
	AxisPrimary Axis = iota
	AxisSecondary
)

// TraceStyle is the presentation of one plotted column.
type TraceStyle struct {
	Color string
	Width float64
	Label string
}

// TraceKind selects how a trace is drawn.
type TraceKind int

const (
	TraceLine TraceKind = iota
	TraceBar
)

// PlotTrace maps a report column to a line or bars. An empty XColumn plots
// against the date index. AnnotateLast labels the final point with its value.
type PlotTrace struct {
	Column       string
	XColumn      string
	Axis         Axis
	Kind         TraceKind
	AnnotateLast bool
	Style        TraceStyle
}

// Figure is a declarative chart over the combined report.
type Figure struct {
	Title   string
	XLabel  string
	YLabel  string
	Y2Label string
	Traces  []PlotTrace
}

// DefaultTrimDays is the number of trailing rows dropped before plotting.
// The newest day is usually incomplete.
const DefaultTrimDays = 1

// DefaultFigures returns the case-count and doubling-time charts.
func DefaultFigures(regionSuffix string, window int) []Figure {
	zone := RegionCumulativeSuffix(regionSuffix)
	if zone == "" {
		zone = RegionCumulative
	}
	return []Figure{
		{
			Title:   "Alberta Covid-19: Case Counts and Number of Tests",
			YLabel:  "Case Counts",
			Y2Label: "Tests",
			Traces: []PlotTrace{
				{Column: ReportDailyCases, Style: TraceStyle{Color: "green", Width: 2, Label: "Alberta Daily"}},
				{Column: "Calgary_" + zone, Style: TraceStyle{Color: "orange", Width: 2, Label: "Calgary Cumulative"}},
				{Column: "Edmonton_" + zone, Style: TraceStyle{Color: "blue", Width: 2, Label: "Edmonton Cumulative"}},
				{Column: ColumnTotalTests, Axis: AxisSecondary, Kind: TraceBar, Style: TraceStyle{Color: "darkgrey", Width: 1, Label: "C19 Tests/day"}},
			},
		},
		{
			Title:  fmt.Sprintf("Doubling Time: %d day rolling window", window),
			XLabel: "Cumulative Cases",
			YLabel: "Doubling Time (days)",
			Traces: []PlotTrace{
				{Column: ReportRollingDoubled, XColumn: ReportCumCases, AnnotateLast: true, Style: TraceStyle{Color: "green", Width: 2, Label: "Alberta"}},
				{Column: "Calgary_" + RollingDoublingSuffix, XColumn: "Calgary_" + zone, AnnotateLast: true, Style: TraceStyle{Color: "orange", Width: 2, Label: "Calgary"}},
				{Column: "Edmonton_" + RollingDoublingSuffix, XColumn: "Edmonton_" + zone, AnnotateLast: true, Style: TraceStyle{Color: "blue", Width: 2, Label: "Edmonton"}},
			},
		},
	}
}
