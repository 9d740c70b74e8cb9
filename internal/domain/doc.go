// Package domain models the Alberta COVID-19 statistics published at
// https://covid19stats.alberta.ca/.
//
// # Data Source
//
// The statistics page is an R Markdown document. Each chart is an htmlwidgets
// plotly widget whose data is inlined as a JSON script inside the section that
// holds it. The sections of interest are identified by their element id:
//
//	totals   -> "cases"                (cumulative, daily and case-status charts)
//	regions  -> "geospatial"           (one trace per health zone)
//	testing  -> "laboratory-testing"   (tests per day)
//
// Identifiers and figure positions have changed between page revisions, so
// both are configurable. See [DefaultSectionIDs] and [DefaultFigureOrder].
//
// # Widget Payload
//
//	{"x": {"data": [{"name": "Confirmed", "x": ["2020-03-05", ...], "y": [1, ...]}, ...]}}
//
// "x" holds ISO dates. "y" may contain null for a missing observation, which
// becomes zero once a table is normalized.
//
// # Column Naming
//
// Columns follow "{scope}_{suffix}": "Confirmed_count", "Active_cum",
// "Calgary_cumulative". Derived doubling-time columns replace the cumulative
// suffix with "dtime" (anchored) and "dtime_rw" (rolling window).
//
// # Doubling Time
//
// For a cumulative count growing from v0 to v1 over t days, the doubling time
// is t*ln2/ln(v1/v0). Ratios at or below one mean no growth and are reported
// as 0, so 0 reads as "undefined" rather than "instant doubling".
package domain
