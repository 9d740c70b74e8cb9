package domain

import "fmt"

// Combined-report column names.
const (
	ReportCumCases       = "Ab_cumCases"
	ReportDoubling       = "Ab_dtime"
	ReportRollingDoubled = "Ab_dtime_rw"
	ReportDailyCases     = "Ab_cases"
)

var reportRenames = map[string]string{
	ColumnCumCases:        ReportCumCases,
	DoublingSuffix:        ReportDoubling,
	RollingDoublingSuffix: ReportRollingDoubled,
	ColumnDailyCount:      ReportDailyCases,
}

// ReportOptions configures BuildReport.
type ReportOptions struct {
	// RegionSuffix is the suffix of the region table columns, RegionCumulative
	// or RegionNewCases.
	RegionSuffix string
	Window       int
}

// RegionCumulativeSuffix returns the suffix of the cumulative zone columns in
// a report built with the given region suffix.
func RegionCumulativeSuffix(regionSuffix string) string {
	if regionSuffix == RegionNewCases {
		return DefaultCumCasesSuffix
	}
	return regionSuffix
}

// BuildReport joins the normalized section tables into one table holding
// province totals, zone cumulative counts, doubling times for both, and the
// daily test total. Province columns are renamed with an "Ab_" prefix.
func BuildReport(totals, regions, testing *Table, opts ReportOptions) (*Table, error) {
	suffix := opts.RegionSuffix
	if suffix == "" {
		suffix = RegionCumulative
	}

	totalDT, err := DoublingTimes(totals, DoublingOptions{ColumnSuffix: ColumnCumCases, Window: opts.Window})
	if err != nil {
		return nil, fmt.Errorf("province doubling times: %w", err)
	}

	zoneCum := regions.Filter(suffix)
	if suffix == RegionNewCases {
		zoneCum, err = CumulativeSums(regions, RegionNewCases, DefaultCumCasesSuffix, false)
		if err != nil {
			return nil, fmt.Errorf("zone cumulative sums: %w", err)
		}
	}
	zoneDT, err := DoublingTimes(zoneCum, DoublingOptions{
		ColumnSuffix: RegionCumulativeSuffix(suffix),
		Window:       opts.Window,
	})
	if err != nil {
		return nil, fmt.Errorf("zone doubling times: %w", err)
	}

	combined, err := JoinTables(totals, totalDT, zoneCum, zoneDT, testing.RowSum(ColumnTotalTests))
	if err != nil {
		return nil, fmt.Errorf("join report: %w", err)
	}
	return combined.FillMissing(0).Rename(reportRenames)
}
