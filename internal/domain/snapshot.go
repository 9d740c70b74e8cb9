package domain

import "time"

// Snapshot is the output of one scrape run.
type Snapshot struct {
	RunID     string
	ScrapedAt time.Time
	Totals    *Table
	Regions   *Table
	Testing   *Table
	Combined  *Table
}

// SectionTable returns the normalized table of a page section.
func (s Snapshot) SectionTable(sec Section) *Table {
	switch sec {
	case SectionTotals:
		return s.Totals
	case SectionRegions:
		return s.Regions
	case SectionTesting:
		return s.Testing
	}
	return nil
}
