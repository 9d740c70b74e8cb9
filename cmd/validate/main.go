// Command validate performs integrity checks over a directory of snapshot
// files written by the scrape command. It verifies that CSV and JSON copies
// agree, section tables hold integral counts, cumulative columns never
// decrease, doubling times are non-negative, and the combined report covers
// every section.
//
// Usage:
//
//	go run ./cmd/validate -dir data
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/filestore"
	"github.com/couchcryptid/covid-alberta-etl/internal/config"
	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
)

// snapshotFile is one table loaded from both of its encodings. Either may be
// nil when the file was not written.
type snapshotFile struct {
	base    string
	section domain.Section // empty for the combined report
	csv     *domain.Table
	json    *domain.Table
}

// table returns the CSV copy when present, since it preserves column order.
func (f snapshotFile) table() *domain.Table {
	if f.csv != nil {
		return f.csv
	}
	return f.json
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "data", "directory containing snapshot files")
	flag.Parse()

	if code := run(*dir, config.DefaultLayout().FileNames); code != 0 {
		os.Exit(code)
	}
}

func run(dir string, names config.FileNames) int {
	fmt.Println("=== Snapshot Integrity Validation ===")
	fmt.Println()

	files := make([]snapshotFile, 0, len(domain.Sections)+1)
	for _, s := range domain.Sections {
		f, err := loadSnapshot(dir, names.Section(s))
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", s, err)
			return 1
		}
		f.section = s
		files = append(files, f)
	}
	combined, err := loadSnapshot(dir, names.Combined)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load combined report: %v\n", err)
		return 1
	}
	files = append(files, combined)

	phases := []*phase{
		validateFormatParity(files),
		validateIntegralCounts(files[:len(files)-1]),
		validateCumulative(files),
		validateDoubling(combined),
		validateCoverage(files[:len(files)-1], combined),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	for _, f := range files {
		t := f.table()
		fmt.Printf("%-24s %4d days %3d columns\n", f.base, t.Len(), len(t.Columns()))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadSnapshot(dir, base string) (snapshotFile, error) {
	f := snapshotFile{base: base}

	csvFile, err := os.Open(filepath.Join(dir, base+".csv"))
	switch {
	case err == nil:
		f.csv, err = filestore.ReadCSV(csvFile)
		csvFile.Close()
		if err != nil {
			return f, fmt.Errorf("%s.csv: %w", base, err)
		}
	case !os.IsNotExist(err):
		return f, err
	}

	jsonFile, err := os.Open(filepath.Join(dir, base+".json"))
	switch {
	case err == nil:
		f.json, err = filestore.ReadJSON(jsonFile)
		jsonFile.Close()
		if err != nil {
			return f, fmt.Errorf("%s.json: %w", base, err)
		}
	case !os.IsNotExist(err):
		return f, err
	}

	if f.csv == nil && f.json == nil {
		return f, fmt.Errorf("neither %s.csv nor %s.json exists", base, base)
	}
	return f, nil
}

// ── Phases ──

func validateFormatParity(files []snapshotFile) *phase {
	p := &phase{name: "CSV and JSON agree"}
	for _, f := range files {
		if f.csv == nil || f.json == nil {
			continue
		}
		if f.csv.Len() != f.json.Len() {
			p.errorf("%s: csv has %d days, json has %d", f.base, f.csv.Len(), f.json.Len())
			continue
		}
		csvIndex, jsonIndex := f.csv.Index(), f.json.Index()
		for i := range csvIndex {
			if !csvIndex[i].Equal(jsonIndex[i]) {
				p.errorf("%s: row %d date %s in csv, %s in json", f.base, i, day(csvIndex[i]), day(jsonIndex[i]))
				break
			}
		}
		for _, col := range f.csv.Columns() {
			if !f.json.HasColumn(col) {
				p.errorf("%s: column %s missing from json", f.base, col)
				continue
			}
			for i := range csvIndex {
				a, b := f.csv.Value(i, col), f.json.Value(i, col)
				if !sameValue(a, b) {
					p.errorf("%s: %s on %s is %v in csv, %v in json", f.base, col, day(csvIndex[i]), a, b)
				}
			}
		}
		if len(f.json.Columns()) != len(f.csv.Columns()) {
			p.errorf("%s: csv has %d columns, json has %d", f.base, len(f.csv.Columns()), len(f.json.Columns()))
		}
	}
	return p
}

func validateIntegralCounts(files []snapshotFile) *phase {
	p := &phase{name: "Section counts are whole numbers"}
	for _, f := range files {
		t := f.table()
		for _, col := range t.Columns() {
			values, _ := t.Column(col)
			for i, v := range values {
				if math.IsNaN(v) || v != math.Trunc(v) {
					p.errorf("%s: %s row %d is %v", f.base, col, i, v)
				}
			}
		}
	}
	return p
}

func validateCumulative(files []snapshotFile) *phase {
	p := &phase{name: "Cumulative columns never decrease"}
	for _, f := range files {
		t := f.table()
		index := t.Index()
		for _, col := range t.Columns() {
			if !isCumulative(col) {
				continue
			}
			values, _ := t.Column(col)
			for i := 1; i < len(values); i++ {
				if values[i] < values[i-1] {
					p.errorf("%s: %s falls from %v to %v on %s", f.base, col, values[i-1], values[i], day(index[i]))
				}
			}
		}
	}
	return p
}

func validateDoubling(combined snapshotFile) *phase {
	p := &phase{name: "Doubling times are non-negative"}
	t := combined.table()
	for _, col := range t.Columns() {
		if !strings.HasSuffix(col, domain.DoublingSuffix) && !strings.HasSuffix(col, domain.RollingDoublingSuffix) {
			continue
		}
		values, _ := t.Column(col)
		for i, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				p.errorf("%s: %s row %d is %v", combined.base, col, i, v)
			}
		}
	}
	return p
}

func validateCoverage(sections []snapshotFile, combined snapshotFile) *phase {
	p := &phase{name: "Combined report covers every section"}
	report := combined.table()
	dates := make(map[string]bool, report.Len())
	for _, d := range report.Index() {
		dates[day(d)] = true
	}
	for _, f := range sections {
		missing := 0
		for _, d := range f.table().Index() {
			if !dates[day(d)] {
				missing++
			}
		}
		if missing > 0 {
			p.errorf("%s: %d dates absent from %s", f.base, missing, combined.base)
		}
	}

	for _, col := range []string{domain.ReportCumCases, domain.ReportDailyCases, domain.ColumnTotalTests} {
		if !report.HasColumn(col) {
			p.errorf("%s: missing column %s", combined.base, col)
		}
	}
	return p
}

// ── Helpers ──

func isCumulative(col string) bool {
	// Active cases fall as cases resolve.
	if col == "Active_cum" {
		return false
	}
	for _, suffix := range []string{"_cum", "_" + domain.RegionCumulative, "_" + domain.DefaultCumCasesSuffix, domain.ColumnCumCases, domain.ReportCumCases} {
		if strings.HasSuffix(col, suffix) {
			return true
		}
	}
	return false
}

func day(t time.Time) string { return t.Format(domain.DateLayout) }

func sameValue(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}
