// Command genmock writes a synthetic statistics page with the same section
// ids and htmlwidgets payloads as the live page. Case counts follow a
// logistic curve so doubling times rise as the outbreak slows. The page is
// run through the real parser and transformer before it is written, so a
// fixture that the pipeline cannot read is never produced.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/statistics.html -days 60
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/source"
	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/couchcryptid/covid-alberta-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

var baseDate = time.Date(2020, time.March, 5, 0, 0, 0, 0, time.UTC)

// zone is a health zone and its share of provincial cases.
type zone struct {
	name  string
	share float64
}

var zones = []zone{
	{name: "Calgary Zone", share: 0.55},
	{name: "Edmonton Zone", share: 0.30},
	{name: "North Zone", share: 0.07},
	{name: "Central Zone", share: 0.05},
	{name: "South Zone", share: 0.03},
}

// curve holds the generated provincial series, one value per day.
type curve struct {
	dates      []string
	cumulative []float64
	confirmed  []float64
	probable   []float64
	active     []float64
	died       []float64
	recovered  []float64
	tests      []float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the generated HTML page")
	days := flag.Int("days", 60, "number of days to generate")
	peak := flag.Float64("peak", 8000, "final cumulative case count the curve approaches")
	rate := flag.Float64("rate", 0.18, "logistic growth rate per day")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *days < 2 {
		return fmt.Errorf("-days must be at least 2")
	}

	// Fixed clock so the generated-at stamp is reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate.AddDate(0, 0, *days)))
	defer domain.SetClock(nil)

	c := generate(*days, *peak, *rate)
	page, err := render(c)
	if err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}

	if err := check(page); err != nil {
		return fmt.Errorf("generated page does not transform: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*out, page, 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s: %d days, %.0f cumulative cases", *out, *days, c.cumulative[len(c.cumulative)-1])
	return nil
}

func generate(days int, peak, rate float64) curve {
	c := curve{}
	mid := float64(days) / 2
	for i := range days {
		c.dates = append(c.dates, baseDate.AddDate(0, 0, i).Format(domain.DateLayout))

		cum := math.Max(1, math.Round(peak/(1+math.Exp(-rate*(float64(i)-mid)))))
		if i > 0 && cum < c.cumulative[i-1] {
			cum = c.cumulative[i-1]
		}
		c.cumulative = append(c.cumulative, cum)

		daily := cum
		if i > 0 {
			daily = cum - c.cumulative[i-1]
		}
		probable := math.Floor(daily * 0.1)
		c.confirmed = append(c.confirmed, daily-probable)
		c.probable = append(c.probable, probable)

		// Cases resolve after roughly two weeks; one percent are fatal.
		resolved := 0.0
		if i >= 14 {
			resolved = c.cumulative[i-14]
		}
		died := math.Floor(resolved * 0.01)
		c.died = append(c.died, died)
		c.recovered = append(c.recovered, resolved-died)
		c.active = append(c.active, cum-resolved)

		c.tests = append(c.tests, math.Round(500+daily*25))
	}
	return c
}

func trace(name string, dates []string, values []float64) domain.WidgetTrace {
	y := make([]*float64, len(values))
	for i := range values {
		y[i] = &values[i]
	}
	return domain.WidgetTrace{Name: name, X: dates, Y: y}
}

func widget(traces ...domain.WidgetTrace) (template.JS, error) {
	var p domain.WidgetPayload
	p.X.Data = traces
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil //nolint:gosec // generated from numeric data only
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<title>COVID-19 Alberta statistics</title>
<meta name="generated" content="{{.Generated}}">
</head>
<body>
{{range .Sections}}<div class="section level2" id="{{.ID}}">
<h2>{{.Heading}}</h2>
{{range .Widgets}}<script type="application/json">{{.}}</script>
{{end}}</div>
{{end}}</body>
</html>
`))

type pageSection struct {
	ID      string
	Heading string
	Widgets []template.JS
}

func render(c curve) ([]byte, error) {
	ids := domain.DefaultSectionIDs()
	order := domain.DefaultFigureOrder()

	figures := map[int][]domain.WidgetTrace{
		order[domain.FigureCumCases]:   {trace("Cases", c.dates, c.cumulative)},
		order[domain.FigureCaseStatus]: {trace("Active", c.dates, c.active), trace("Died", c.dates, c.died), trace("Recovered", c.dates, c.recovered)},
		order[domain.FigureDailyCases]: {trace("Confirmed", c.dates, c.confirmed), trace("Probable", c.dates, c.probable)},
	}
	count := 0
	for pos := range figures {
		count = max(count, pos+1)
	}

	cases := pageSection{ID: ids[domain.SectionTotals], Heading: "Cases"}
	for pos := range count {
		traces, ok := figures[pos]
		if !ok {
			// Positions the pipeline skips still hold a widget on the real page.
			traces = []domain.WidgetTrace{{Name: "Age group", X: []string{"0-9", "10-19"}, Y: []*float64{ptr(1), ptr(3)}}}
		}
		w, err := widget(traces...)
		if err != nil {
			return nil, err
		}
		cases.Widgets = append(cases.Widgets, w)
	}

	zoneTraces := make([]domain.WidgetTrace, 0, len(zones))
	for _, z := range zones {
		values := make([]float64, len(c.cumulative))
		for i, v := range c.cumulative {
			values[i] = math.Floor(v * z.share)
		}
		zoneTraces = append(zoneTraces, trace(z.name, c.dates, values))
	}
	geo, err := widget(zoneTraces...)
	if err != nil {
		return nil, err
	}
	labs, err := widget(trace("Tests", c.dates, c.tests))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, map[string]any{
		"Generated": domain.Now().Format(time.RFC3339),
		"Sections": []pageSection{
			cases,
			{ID: ids[domain.SectionRegions], Heading: "Geospatial", Widgets: []template.JS{geo}},
			{ID: ids[domain.SectionTesting], Heading: "Laboratory testing", Widgets: []template.JS{labs}},
		},
	})
	return buf.Bytes(), err
}

func check(page []byte) error {
	ctx := context.Background()
	doc, err := source.Parse(ctx, bytes.NewReader(page))
	if err != nil {
		return err
	}
	t := pipeline.NewTransformer(pipeline.TransformOptions{
		SectionIDs:   domain.DefaultSectionIDs(),
		FigureOrder:  domain.DefaultFigureOrder(),
		RegionSeries: domain.RegionCumulative,
		Window:       domain.WindowFromIncubation(domain.DefaultIncubationPeriod),
	}, slog.New(slog.DiscardHandler))
	snap, err := t.Transform(ctx, doc)
	if err != nil {
		return err
	}
	log.Printf("combined report: %d days, %d columns", snap.Combined.Len(), len(snap.Combined.Columns()))
	return nil
}

func ptr(v float64) *float64 { return &v }
