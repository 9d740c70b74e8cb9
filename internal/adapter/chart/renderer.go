package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/couchcryptid/covid-alberta-etl/internal/observability"
	"github.com/gosimple/slug"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToPlot is returned when none of a figure's columns are present
// or the table is too short to span an axis.
var ErrNothingToPlot = errors.New("nothing to plot")

// namedColors maps the color names used by figure styles to hex values.
var namedColors = map[string]string{
	"green":    "008000",
	"orange":   "ffa500",
	"blue":     "0000ff",
	"red":      "ff0000",
	"black":    "000000",
	"grey":     "808080",
	"gray":     "808080",
	"darkgrey": "a9a9a9",
	"darkgray": "a9a9a9",
	"purple":   "800080",
}

var pageTemplate = template.Must(template.New("chart").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{.SVG}}
<p>Generated {{.Generated}}</p>
</body>
</html>
`))

// Renderer draws figures over the combined report. It implements pipeline.Loader.
type Renderer struct {
	dir      string
	trimDays int
	figures  []domain.Figure
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewRenderer creates a renderer that writes one HTML page per figure into dir.
func NewRenderer(dir string, trimDays int, figures []domain.Figure, metrics *observability.Metrics, logger *slog.Logger) *Renderer {
	return &Renderer{dir: dir, trimDays: trimDays, figures: figures, metrics: metrics, logger: logger}
}

// Name identifies the loader in logs.
func (r *Renderer) Name() string { return "chart" }

// Path returns the file a figure is written to.
func (r *Renderer) Path(fig domain.Figure) string {
	return filepath.Join(r.dir, slug.Make(fig.Title)+".html")
}

// Load renders every figure from the snapshot's combined report.
func (r *Renderer) Load(ctx context.Context, snap domain.Snapshot) error {
	if snap.Combined == nil {
		return nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}

	table := snap.Combined.DropLast(r.trimDays)
	for _, fig := range r.figures {
		if err := ctx.Err(); err != nil {
			return err
		}
		svg, title, err := r.Render(table, fig)
		if errors.Is(err, ErrNothingToPlot) {
			r.logger.Warn("skipping chart", "figure", fig.Title, "reason", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("render %q: %w", fig.Title, err)
		}

		var page bytes.Buffer
		err = pageTemplate.Execute(&page, struct {
			Title     string
			SVG       template.HTML
			Generated string
		}{
			Title:     title,
			SVG:       template.HTML(svg), //nolint:gosec // produced by go-chart, not user input
			Generated: snap.ScrapedAt.Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("render page %q: %w", fig.Title, err)
		}
		path := r.Path(fig)
		if err := os.WriteFile(path, page.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		r.metrics.FilesWritten.WithLabelValues("html").Inc()
		r.logger.Info("chart written", "run_id", snap.RunID, "figure", fig.Title, "path", path)
	}
	return nil
}

// Render draws fig as SVG and returns it with the dated title. Traces whose
// columns are missing are skipped with a warning.
func (r *Renderer) Render(table *domain.Table, fig domain.Figure) ([]byte, string, error) {
	graph, err := r.build(table, fig)
	if err != nil {
		return nil, "", err
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.SVG, &buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), graph.Title, nil
}

// build assembles the chart for fig without rendering it.
func (r *Renderer) build(table *domain.Table, fig domain.Figure) (gochart.Chart, error) {
	if table.Len() < 2 {
		return gochart.Chart{}, fmt.Errorf("%w: %d rows", ErrNothingToPlot, table.Len())
	}
	index := table.Index()
	title := index[len(index)-1].Format("January 02") + " - " + fig.Title

	var series, annotations []gochart.Series
	var xs, ys, y2s []float64
	timeAxis := true
	for _, tr := range fig.Traces {
		yv, ok := table.Column(tr.Column)
		if !ok {
			r.logger.Warn("chart column missing", "figure", fig.Title, "column", tr.Column)
			continue
		}
		axis := gochart.YAxisPrimary
		if tr.Axis == domain.AxisSecondary {
			axis = gochart.YAxisSecondary
			y2s = append(y2s, yv...)
		} else {
			ys = append(ys, yv...)
		}

		var s interface {
			gochart.Series
			gochart.ValuesProvider
		}
		if tr.XColumn == "" {
			s = gochart.TimeSeries{
				Name:    tr.Style.Label,
				XValues: index,
				YValues: yv,
				YAxis:   axis,
				Style:   traceStyle(tr.Style),
			}
		} else {
			xv, ok := table.Column(tr.XColumn)
			if !ok {
				r.logger.Warn("chart column missing", "figure", fig.Title, "column", tr.XColumn)
				continue
			}
			timeAxis = false
			xs = append(xs, xv...)
			s = gochart.ContinuousSeries{
				Name:    tr.Style.Label,
				XValues: xv,
				YValues: yv,
				YAxis:   axis,
				Style:   traceStyle(tr.Style),
			}
		}

		if tr.Kind == domain.TraceBar {
			// Bars rise from zero, so the axis has to include it.
			if axis == gochart.YAxisSecondary {
				y2s = append(y2s, 0)
			} else {
				ys = append(ys, 0)
			}
			series = append(series, gochart.HistogramSeries{
				Name:        tr.Style.Label,
				Style:       barStyle(tr.Style),
				YAxis:       axis,
				InnerSeries: s,
			})
		} else {
			series = append(series, s)
		}
		if tr.AnnotateLast {
			annotations = append(annotations, lastValueAnnotation(s, axis))
		}
	}
	if len(series) == 0 {
		return gochart.Chart{}, fmt.Errorf("%w: no columns of %q present", ErrNothingToPlot, fig.Title)
	}

	graph := gochart.Chart{
		Title:  title,
		Width:  1024,
		Height: 576,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis:  gochart.XAxis{Name: fig.XLabel},
		YAxis:  gochart.YAxis{Name: fig.YLabel, Range: paddedRange(ys)},
		Series: append(series, annotations...),
	}
	if timeAxis {
		graph.XAxis.ValueFormatter = gochart.TimeValueFormatterWithFormat("01/02")
	} else {
		graph.XAxis.Range = paddedRange(xs)
	}
	if len(y2s) > 0 {
		graph.YAxisSecondary = gochart.YAxis{Name: fig.Y2Label, Range: paddedRange(y2s)}
	}
	return graph, nil
}

func traceStyle(s domain.TraceStyle) gochart.Style {
	st := gochart.Style{StrokeWidth: s.Width}
	if hex, ok := namedColors[strings.ToLower(s.Color)]; ok {
		st.StrokeColor = drawing.ColorFromHex(hex)
	} else if strings.HasPrefix(s.Color, "#") {
		st.StrokeColor = drawing.ColorFromHex(strings.TrimPrefix(s.Color, "#"))
	}
	return st
}

func barStyle(s domain.TraceStyle) gochart.Style {
	st := traceStyle(s)
	st.FillColor = st.StrokeColor.WithAlpha(160)
	return st
}

// lastValueAnnotation labels the final point of s with its value to one decimal.
func lastValueAnnotation(s gochart.ValuesProvider, axis gochart.YAxisType) gochart.AnnotationSeries {
	a := gochart.LastValueAnnotationSeries(s, func(v interface{}) string {
		return gochart.FloatValueFormatterWithFormat(v, "%.1f")
	})
	a.YAxis = axis
	return a
}

// paddedRange spans values, widening a flat range so the axis is never empty.
func paddedRange(values []float64) *gochart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return &gochart.ContinuousRange{Min: 0, Max: 1}
	}
	if hi <= lo {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}
