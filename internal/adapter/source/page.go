package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"go.opentelemetry.io/otel/codes"
)

// DefaultSectionClass is the class R Markdown gives second-level sections.
const DefaultSectionClass = "level2"

// Page is a parsed statistics page.
type Page struct {
	doc *goquery.Document
}

// SectionInfo describes a candidate section element.
type SectionInfo struct {
	ID      string
	Heading string
	Attrs   map[string]string
}

// Parse builds a page from HTML.
func Parse(ctx context.Context, r io.Reader) (*Page, error) {
	_, span := tracer.Start(ctx, "source:Parse")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &Page{doc: doc}, nil
}

// SectionScripts returns the text of every script inside the first element
// whose id equals id, in document order.
func (p *Page) SectionScripts(id string) ([]string, error) {
	section := p.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("id", "") == id
	}).First()
	if section.Length() == 0 {
		return nil, fmt.Errorf("%w: no element with id %q", domain.ErrSectionNotFound, id)
	}

	var scripts []string
	section.Find("script").Each(func(_ int, s *goquery.Selection) {
		scripts = append(scripts, s.Text())
	})
	return scripts, nil
}

// SectionsByClass lists the div elements carrying class, so operators can
// find the identifiers of a changed page.
func (p *Page) SectionsByClass(class string) []SectionInfo {
	var out []SectionInfo
	p.doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.HasClass(class)
	}).Each(func(_ int, s *goquery.Selection) {
		info := SectionInfo{
			ID:      s.AttrOr("id", ""),
			Heading: strings.TrimSpace(s.Find("h1, h2, h3").First().Text()),
			Attrs:   map[string]string{},
		}
		for _, a := range s.Nodes[0].Attr {
			info.Attrs[a.Key] = a.Val
		}
		out = append(out, info)
	})
	return out
}
