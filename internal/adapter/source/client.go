package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("covid-alberta-etl/source")

// Client downloads the statistics page. It implements pipeline.Extractor.
type Client struct {
	url    string
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates a client for the page at url. Requests are not retried.
func NewClient(url string, timeout time.Duration, userAgent string, logger *slog.Logger) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html")
	return &Client{url: url, http: client, logger: logger}
}

// Fetch issues a single GET for the page and returns its body. Transport
// failures and non-2xx responses are errors.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "source:Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url", c.url)),
	)
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("fetch %s: %w", c.url, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode()))
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "unexpected status")
		return nil, fmt.Errorf("fetch %s: unexpected status %s", c.url, res.Status())
	}

	c.logger.Debug("fetched statistics page",
		"url", c.url,
		"status", res.StatusCode(),
		"bytes", len(res.Body()),
		"duration", res.Time(),
	)
	return res.Body(), nil
}

// Extract fetches and parses the page.
func (c *Client) Extract(ctx context.Context) (domain.Document, error) {
	body, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Parse(ctx, bytes.NewReader(body))
}
