// Package source fetches the medal table from an ordered list of pages, retrying each
// page and running every extraction strategy on what it returns.
package source

import (
	"context"
	"errors"
	"medaltable/internal/components/assert"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/extract"
	"medaltable/internal/medals"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_orchestrator_fetch    = "orchestrator.fetch"
	report_orchestrator_extract  = "orchestrator.extract"
	report_orchestrator_strategy = "orchestrator.strategy"
)

var tracer = otel.Tracer("medaltable/internal/source")

// DefaultSources is the primary results site, a text mirror of it, a secondary results
// site and a text mirror of that, in order of reliability.
var DefaultSources = []string{
	"https://www.olympics.com/en/milano-cortina-2026/medals",
	"https://r.jina.ai/http://www.olympics.com/en/milano-cortina-2026/medals",
	"https://www.espn.com/olympics/winter/2026/medals",
	"https://r.jina.ai/http://www.espn.com/olympics/winter/2026/medals",
}

const (
	DefaultAttempts   = 3
	DefaultRetryDelay = time.Second
	DefaultMinRows    = 5
)

// Fetcher returns the text of the page at url.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

type Options struct {
	Sources    []string
	Attempts   int
	// RetryDelay is multiplied by the attempt number between retries. Zero means
	// DefaultRetryDelay, a negative delay retries immediately.
	RetryDelay time.Duration
	// MinRows is the number of rows a page must yield to be accepted.
	MinRows int
}

func (o Options) withDefaults() Options {
	if len(o.Sources) == 0 {
		o.Sources = DefaultSources
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	switch {
	case o.RetryDelay == 0:
		o.RetryDelay = DefaultRetryDelay
	case o.RetryDelay < 0:
		o.RetryDelay = 0
	}
	if o.MinRows <= 0 {
		o.MinRows = DefaultMinRows
	}
	return o
}

// Result is the accepted row set and where it came from.
type Result struct {
	Source   string
	Strategy string
	Rows     []medals.Row
}

type Orchestrator struct {
	fetcher    Fetcher
	strategies []extract.Strategy
	opts       Options
	tel        telemetry.API
	wait       func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(
	fetcher Fetcher,
	strategies []extract.Strategy,
	opts Options,
	tel telemetry.API,
) *Orchestrator {
	assert.NotNil(fetcher)
	assert.NotNil(tel)
	if len(strategies) == 0 {
		panic("source: at least one extraction strategy is required")
	}

	return &Orchestrator{
		fetcher:    fetcher,
		strategies: strategies,
		opts:       opts.withDefaults(),
		tel:        telemetry.NewScopedAPI("source", tel),
		wait:       sleepContext,
	}
}

// Fetch tries each source in order and returns the first one whose best strategy yields
// at least MinRows rows. Sources are never merged.
//
// When no source qualifies the error is an *AggregateFetchError. If every source failed
// to be retrieved at all, a *TransportExhaustedError carrying the last *TransportError
// and the aggregate is returned instead.
func (o *Orchestrator) Fetch(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Fetch")
	defer span.End()

	var failures []error
	var lastTransport *TransportError
	transportFailures := 0

	for _, url := range o.opts.Sources {
		content, err := o.fetchWithRetry(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				span.SetStatus(codes.Error, "canceled")
				return Result{}, ctx.Err()
			}
			failures = append(failures, err)
			transportFailures++
			errors.As(err, &lastTransport)
			continue
		}

		result := o.extract(ctx, url, content)
		if len(result.Rows) >= o.opts.MinRows {
			span.SetAttributes(
				attribute.String("source", result.Source),
				attribute.String("strategy", result.Strategy),
				attribute.Int("rows", len(result.Rows)),
			)
			return result, nil
		}

		insufficient := &ParseInsufficientError{URL: url, Rows: len(result.Rows)}
		o.tel.ReportWarning(report_orchestrator_extract, insufficient)
		failures = append(failures, insufficient)
	}

	aggregate := &AggregateFetchError{Failures: failures}
	span.SetStatus(codes.Error, aggregate.Error())
	if transportFailures > 0 && transportFailures == len(failures) && lastTransport != nil {
		return Result{}, &TransportExhaustedError{Last: lastTransport, Aggregate: aggregate}
	}
	return Result{}, aggregate
}

func (o *Orchestrator) fetchWithRetry(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= o.opts.Attempts; attempt++ {
		content, err := o.fetchOnce(ctx, url, attempt)
		if err == nil {
			return content, nil
		}
		lastErr = err
		o.tel.ReportWarning(report_orchestrator_fetch, url, attempt, err)

		if attempt == o.opts.Attempts {
			break
		}
		err = o.wait(ctx, time.Duration(attempt)*o.opts.RetryDelay)
		if err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (o *Orchestrator) fetchOnce(ctx context.Context, url string, attempt int) (string, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.fetchOnce")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", url),
		attribute.Int("attempt", attempt),
	)

	content, err := o.fetcher.FetchPage(ctx, url)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", asTransportError(url, err)
	}
	span.SetAttributes(attribute.Int("bytes", len(content)))
	return content, nil
}

// extract runs every strategy on content and keeps the one with the most rows, the
// earlier strategy wins ties.
func (o *Orchestrator) extract(ctx context.Context, url, content string) Result {
	best := Result{Source: url}
	for i, strategy := range o.strategies {
		rows := strategy.Extract(ctx, content)
		o.tel.ReportDebug(report_orchestrator_strategy, url, strategy.Name(), len(rows))
		if i == 0 || len(rows) > len(best.Rows) {
			best.Strategy = strategy.Name()
			best.Rows = rows
		}
	}

	best.Rows = medals.Dedupe(best.Rows)
	medals.Sort(best.Rows)
	return best
}

type statusCoder interface {
	HTTPStatus() int
}

func asTransportError(url string, err error) error {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return err
	}
	wrapped := &TransportError{URL: url, Err: err}
	var status statusCoder
	if errors.As(err, &status) {
		wrapped.StatusCode = status.HTTPStatus()
	}
	return wrapped
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
