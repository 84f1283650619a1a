// Package refresh runs a single update of the medals snapshot: fetch, apply the failure
// policy, write the artifact and archive it.
package refresh

import (
	"context"
	"fmt"
	"medaltable/internal/components/assert"
	"medaltable/internal/components/chrono"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/snapshot"
	"medaltable/internal/source"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_service_keep_stale = "service.keep-stale"
	report_service_archive    = "service.archive"
	report_service_rows       = "service.rows"
)

var tracer = otel.Tracer("medaltable/internal/refresh")

// Policy decides what happens when no source produced a usable table.
type Policy string

const (
	// PolicyConservative keeps an existing snapshot that has rows and reports success.
	PolicyConservative Policy = "conservative"
	// PolicyStrict always fails.
	PolicyStrict Policy = "strict"
)

func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyConservative:
		return PolicyConservative, nil
	case PolicyStrict:
		return PolicyStrict, nil
	}
	return "", fmt.Errorf("unknown failure policy %q (expected %q or %q)", value, PolicyConservative, PolicyStrict)
}

type Fetcher interface {
	Fetch(ctx context.Context) (source.Result, error)
}

// Archive records every snapshot that gets written.
type Archive interface {
	Record(ctx context.Context, snap snapshot.Snapshot) (int64, error)
}

type Outcome struct {
	Snapshot snapshot.Snapshot
	// KeptStale is set when fetching failed and the existing snapshot was left in place,
	// Reason holds the fetch error in that case.
	KeptStale bool
	Reason    error
}

type Service struct {
	fetcher Fetcher
	store   snapshot.Store
	archive Archive
	policy  Policy
	time    chrono.API
	tel     telemetry.API
}

// NewService creates a Service, archive may be nil.
func NewService(
	fetcher Fetcher,
	store snapshot.Store,
	archive Archive,
	policy Policy,
	time chrono.API,
	tel telemetry.API,
) Service {
	assert.NotNil(fetcher)
	assert.NotNil(time)
	assert.NotNil(tel)
	if policy == "" {
		policy = PolicyConservative
	}

	return Service{
		fetcher: fetcher,
		store:   store,
		archive: archive,
		policy:  policy,
		time:    time,
		tel:     telemetry.NewScopedAPI("refresh", tel),
	}
}

func (s Service) Run(ctx context.Context) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "Service.Run")
	defer span.End()
	span.SetAttributes(attribute.String("policy", string(s.policy)))

	result, err := s.fetcher.Fetch(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() == nil && s.policy == PolicyConservative && s.store.HasRows() {
			s.tel.ReportWarning(report_service_keep_stale, s.store.Path(), err)
			existing, readErr := s.store.Read()
			if readErr != nil {
				s.tel.ReportDebug(report_service_keep_stale, readErr)
			}
			return Outcome{Snapshot: existing, KeptStale: true, Reason: err}, nil
		}
		return Outcome{}, fmt.Errorf("refresh medals: %w", err)
	}

	snap := snapshot.Build(result.Source, result.Rows, s.time.Now())
	err = s.store.Write(snap)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, fmt.Errorf("write snapshot: %w", err)
	}
	s.tel.ReportCount(report_service_rows, int64(snap.RowCount))

	if s.archive != nil {
		_, err = s.archive.Record(ctx, snap)
		if err != nil {
			s.tel.ReportWarning(report_service_archive, err)
		}
	}

	span.SetAttributes(
		attribute.String("source", result.Source),
		attribute.String("strategy", result.Strategy),
		attribute.Int("rows", snap.RowCount),
	)
	return Outcome{Snapshot: snap}, nil
}
