package refresh

import (
	"context"
	"errors"
	"medaltable/internal/archive"
	"medaltable/internal/components/chrono"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/extract"
	"medaltable/internal/medals"
	"medaltable/internal/registry"
	"medaltable/internal/scrapers/standings"
	"medaltable/internal/snapshot"
	"medaltable/internal/source"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	result source.Result
	err    error
}

func (f fakeFetcher) Fetch(ctx context.Context) (source.Result, error) {
	return f.result, f.err
}

var fetchedAt = time.Date(2026, time.February, 10, 12, 30, 0, 0, time.UTC)

var liveRows = []medals.Row{
	{Country: "Norway", Noc: "NOR", Gold: 10, Silver: 5, Bronze: 3, Total: 18},
	{Country: "United States", Noc: "USA", Gold: 8, Silver: 4, Bronze: 2, Total: 14},
	{Country: "Germany", Noc: "GER", Gold: 7, Silver: 6, Bronze: 1, Total: 14},
	{Country: "Italy", Noc: "ITA", Gold: 4, Silver: 4, Bronze: 4, Total: 12},
	{Country: "Canada", Noc: "CAN", Gold: 3, Silver: 2, Bronze: 5, Total: 10},
}

var fetchFailure = &source.AggregateFetchError{Failures: []error{
	&source.ParseInsufficientError{URL: "https://example.com/medals", Rows: 2},
}}

func newStore(t *testing.T) snapshot.Store {
	return snapshot.NewStore(filepath.Join(t.TempDir(), "medals.json"), telemetry.NewRecorder())
}

func TestParsePolicy(t *testing.T) {
	for input, expected := range map[string]Policy{
		"":             PolicyConservative,
		"conservative": PolicyConservative,
		" Strict ":     PolicyStrict,
	} {
		policy, err := ParsePolicy(input)
		require.NoError(t, err)
		require.Equal(t, expected, policy)
	}

	_, err := ParsePolicy("lenient")
	require.Error(t, err)
}

func TestRunWritesSnapshotAndArchives(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	history, err := archive.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer history.Close()

	tel := telemetry.NewRecorder()
	service := NewService(
		fakeFetcher{result: source.Result{Source: "https://example.com/medals", Strategy: "structured", Rows: liveRows}},
		store,
		history,
		PolicyStrict,
		chrono.NewFixedImpl(fetchedAt),
		tel,
	)

	outcome, err := service.Run(ctx)
	require.NoError(t, err)
	require.False(t, outcome.KeptStale)

	expected := snapshot.Snapshot{
		Source:    "https://example.com/medals",
		FetchedAt: "2026-02-10T12:30:00.000Z",
		RowCount:  5,
		Rows:      liveRows,
	}
	if diff := cmp.Diff(expected, outcome.Snapshot); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	written, err := store.Read()
	require.NoError(t, err)
	if diff := cmp.Diff(expected, written); diff != "" {
		t.Fatalf("written snapshot mismatch (-want +got):\n%s", diff)
	}

	latest, ok, err := history.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, latest.RowCount)
	require.True(t, tel.Has("count", "refresh: "+report_service_rows))
}

func TestRunConservativeKeepsStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	previous := snapshot.Build("https://example.com/medals", liveRows[:2], fetchedAt.Add(-time.Hour))
	require.NoError(t, store.Write(previous))
	before, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	tel := telemetry.NewRecorder()
	service := NewService(
		fakeFetcher{err: fetchFailure},
		store,
		nil,
		PolicyConservative,
		chrono.NewFixedImpl(fetchedAt),
		tel,
	)

	outcome, err := service.Run(ctx)
	require.NoError(t, err)
	require.True(t, outcome.KeptStale)
	require.ErrorIs(t, outcome.Reason, source.ErrNoUsableRows)
	if diff := cmp.Diff(previous, outcome.Snapshot); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	require.True(t, tel.Has("warning", "refresh: "+report_service_keep_stale))

	after, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestRunConservativeKeepsStaleSnapshotWhenSourcesAreDown(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store := newStore(t)
	previous := snapshot.Build("https://example.com/medals", liveRows, fetchedAt.Add(-time.Hour))
	require.NoError(t, store.Write(previous))

	tel := telemetry.NewRecorder()
	orchestrator := source.NewOrchestrator(
		standings.NewClient(standings.Options{}, tel),
		extract.Default(registry.Default(), tel),
		source.Options{
			Sources:    []string{server.URL + "/primary", server.URL + "/mirror"},
			Attempts:   2,
			RetryDelay: -1,
		},
		tel,
	)
	service := NewService(
		orchestrator,
		store,
		nil,
		PolicyConservative,
		chrono.NewFixedImpl(fetchedAt),
		tel,
	)

	outcome, err := service.Run(ctx)
	require.NoError(t, err)
	require.True(t, outcome.KeptStale)
	require.False(t, errors.Is(outcome.Reason, source.ErrNoUsableRows))

	var transportErr *source.TransportError
	require.ErrorAs(t, outcome.Reason, &transportErr)
	require.Equal(t, server.URL+"/mirror", transportErr.URL)
	require.Equal(t, http.StatusServiceUnavailable, transportErr.StatusCode)

	var aggregate *source.AggregateFetchError
	require.ErrorAs(t, outcome.Reason, &aggregate)
	require.Len(t, aggregate.Failures, 2)

	if diff := cmp.Diff(previous, outcome.Snapshot); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	require.True(t, tel.Has("warning", "refresh: "+report_service_keep_stale))
}

func TestRunConservativeFailsWithoutSnapshot(t *testing.T) {
	ctx := context.Background()

	{
		service := NewService(
			fakeFetcher{err: fetchFailure},
			newStore(t),
			nil,
			PolicyConservative,
			chrono.NewFixedImpl(fetchedAt),
			telemetry.NewRecorder(),
		)
		_, err := service.Run(ctx)
		var aggregate *source.AggregateFetchError
		require.ErrorAs(t, err, &aggregate)
	}
	{
		store := newStore(t)
		require.NoError(t, store.Write(snapshot.Build("https://example.com/medals", nil, fetchedAt)))

		service := NewService(
			fakeFetcher{err: fetchFailure},
			store,
			nil,
			PolicyConservative,
			chrono.NewFixedImpl(fetchedAt),
			telemetry.NewRecorder(),
		)
		_, err := service.Run(ctx)
		require.ErrorIs(t, err, source.ErrNoUsableRows)
	}
}

func TestRunStrictPropagates(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Write(snapshot.Build("https://example.com/medals", liveRows, fetchedAt)))

	transportErr := &source.TransportError{URL: "https://example.com/medals", StatusCode: 503}
	service := NewService(
		fakeFetcher{err: transportErr},
		store,
		nil,
		PolicyStrict,
		chrono.NewFixedImpl(fetchedAt),
		telemetry.NewRecorder(),
	)

	_, err := service.Run(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, transportErr))
	require.True(t, store.HasRows())
}
