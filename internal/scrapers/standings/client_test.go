package standings

import (
	"context"
	"errors"
	"fmt"
	"medaltable/internal/components/telemetry"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchPage(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		switch r.URL.Path {
		case "/medals":
			fmt.Fprint(w, "<html><body>NOR Norway 10 5 3 18</body></html>")
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	tel := telemetry.NewRecorder()
	client := NewClient(Options{UserAgent: "medaltable-test"}, tel)

	body, err := client.FetchPage(context.Background(), server.URL+"/medals")
	require.NoError(t, err)
	require.Equal(t, "<html><body>NOR Norway 10 5 3 18</body></html>", body)
	require.Equal(t, "medaltable-test", gotHeaders.Get("User-Agent"))
	require.Equal(t, server.URL+"/", gotHeaders.Get("Referer"))
	require.NotEmpty(t, gotHeaders.Get("Accept"))

	_, err = client.FetchPage(context.Background(), server.URL+"/missing")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.Equal(t, server.URL+"/missing", statusErr.URL)
	require.True(t, tel.Has("warning", "standings_client: "+report_client_fetch_page))
}

func TestFetchPageCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(Options{Timeout: 10 * time.Second}, telemetry.NewRecorder())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchPage(ctx, server.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetchPageDump(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "NOR Norway 10 5 3 18")
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "pages")
	dump, err := NewPageDump(dir)
	require.NoError(t, err)

	client := NewClient(Options{Dump: &dump}, telemetry.NewRecorder())
	_, err = client.FetchPage(context.Background(), server.URL+"/en/medals")
	require.NoError(t, err)
	_, err = client.FetchPage(context.Background(), server.URL+"/en/medals")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	contents, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Equal(t, "NOR Norway 10 5 3 18", string(contents))
}

func TestFilename(t *testing.T) {
	require.Equal(
		t,
		"001-www.olympics.com_en_milano-cortina-2026_medals.txt",
		Filename(1, "https://www.olympics.com/en/milano-cortina-2026/medals"),
	)
	require.Equal(
		t,
		"012-r.jina.ai_http_www.espn.com_olympics.txt",
		Filename(12, "https://r.jina.ai/http://www.espn.com/olympics"),
	)
}
