// Package snapshot reads and writes the medals.json artifact consumed downstream.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"medaltable/internal/components/assert"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/medals"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const report_store_cleanup = "store.cleanup"

// TimeFormat renders UTC instants with millisecond precision and a "Z" suffix, the form
// consumers of the artifact expect.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DefaultFilename is the name of the artifact next to the program's parent directory.
const DefaultFilename = "medals.json"

type Snapshot struct {
	Source    string       `json:"source"`
	FetchedAt string       `json:"fetched_at"`
	RowCount  int          `json:"row_count"`
	Rows      []medals.Row `json:"rows"`
}

// Build creates a snapshot of rows, which must already be in medal table order.
func Build(source string, rows []medals.Row, fetchedAt time.Time) Snapshot {
	if rows == nil {
		rows = []medals.Row{}
	}
	return Snapshot{
		Source:    source,
		FetchedAt: fetchedAt.UTC().Format(TimeFormat),
		RowCount:  len(rows),
		Rows:      rows,
	}
}

// Encode renders the snapshot as JSON indented by two spaces with a trailing newline.
func Encode(snap Snapshot) ([]byte, error) {
	if snap.Rows == nil {
		snap.Rows = []medals.Row{}
	}
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(snap)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DefaultPath resolves medals.json in the parent of the directory holding the executable.
// An executable inside the temp directory, as built by `go run`, is removed on exit, so
// the working directory is used instead.
func DefaultPath() (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	workdir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("locate working directory: %w", err)
	}
	return defaultPathFor(resolveSymlinks(executable), resolveSymlinks(os.TempDir()), workdir), nil
}

func defaultPathFor(executable, tempDir, workdir string) string {
	dir := filepath.Dir(executable)
	rel, err := filepath.Rel(tempDir, dir)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Join(workdir, DefaultFilename)
	}
	return filepath.Join(dir, "..", DefaultFilename)
}

func resolveSymlinks(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

type Store struct {
	path string
	tel  telemetry.API
}

func NewStore(path string, tel telemetry.API) Store {
	assert.NotEmptyStr(path)
	assert.NotNil(tel)
	return Store{
		path: path,
		tel:  telemetry.NewScopedAPI("snapshot", tel),
	}
}

func (s Store) Path() string {
	return s.path
}

func (s Store) Read() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	err = json.Unmarshal(data, &snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return snap, nil
}

// HasRows reports whether the existing file parses as JSON and holds a non-empty "rows"
// array. The rows themselves are not validated.
func (s Store) HasRows() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	var partial struct {
		Rows json.RawMessage `json:"rows"`
	}
	err = json.Unmarshal(data, &partial)
	if err != nil {
		return false
	}
	var rows []json.RawMessage
	err = json.Unmarshal(partial.Rows, &rows)
	if err != nil {
		return false
	}
	return len(rows) > 0
}

// Write replaces the file with snap. The content goes to a temporary file in the same
// directory first so readers never see a partial document.
func (s Store) Write(snap Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		rmErr := os.Remove(tmpPath)
		if rmErr != nil && !os.IsNotExist(rmErr) {
			s.tel.ReportWarning(report_store_cleanup, tmpPath, rmErr)
		}
	}

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0644)
	}
	if err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}

	err = os.Rename(tmpPath, s.path)
	if err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
