// Package archive keeps a sqlite history of every snapshot that was written.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"medaltable/internal/medals"
	"medaltable/internal/snapshot"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Entry struct {
	ID        int64
	Source    string
	FetchedAt string
	RowCount  int
	Rows      []medals.Row
}

type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies the schema.
func Open(ctx context.Context, path string) (Archive, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return Archive{}, fmt.Errorf("open archive %s: %w", path, err)
	}
	// sqlite only allows a single writer, and ":memory:" is per connection
	database.SetMaxOpenConns(1)

	_, err = database.ExecContext(ctx, Schema)
	if err != nil {
		database.Close()
		return Archive{}, fmt.Errorf("apply archive schema: %w", err)
	}
	return Archive{db: database}, nil
}

func (a Archive) Close() error {
	return a.db.Close()
}

// Record appends snap to the history and returns its id.
func (a Archive) Record(ctx context.Context, snap snapshot.Snapshot) (int64, error) {
	rows := snap.Rows
	if rows == nil {
		rows = []medals.Row{}
	}
	encoded, err := json.Marshal(rows)
	if err != nil {
		return 0, err
	}

	res, err := a.db.ExecContext(
		ctx,
		"insert into snapshot_archive(source, fetched_at, row_count, rows_json) values (?, ?, ?, ?)",
		snap.Source,
		snap.FetchedAt,
		len(rows),
		string(encoded),
	)
	if err != nil {
		return 0, fmt.Errorf("record snapshot: %w", err)
	}
	return res.LastInsertId()
}

// List returns at most limit entries, newest first. A limit <= 0 returns every entry.
func (a Archive) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.QueryContext(
		ctx,
		"select id, source, fetched_at, row_count, rows_json from snapshot_archive order by fetched_at desc, id desc limit ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var rowsJson string
		err = rows.Scan(&entry.ID, &entry.Source, &entry.FetchedAt, &entry.RowCount, &rowsJson)
		if err != nil {
			return nil, err
		}
		err = json.Unmarshal([]byte(rowsJson), &entry.Rows)
		if err != nil {
			return nil, fmt.Errorf("decode rows of snapshot %d: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Latest returns the newest entry, ok is false when the archive is empty.
func (a Archive) Latest(ctx context.Context) (Entry, bool, error) {
	entries, err := a.List(ctx, 1)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}
