/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage keeps the export history: one row per file written. The
// default backend is an embedded SQLite file; a shared PostgreSQL catalog can
// be used instead through the pgx driver.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	applog "textbehind/internal/log"
	"textbehind/internal/version"
)

// schemaVersion is bumped with every change to the exports table.
const schemaVersion = 1

// timeLayout is fixed width so created_at text sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded export.
type Entry struct {
	ID        int64
	Path      string
	Format    string
	Width     int
	Height    int
	Layers    int
	Source    string // source image path, when known
	CreatedAt time.Time
}

// History is an open export history database.
type History struct {
	db     *sql.DB
	driver string
	log    *slog.Logger
}

// Open connects to the history database and creates the schema. driver is
// "sqlite" (dsn is a file path or SQLite URI) or "pgx" (dsn is a
// PostgreSQL URL).
func Open(ctx context.Context, driver, dsn string) (*History, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "history_open").With(slog.String("driver", driver))
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("history dsn is required")
	}
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case "sqlite", "":
		driver = "sqlite"
		db, err = openSQLite(ctx, dsn)
	case "pgx":
		db, err = sql.Open("pgx", dsn)
		if err == nil {
			err = db.PingContext(ctx)
		}
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		l.Error("open history failed", slog.Any("err", err))
		return nil, fmt.Errorf("open %s history: %w", driver, err)
	}

	h := &History{db: db, driver: driver, log: l}
	if err := h.ensureSchema(ctx); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("history ready")
	return h, nil
}

func openSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(dsn))
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return db, fmt.Errorf("enable WAL: %w", err)
	}
	return db, nil
}

func (h *History) ensureSchema(ctx context.Context) error {
	idCol := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if h.driver == "pgx" {
		idCol = "BIGSERIAL PRIMARY KEY"
	}
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			schema     INTEGER NOT NULL,
			app        TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS exports (
			id         ` + idCol + `,
			path       TEXT NOT NULL,
			format     TEXT NOT NULL,
			width      INTEGER NOT NULL,
			height     INTEGER NOT NULL,
			layers     INTEGER NOT NULL,
			source     TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS exports_created_at ON exports (created_at)`,
	}
	for _, q := range ddl {
		if _, err := h.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	var cur int
	err := h.db.QueryRowContext(ctx, `SELECT schema FROM schema_version WHERE id = 1`).Scan(&cur)
	now := time.Now().UTC().Format(time.RFC3339)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = h.db.ExecContext(ctx, h.rebind(`INSERT INTO schema_version (id, schema, app, updated_at) VALUES (1, ?, ?, ?)`),
			schemaVersion, version.String(), now)
	case err != nil:
	case cur > schemaVersion:
		return fmt.Errorf("history schema %d is newer than supported %d", cur, schemaVersion)
	default:
		_, err = h.db.ExecContext(ctx, h.rebind(`UPDATE schema_version SET app = ?, updated_at = ? WHERE id = 1`),
			version.String(), now)
	}
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}
	return nil
}

// Record stores e and returns its id. A zero CreatedAt is set to now.
func (h *History) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var id int64
	err := h.db.QueryRowContext(ctx, h.rebind(`INSERT INTO exports (path, format, width, height, layers, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		e.Path, e.Format, e.Width, e.Height, e.Layers, e.Source, e.CreatedAt.UTC().Format(timeLayout),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record export: %w", err)
	}
	h.log.Debug("export recorded", slog.Int64("id", id), slog.String("path", e.Path))
	return id, nil
}

// Recent returns up to n entries, newest first.
func (h *History) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := h.db.QueryContext(ctx, h.rebind(`SELECT id, path, format, width, height, layers, source, created_at
		FROM exports ORDER BY created_at DESC, id DESC LIMIT ?`), n)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts string
		)
		if err := rows.Scan(&e.ID, &e.Path, &e.Format, &e.Width, &e.Height, &e.Layers, &e.Source, &ts); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("export %d: bad timestamp %q: %w", e.ID, ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database.
func (h *History) Close() error { return h.db.Close() }

// rebind turns ? placeholders into $n for PostgreSQL.
func (h *History) rebind(q string) string {
	if h.driver != "pgx" {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
