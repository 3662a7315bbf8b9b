/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

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

	"goconnector/internal/domain"
	applog "goconnector/internal/log"
	"goconnector/internal/version"

	// PostgreSQL driver registered as "pgx"
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores the per-document index next to the document.
	IndexDirName = ".gcn"

	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	// schemaVersion tracks the index schema.
	schemaVersion = 1
)

// IndexPath returns the default SQLite index location for a document.
func IndexPath(docPath string) string {
	base := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	return filepath.Join(filepath.Dir(docPath), IndexDirName, base+".sqlite")
}

// Index is the SQL index of shapes and connectors.
type Index struct {
	db     *sql.DB
	driver string
	log    *slog.Logger
}

// OpenIndex opens the index for driver ("sqlite" or "pgx"). For SQLite, dsn
// is a file path whose directory is created on demand.
func OpenIndex(ctx context.Context, driver, dsn string) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(slog.String("driver", driver))
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("index dsn is required")
	}
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
		uri := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(dsn))
		db, err = sql.Open(DriverSQLite, uri)
		if err == nil {
			// Embedded usage: one writer.
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
		}
	case DriverPostgres:
		db, err = sql.Open(DriverPostgres, dsn)
	default:
		return nil, fmt.Errorf("unknown index driver %q", driver)
	}
	if err != nil {
		l.Error("open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	ix := &Index{db: db, driver: driver, log: l}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			l.Error("enable WAL failed", slog.Any("err", err))
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	if err := ix.ensureMetaAndVersion(ctx); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ix.ensureSchema(ctx); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready")
	return ix, nil
}

// Close releases the database handle.
func (ix *Index) Close() error { return ix.db.Close() }

// DB exposes the handle for ad-hoc queries.
func (ix *Index) DB() *sql.DB { return ix.db }

// rebind turns ? placeholders into $n for PostgreSQL.
func (ix *Index) rebind(q string) string {
	if ix.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
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

func (ix *Index) ensureMetaAndVersion(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := ix.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := ix.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := ix.db.ExecContext(ctx, ix.rebind(`INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`), schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	case curSchema > schemaVersion:
		return fmt.Errorf("index schema %d is newer than supported %d", curSchema, schemaVersion)
	default:
		if _, err := ix.db.ExecContext(ctx, ix.rebind(`UPDATE version SET app=?, updated_at=? WHERE id=1`), appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func (ix *Index) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS shapes (
			id     TEXT PRIMARY KEY,
			x      DOUBLE PRECISION NOT NULL,
			y      DOUBLE PRECISION NOT NULL,
			w      DOUBLE PRECISION NOT NULL,
			h      DOUBLE PRECISION NOT NULL,
			rotate DOUBLE PRECISION NOT NULL DEFAULT 0,
			text   TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS connectors (
			id        TEXT PRIMARY KEY,
			mode      TEXT NOT NULL,
			source_id TEXT,
			target_id TEXT,
			x         DOUBLE PRECISION NOT NULL,
			y         DOUBLE PRECISION NOT NULL,
			w         DOUBLE PRECISION NOT NULL,
			h         DOUBLE PRECISION NOT NULL,
			points    INTEGER NOT NULL,
			path      TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_connectors_source ON connectors(source_id);`,
		`CREATE INDEX IF NOT EXISTS idx_connectors_target ON connectors(target_id);`,
	}
	for _, q := range ddl {
		if _, err := ix.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

func nullID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

// WriteDocument replaces the index content with doc in one transaction.
// Connector paths are stored in absolute coordinates.
func (ix *Index) WriteDocument(ctx context.Context, doc *domain.Document) error {
	start := time.Now()
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	fail := func(what string, err error) error {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", what, err)
	}
	for _, q := range []string{"DELETE FROM connectors;", "DELETE FROM shapes;"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fail("clear index", err)
		}
	}
	insShape, err := tx.PrepareContext(ctx, ix.rebind(`INSERT INTO shapes(id, x, y, w, h, rotate, text) VALUES(?,?,?,?,?,?,?)`))
	if err != nil {
		return fail("prepare shape insert", err)
	}
	defer insShape.Close()
	shapes := doc.Shapes()
	for _, s := range shapes {
		b := s.Box
		if _, err := insShape.ExecContext(ctx, s.ShapeID, b.X, b.Y, b.W, b.H, b.Rotate, s.Text); err != nil {
			return fail("insert shape "+s.ShapeID, err)
		}
	}
	insConn, err := tx.PrepareContext(ctx, ix.rebind(`INSERT INTO connectors(id, mode, source_id, target_id, x, y, w, h, points, path) VALUES(?,?,?,?,?,?,?,?,?,?)`))
	if err != nil {
		return fail("prepare connector insert", err)
	}
	defer insConn.Close()
	conns := doc.Connectors()
	for _, c := range conns {
		abs := c.AbsolutePath()
		wire, err := domain.Serialize(abs)
		if err != nil {
			return fail("serialize "+c.ID, err)
		}
		b := c.Bound
		if _, err := insConn.ExecContext(ctx, c.ID, c.Mode.String(), nullID(c.Source.ShapeID), nullID(c.Target.ShapeID),
			b.X, b.Y, b.W, b.H, len(abs), string(wire)); err != nil {
			return fail("insert connector "+c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	ix.log.Debug("index written", slog.Int("shapes", len(shapes)), slog.Int("connectors", len(conns)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// ConnectorsForShape returns the ids of indexed connectors with an end on shapeID.
func (ix *Index) ConnectorsForShape(ctx context.Context, shapeID string) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, ix.rebind(`SELECT id FROM connectors WHERE source_id=? OR target_id=? ORDER BY id`), shapeID, shapeID)
	if err != nil {
		return nil, fmt.Errorf("query connectors: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ConnectorPath returns the indexed absolute path of a connector.
func (ix *Index) ConnectorPath(ctx context.Context, id string) ([]domain.PathPoint, error) {
	var wire string
	err := ix.db.QueryRowContext(ctx, ix.rebind(`SELECT path FROM connectors WHERE id=?`), id).Scan(&wire)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("connector %s: %w", id, domain.ErrUnknownConnector)
	}
	if err != nil {
		return nil, fmt.Errorf("query connector %s: %w", id, err)
	}
	return domain.Deserialize([]byte(wire))
}

// Counts returns the number of indexed shapes and connectors.
func (ix *Index) Counts(ctx context.Context) (shapes, connectors int, err error) {
	if err = ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shapes`).Scan(&shapes); err != nil {
		return 0, 0, fmt.Errorf("count shapes: %w", err)
	}
	if err = ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM connectors`).Scan(&connectors); err != nil {
		return 0, 0, fmt.Errorf("count connectors: %w", err)
	}
	return shapes, connectors, nil
}

// DetectAndRebuildIndex opens the SQLite index at path and rebuilds it from
// doc when it is corrupt or missing its schema. It returns true when a
// rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, path string, doc *domain.Document) (bool, error) {
	ix, err := OpenIndex(ctx, DriverSQLite, path)
	if err == nil {
		var chk string
		qerr := ix.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk)
		healthy := qerr == nil && strings.Contains(strings.ToLower(chk), "ok")
		if healthy {
			if _, err := ix.db.ExecContext(ctx, `SELECT 1 FROM connectors LIMIT 1;`); err != nil {
				healthy = false
			}
		}
		if healthy {
			defer ix.Close()
			return false, ix.WriteDocument(ctx, doc)
		}
		_ = ix.Close()
	}
	backupIndexFile(path)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	ix, rerr := OpenIndex(ctx, DriverSQLite, path)
	if rerr != nil {
		return false, fmt.Errorf("rebuild index: %w (open err: %v)", rerr, err)
	}
	defer ix.Close()
	if err := ix.WriteDocument(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), time.Now().Format(backupStamp)))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
