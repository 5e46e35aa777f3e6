// Package store persists finished dependency graphs to SQLite so the
// downstream classifier (or a later run) can query importers and exports
// without re-analysing the project.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	kerrors "github.com/heystewart/knip/internal/core/errors"
	"github.com/heystewart/knip/internal/engine/graph"
	_ "modernc.org/sqlite"
)

const (
	driverName        = "sqlite"
	maxAttempts       = 5
	defaultProjectKey = "default"
)

// Import relation kinds as stored in the imports table.
const (
	RelImported     = "imported"
	RelImportedAs   = "imported_as"
	RelImportedNs   = "imported_ns"
	RelReExported   = "re_exported"
	RelReExportedAs = "re_exported_as"
	RelReExportedNs = "re_exported_ns"
	RelRef          = "ref"
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Snapshot describes the stored graph of one project.
type Snapshot struct {
	ProjectKey string
	Timestamp  time.Time
	FileCount  int
	GraphJSON  []byte
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, kerrors.New(kerrors.CodeValidationError, "store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, kerrors.AddContext(
			kerrors.New(kerrors.CodeValidationError, "store path is a directory, expected file"),
			kerrors.CtxPath, cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts while watch mode rewrites.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

type importRow struct {
	source, target, kind, identifier, alias string
}

// SaveGraph replaces the stored snapshot of projectKey with g in a single
// transaction.
func (s *Store) SaveGraph(projectKey string, g *graph.Graph) error {
	if g == nil {
		return kerrors.New(kerrors.CodeValidationError, "graph must not be nil")
	}
	projectKey = normalizeKey(projectKey)

	graphJSON, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}

	type fileRow struct {
		path, external, unresolved string
	}
	var (
		files   []fileRow
		imports []importRow
		exports []exportRow
	)
	var encodeErr error
	g.Each(func(path string, node *graph.FileNode) {
		external, err := json.Marshal(node.Imports.External)
		if err != nil {
			encodeErr = err
			return
		}
		unresolved, err := json.Marshal(node.Imports.Unresolved)
		if err != nil {
			encodeErr = err
			return
		}
		files = append(files, fileRow{path, string(external), string(unresolved)})

		for target, details := range node.Imports.Internal {
			imports = append(imports, importRows(path, target, details)...)
		}
		for _, exp := range node.Exports {
			row, err := newExportRow(path, exp)
			if err != nil {
				encodeErr = err
				return
			}
			exports = append(exports, row)
		}
	})
	if encodeErr != nil {
		return fmt.Errorf("encode graph rows: %w", encodeErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save graph", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		for _, table := range []string{"snapshots", "files", "imports", "exports"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE project_key = ?`, projectKey); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(
			`INSERT INTO snapshots (project_key, ts_utc, file_count, graph_json) VALUES (?, ?, ?, ?)`,
			projectKey, time.Now().UTC().Format(time.RFC3339Nano), len(files), string(graphJSON),
		); err != nil {
			return err
		}

		fileStmt, err := tx.Prepare(`INSERT INTO files (project_key, path, external_json, unresolved_json) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer fileStmt.Close()
		for _, f := range files {
			if _, err := fileStmt.Exec(projectKey, f.path, f.external, f.unresolved); err != nil {
				return err
			}
		}

		importStmt, err := tx.Prepare(`INSERT OR IGNORE INTO imports (project_key, source, target, kind, identifier, alias) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer importStmt.Close()
		for _, r := range imports {
			if _, err := importStmt.Exec(projectKey, r.source, r.target, r.kind, r.identifier, r.alias); err != nil {
				return err
			}
		}

		exportStmt, err := tx.Prepare(`
INSERT INTO exports (project_key, path, identifier, kind, pos, line, col, is_re_export, members_json, tags_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer exportStmt.Close()
		for _, e := range exports {
			if _, err := exportStmt.Exec(projectKey, e.path, e.identifier, e.kind, e.pos, e.line, e.col, e.isReExport, e.members, e.tags); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// importRows flattens one outgoing ImportDetails record. Importer ids in the
// sets become the source column; refs carry no importer and use source.
func importRows(source, target string, d *graph.ImportDetails) []importRow {
	if d == nil {
		return nil
	}
	var rows []importRow
	addSetMap := func(kind string, m graph.SetMap) {
		for id, importers := range m {
			for importer := range importers {
				rows = append(rows, importRow{importer, target, kind, id, ""})
			}
		}
	}
	addNested := func(kind string, m graph.NestedSetMap) {
		for id, aliases := range m {
			for alias, importers := range aliases {
				for importer := range importers {
					rows = append(rows, importRow{importer, target, kind, id, alias})
				}
			}
		}
	}
	addSetMap(RelImported, d.Imported)
	addNested(RelImportedAs, d.ImportedAs)
	addSetMap(RelImportedNs, d.ImportedNs)
	addSetMap(RelReExported, d.ReExported)
	addNested(RelReExportedAs, d.ReExportedAs)
	addSetMap(RelReExportedNs, d.ReExportedNs)
	for ref := range d.Refs {
		rows = append(rows, importRow{source, target, RelRef, ref, ""})
	}
	return rows
}

type exportRow struct {
	path, identifier, kind string
	pos, line, col         int
	isReExport             bool
	members, tags          string
}

func newExportRow(path string, e *graph.Export) (exportRow, error) {
	members, err := json.Marshal(e.Members)
	if err != nil {
		return exportRow{}, err
	}
	tags, err := json.Marshal(e.JSDocTags)
	if err != nil {
		return exportRow{}, err
	}
	return exportRow{
		path:       path,
		identifier: e.Identifier,
		kind:       string(e.Type),
		pos:        e.Pos,
		line:       e.Line,
		col:        e.Col,
		isReExport: e.IsReExport,
		members:    string(members),
		tags:       string(tags),
	}, nil
}

// Importers lists files that import identifier from target, by name,
// alias, re-export or namespace member reference.
func (s *Store) Importers(projectKey, target, identifier string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT DISTINCT source FROM imports
WHERE project_key = ? AND target = ? AND identifier = ?
  AND kind IN (?, ?, ?, ?, ?)
ORDER BY source ASC`
	var rows *sql.Rows
	err := s.withRetry("load importers", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, normalizeKey(projectKey), target, identifier,
			RelImported, RelImportedAs, RelReExported, RelReExportedAs, RelRef)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("scan importer row: %w", err)
		}
		out = append(out, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate importer rows: %w", err)
	}
	return out, nil
}

// Exports returns the stored exports of file ordered by position.
func (s *Store) Exports(projectKey, file string) ([]*graph.Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT identifier, kind, pos, line, col, is_re_export, members_json, tags_json
FROM exports
WHERE project_key = ? AND path = ?
ORDER BY pos ASC, identifier ASC`
	var rows *sql.Rows
	err := s.withRetry("load exports", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, normalizeKey(projectKey), file)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*graph.Export
	for rows.Next() {
		var (
			identifier, kind string
			membersRaw       string
			tagsRaw          string
			isReExport       bool
			pos, line, col   int
		)
		if err := rows.Scan(&identifier, &kind, &pos, &line, &col, &isReExport, &membersRaw, &tagsRaw); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		e := graph.NewExport(identifier)
		e.Type = graph.SymbolKind(kind)
		e.Pos, e.Line, e.Col = pos, line, col
		e.IsReExport = isReExport
		if err := json.Unmarshal([]byte(membersRaw), &e.Members); err != nil {
			return nil, fmt.Errorf("decode export members: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsRaw), &e.JSDocTags); err != nil {
			return nil, fmt.Errorf("decode export tags: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}
	return out, nil
}

// LoadSnapshot returns the stored snapshot of projectKey.
func (s *Store) LoadSnapshot(projectKey string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = normalizeKey(projectKey)
	var (
		tsRaw     string
		graphJSON string
		snap      = Snapshot{ProjectKey: projectKey}
	)
	err := s.withRetry("load snapshot", func() error {
		return s.db.QueryRow(
			`SELECT ts_utc, file_count, graph_json FROM snapshots WHERE project_key = ?`, projectKey,
		).Scan(&tsRaw, &snap.FileCount, &graphJSON)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kerrors.AddContext(kerrors.New(kerrors.CodeNotFound, "no snapshot stored"), "project", projectKey)
	}
	if err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
	}
	snap.Timestamp = ts.UTC()
	snap.GraphJSON = []byte(graphJSON)
	return &snap, nil
}

// Files returns the stored file paths of projectKey in lexical order.
func (s *Store) Files(projectKey string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load files", func() error {
		var qErr error
		rows, qErr = s.db.Query(`SELECT path FROM files WHERE project_key = ?`, normalizeKey(projectKey))
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file rows: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	if errors.Is(lastErr, sql.ErrNoRows) {
		return lastErr
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func normalizeKey(projectKey string) string {
	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		return defaultProjectKey
	}
	return projectKey
}
