package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alucardeht/may-la-specs/internal/spec"
)

// SQLiteStore persists specs in a single SQLite table. Tags and relations
// are stored as JSON arrays and updated_at as Unix nanoseconds, zero when
// unknown.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, unavailable("create store dir", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, unavailable("open store", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, unavailable("configure store", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("sqlite store opened", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return unavailable("init schema", err)
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
		return unavailable("init schema", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectSpec = `SELECT id, title, body, status, tags, relations, path, updated_at FROM specs`

func (s *SQLiteStore) ListAll(ctx context.Context) ([]*spec.Spec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectSpec+` ORDER BY id`)
	if err != nil {
		return nil, unavailable("list specs", err)
	}
	defer rows.Close()

	var specs []*spec.Spec
	for rows.Next() {
		sp, err := scanSpec(rows)
		if err != nil {
			return nil, unavailable("list specs", err)
		}
		specs = append(specs, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list specs", err)
	}
	return specs, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*spec.Spec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, err := scanSpec(s.db.QueryRowContext(ctx, selectSpec+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, unavailable("get spec", err)
	}
	return sp, nil
}

func (s *SQLiteStore) Put(ctx context.Context, in *spec.Spec) error {
	sp, err := prepare(in)
	if err != nil {
		return err
	}

	tags, err := json.Marshal(nonNil(sp.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	relations, err := json.Marshal(nonNil(sp.Relations))
	if err != nil {
		return fmt.Errorf("encode relations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO specs (id, title, body, status, tags, relations, path, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			status = excluded.status,
			tags = excluded.tags,
			relations = excluded.relations,
			path = excluded.path,
			updated_at = excluded.updated_at
	`, sp.ID, sp.Title, sp.Body, string(sp.Status), string(tags), string(relations), sp.Path, unixNano(sp.UpdatedAt))
	if err != nil {
		return unavailable("put spec", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM specs WHERE id = ?`, id)
	if err != nil {
		return unavailable("delete spec", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return unavailable("delete spec", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// Count is used by the CLI after an import.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM specs`).Scan(&n); err != nil {
		return 0, unavailable("count specs", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpec(row scanner) (*spec.Spec, error) {
	var (
		sp                      spec.Spec
		status, tags, relations string
		updatedAt               int64
	)
	if err := row.Scan(&sp.ID, &sp.Title, &sp.Body, &status, &tags, &relations, &sp.Path, &updatedAt); err != nil {
		return nil, err
	}

	sp.Status = spec.Status(status)
	if err := json.Unmarshal([]byte(tags), &sp.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of %s: %w", sp.ID, err)
	}
	if err := json.Unmarshal([]byte(relations), &sp.Relations); err != nil {
		return nil, fmt.Errorf("decode relations of %s: %w", sp.ID, err)
	}
	if len(sp.Relations) == 0 {
		sp.Relations = nil
	}
	if updatedAt != 0 {
		sp.UpdatedAt = time.Unix(0, updatedAt).UTC()
	}
	return &sp, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
