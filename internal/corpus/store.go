// Package corpus persists synthesized programs in a SQLite database.
package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/orizon-lang/tierforge/internal/program"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("program not found")

const schema = `
CREATE TABLE IF NOT EXISTS programs (
	id TEXT PRIMARY KEY,
	template TEXT NOT NULL,
	seed INTEGER NOT NULL,
	instructions INTEGER NOT NULL,
	body TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_programs_template ON programs(template);
`

// Store is a program corpus. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is the summary row of a stored program.
type Entry struct {
	ID           string
	Template     string
	Seed         int64
	Instructions int
	CreatedAt    time.Time
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Template string
	Limit    int
}

// Open opens or creates the corpus at path. ":memory:" gives a private
// in-memory corpus.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

// Put stores p under its id. Programs without an id are rejected.
func (s *Store) Put(ctx context.Context, p *program.Program) error {
	if p.ID() == "" {
		return errors.New("program has no id")
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode program %s: %w", p.ID(), err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO programs (id, template, seed, instructions, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID(), p.Template(), p.Seed(), p.Len(), string(body), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("store program %s: %w", p.ID(), err)
	}

	return nil
}

// Get loads the program stored under id.
func (s *Store) Get(ctx context.Context, id string) (*program.Program, error) {
	var body string

	err := s.db.QueryRowContext(ctx, `SELECT body FROM programs WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("load program %s: %w", id, err)
	}

	var p program.Program
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("decode program %s: %w", id, err)
	}

	return &p, nil
}

// List returns entries in insertion order.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT id, template, seed, instructions, created_at FROM programs`
	args := []any{}

	if f.Template != "" {
		query += ` WHERE template = ?`
		args = append(args, f.Template)
	}

	query += ` ORDER BY rowid`

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	var out []Entry

	for rows.Next() {
		var (
			e       Entry
			created int64
		)

		if err := rows.Scan(&e.ID, &e.Template, &e.Seed, &e.Instructions, &created); err != nil {
			return nil, err
		}

		e.CreatedAt = time.Unix(0, created)
		out = append(out, e)
	}

	return out, rows.Err()
}

// Count returns the number of stored programs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM programs`).Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}

func (s *Store) Close() error { return s.db.Close() }
