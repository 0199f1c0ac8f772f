package store

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/metricskey"

	// sqlite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is a MemoryStore in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ MemoryStore = (*SQLiteStore)(nil)

// OpenSQLite opens the database file, creating its folder if needed,
// and applies pending migrations. Caller must call Close when done.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, errors.Wrap(err, "sqlite store")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite store: open db")
	}
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite store: WAL")
	}

	s := &SQLiteStore{db: db}
	if err = s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Search loads the most recent memories of the user and ranks them.
func (s *SQLiteStore) Search(ctx context.Context, query, userID string, limit int) ([]*Memory, error) {
	defer metricskey.PerfMemorySearch.MeasureSince(TimeNowFn(), "sqlite")
	if err := checkUser(userID); err != nil {
		return nil, searchFailed(ctx, "sqlite", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, content, created_at FROM memories
		 WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, DefaultMaxMemories)
	if err != nil {
		return nil, searchFailed(ctx, "sqlite", errors.Wrap(err, "failed to query memories"))
	}
	defer rows.Close()

	var list []*Memory
	for rows.Next() {
		var (
			m       Memory
			created int64
		)
		if err = rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &created); err != nil {
			return nil, searchFailed(ctx, "sqlite", errors.Wrap(err, "failed to read memory"))
		}
		m.CreatedAt = time.Unix(0, created).UTC()
		list = append(list, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, searchFailed(ctx, "sqlite", errors.WithStack(err))
	}
	return Rank(query, list, limit), nil
}

// AddMessages stores the messages in one transaction.
func (s *SQLiteStore) AddMessages(ctx context.Context, msgs []llms.Message, userID string) error {
	list, err := NewMemories(msgs, userID)
	if err != nil {
		return addFailed(ctx, "sqlite", err)
	}
	if len(list) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return addFailed(ctx, "sqlite", errors.Wrap(err, "failed to begin transaction"))
	}
	for _, m := range list {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO memories (id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.UserID, m.Role, m.Content, m.CreatedAt.UnixNano())
		if err != nil {
			_ = tx.Rollback()
			return addFailed(ctx, "sqlite", errors.Wrap(err, "failed to insert memory"))
		}
	}
	if err = tx.Commit(); err != nil {
		return addFailed(ctx, "sqlite", errors.Wrap(err, "failed to commit memories"))
	}
	return nil
}

// Reset removes all memories of the user.
func (s *SQLiteStore) Reset(ctx context.Context, userID string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE user_id = ?`, userID); err != nil {
		return errors.Wrap(err, "failed to reset memories")
	}
	return nil
}

func (s *SQLiteStore) runMigrations() error {
	if _, err := s.db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL PRIMARY KEY)"); err != nil {
		return errors.Wrap(err, "migrations: create schema_version")
	}

	var current sql.NullInt64
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "migrations: read version")
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return errors.WithStack(err)
	}
	sort.Strings(names)

	for _, name := range names {
		n := migrationNumber(name)
		if n <= 0 || int64(n) <= current.Int64 {
			continue
		}
		script, err := migrationsFS.ReadFile(name)
		if err != nil {
			return errors.Wrapf(err, "migration %s", name)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return errors.Wrapf(err, "migration %s: begin", name)
		}
		if _, err = tx.Exec(string(script)); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "migration %s", name)
		}
		if _, err = tx.Exec("DELETE FROM schema_version"); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "migration %s: clear version", name)
		}
		if _, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", n); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "migration %s: set version", name)
		}
		if err = tx.Commit(); err != nil {
			return errors.Wrapf(err, "migration %s: commit", name)
		}
	}
	return nil
}

// migrationNumber returns the numeric prefix of a migration file name,
// 0001_memories.sql is 1.
func migrationNumber(name string) int {
	base := filepath.Base(name)
	prefix, _, _ := strings.Cut(base, "_")
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return 0
	}
	return n
}
