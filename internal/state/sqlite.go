package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database, creating parent
// directories as needed. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Each in-memory connection is its own database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened state store", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path passed to Open.
func (s *SQLiteStore) Path() string {
	return s.path
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// RecordInvocation inserts inv, assigning an ID and start time when unset.
func (s *SQLiteStore) RecordInvocation(ctx context.Context, inv *Invocation) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if inv.ID == "" {
		inv.ID = generateID()
	}
	if inv.StartedAt.IsZero() {
		inv.StartedAt = time.Now()
	}

	var errMsg *string
	if inv.Error != "" {
		errMsg = &inv.Error
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invocations (id, command, target, path, ecosystem, exit_code, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Command, inv.Target, inv.Path, inv.Ecosystem, inv.ExitCode, errMsg,
		inv.StartedAt.UnixMilli(), inv.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// ListInvocations returns matching invocations, most recent first.
func (s *SQLiteStore) ListInvocations(ctx context.Context, filter Filter) ([]*Invocation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		where []string
		args  []any
	)
	if filter.Target != "" {
		where = append(where, "target = ?")
		args = append(args, filter.Target)
	}
	if filter.Command != "" {
		where = append(where, "command = ?")
		args = append(args, filter.Command)
	}

	query := `SELECT id, command, target, path, ecosystem, exit_code, error, started_at, duration_ms FROM invocations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Invocation
	for rows.Next() {
		inv := &Invocation{}
		var (
			errMsg     sql.NullString
			startedMS  int64
			durationMS int64
		)
		if err := rows.Scan(&inv.ID, &inv.Command, &inv.Target, &inv.Path, &inv.Ecosystem,
			&inv.ExitCode, &errMsg, &startedMS, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		if errMsg.Valid {
			inv.Error = errMsg.String
		}
		inv.StartedAt = time.UnixMilli(startedMS)
		inv.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invocations: %w", err)
	}
	return out, nil
}
