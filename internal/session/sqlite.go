package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/agent-relay/internal/domain"
	"github.com/ashureev/agent-relay/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	dbMaxRetries     = 3
	dbRetryBaseDelay = 50 * time.Millisecond
)

// SQLiteStore implements Store using SQLite so bindings survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed session store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		last_seen_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions(last_seen_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT session_id, thread_id, created_at, last_seen_at FROM sessions WHERE session_id = ?`

	var sess domain.Session
	var createdAt, lastSeen int64
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&sess.SessionID, &sess.ThreadID, &createdAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.LastSeenAt = time.Unix(lastSeen, 0)
	return &sess, nil
}

// PutIfAbsent inserts the binding unless one exists.
func (s *SQLiteStore) PutIfAbsent(ctx context.Context, sess *domain.Session) (*domain.Session, bool, error) {
	query := `
	INSERT INTO sessions (session_id, thread_id, created_at, last_seen_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(session_id) DO NOTHING`

	var rows int64
	err := shared.RetryOnConflict(ctx, "insert session", dbMaxRetries, dbRetryBaseDelay, func() error {
		result, err := s.db.ExecContext(ctx, query,
			sess.SessionID, sess.ThreadID, sess.CreatedAt.Unix(), sess.LastSeenAt.Unix())
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("insert session: %w", err)
	}
	if rows == 1 {
		stored := *sess
		return &stored, true, nil
	}

	existing, err := s.Get(ctx, sess.SessionID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("session %s vanished after conflicting insert", sess.SessionID)
	}
	return existing, false, nil
}

// Touch refreshes last_seen_at.
func (s *SQLiteStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	query := `UPDATE sessions SET last_seen_at = ? WHERE session_id = ?`
	err := shared.RetryOnConflict(ctx, "touch session", dbMaxRetries, dbRetryBaseDelay, func() error {
		result, err := s.db.ExecContext(ctx, query, at.Unix(), sessionID)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			slog.Debug("Touch affected 0 rows", "session_id", sessionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions idle for longer than ttl.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	threshold := time.Now().Add(-ttl).Unix()
	var n int64
	err := shared.RetryOnConflict(ctx, "delete expired sessions", dbMaxRetries, dbRetryBaseDelay, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_seen_at < ?`, threshold)
		if err != nil {
			return err
		}
		n, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}

// Count returns the number of stored sessions.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
