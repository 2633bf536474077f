package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/agent-relay/internal/domain"
	"github.com/ashureev/agent-relay/internal/shared"
	_ "modernc.org/sqlite"
)

const sqliteTable = "thread_logs"

// SQLiteStore implements Store on a local SQLite file for development
// without a Cosmos DB account.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (and creates if needed) a SQLite audit store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS thread_logs (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		log_type TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_thread_logs_thread ON thread_logs(thread_id, timestamp);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Put inserts one document.
func (s *SQLiteStore) Put(ctx context.Context, doc domain.LogDocument) error {
	query := `INSERT INTO thread_logs (id, thread_id, log_type, timestamp, data) VALUES (?, ?, ?, ?, ?)`
	data := string(doc.Data)
	if data == "" {
		data = "null"
	}
	err := shared.RetryOnConflict(ctx, "insert audit log", 3, 50*time.Millisecond, func() error {
		_, err := s.db.ExecContext(ctx, query, doc.ID, doc.ThreadID, string(doc.LogType), doc.Timestamp, data)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ThreadLogs returns a thread's documents oldest first.
func (s *SQLiteStore) ThreadLogs(ctx context.Context, threadID string) ([]domain.LogDocument, error) {
	query := `
		SELECT id, thread_id, log_type, timestamp, data
		FROM thread_logs WHERE thread_id = ? ORDER BY timestamp ASC`

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("query thread logs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close thread log rows", "error", closeErr)
		}
	}()

	logs := []domain.LogDocument{}
	for rows.Next() {
		var doc domain.LogDocument
		var logType, data string
		if err := rows.Scan(&doc.ID, &doc.ThreadID, &logType, &doc.Timestamp, &data); err != nil {
			return nil, fmt.Errorf("scan thread log row: %w", err)
		}
		doc.LogType = domain.LogType(logType)
		doc.Data = []byte(data)
		logs = append(logs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread logs: %w", err)
	}
	return logs, nil
}

// ThreadIDs returns distinct thread IDs, most recently active first.
func (s *SQLiteStore) ThreadIDs(ctx context.Context) ([]string, error) {
	query := `SELECT thread_id FROM thread_logs GROUP BY thread_id ORDER BY MAX(timestamp) DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query thread ids: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close thread id rows", "error", closeErr)
		}
	}()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread ids: %w", err)
	}
	return ids, nil
}

// Stats aggregates document counts.
func (s *SQLiteStore) Stats(ctx context.Context) (domain.AuditStats, error) {
	stats := domain.AuditStats{LogTypes: []domain.LogTypeCount{}}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COUNT(DISTINCT thread_id) FROM thread_logs`)
	if err := row.Scan(&stats.TotalLogs, &stats.TotalThreads); err != nil {
		return domain.AuditStats{}, fmt.Errorf("count logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT log_type, COUNT(1) FROM thread_logs GROUP BY log_type ORDER BY log_type`)
	if err != nil {
		return domain.AuditStats{}, fmt.Errorf("count log types: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close log type rows", "error", closeErr)
		}
	}()
	for rows.Next() {
		var c domain.LogTypeCount
		var logType string
		if err := rows.Scan(&logType, &c.Count); err != nil {
			return domain.AuditStats{}, fmt.Errorf("scan log type count: %w", err)
		}
		c.LogType = domain.LogType(logType)
		stats.LogTypes = append(stats.LogTypes, c)
	}
	if err := rows.Err(); err != nil {
		return domain.AuditStats{}, fmt.Errorf("iterate log types: %w", err)
	}
	return stats, nil
}

// Location returns the database path and table name.
func (s *SQLiteStore) Location() (string, string) {
	return s.path, sqliteTable
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
