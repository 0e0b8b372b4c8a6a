package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed transcript repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel TEXT NOT NULL,
		sender TEXT NOT NULL,
		text TEXT NOT NULL,
		outbound INTEGER NOT NULL DEFAULT 0,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_channel_at ON messages(channel, at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordMessage appends one message to the archive. Retries with
// exponential backoff on SQLite concurrency errors.
func (s *SQLiteStore) RecordMessage(ctx context.Context, msg *Message) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.recordMessageOnce(ctx, msg)
		if err == nil {
			return nil
		}

		if isSQLiteConflict(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("RecordMessage hit a busy database, retrying",
				"channel", msg.Channel,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("record message after %d attempts: %w", i+1, err)
	}
	return nil
}

func (s *SQLiteStore) recordMessageOnce(ctx context.Context, msg *Message) error {
	query := `INSERT INTO messages (channel, sender, text, outbound, at) VALUES (?, ?, ?, ?, ?)`

	at := msg.At
	if at.IsZero() {
		at = time.Now()
	}
	outbound := 0
	if msg.Outbound {
		outbound = 1
	}

	_, err := s.db.ExecContext(ctx, query, msg.Channel, msg.Sender, msg.Text, outbound, at.Unix())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// RecentMessages retrieves up to limit messages for a channel, newest
// first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, channel string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, channel, sender, text, outbound, at
		FROM messages WHERE channel = ?
		ORDER BY at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var outbound int
		var at int64

		if err := rows.Scan(&msg.ID, &msg.Channel, &msg.Sender, &msg.Text, &outbound, &at); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Outbound = outbound != 0
		msg.At = time.Unix(at, 0)
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// isSQLiteConflict reports whether err is a SQLite concurrency error
// (SQLITE_BUSY or "database is locked") that warrants a retry.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY") ||
		strings.Contains(err.Error(), "database is locked")
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
