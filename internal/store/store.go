// Package store provides the transcript archive: persistence
// interfaces and the SQLite implementation.
package store

import (
	"context"
	"time"
)

// Message is one archived channel or private message, inbound or
// outbound.
type Message struct {
	ID       int64     `json:"id"`
	Channel  string    `json:"channel"`
	Sender   string    `json:"sender"`
	Text     string    `json:"text"`
	Outbound bool      `json:"outbound"`
	At       time.Time `json:"at"`
}

// Repository defines the interface for persisting transcripts.
type Repository interface {
	// RecordMessage appends one message to the archive.
	RecordMessage(ctx context.Context, msg *Message) error

	// RecentMessages retrieves up to limit messages for a channel,
	// newest first.
	RecentMessages(ctx context.Context, channel string, limit int) ([]*Message, error)

	// Ping verifies database connectivity and returns an error if the
	// database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
