// Package audit provides an append-only activity journal for Bookshelf.
// Every catalog mutation is recorded as one JSON line, grouped by the
// session (process run) that made it.
package audit

import "time"

// SessionID identifies one program execution. It is a UUID v4 string.
type SessionID string

// EventType represents the type of audit event.
type EventType string

const (
	// Session lifecycle events
	EventSessionStart EventType = "SESSION_START"
	EventSessionEnd   EventType = "SESSION_END"

	// Catalog events
	EventBookAdded       EventType = "BOOK_ADDED"
	EventBookRated       EventType = "BOOK_RATED"
	EventCatalogReloaded EventType = "CATALOG_RELOADED"

	// System events
	EventRotation       EventType = "ROTATION"
	EventLogInitialized EventType = "LOG_INITIALIZED"
)

// Event is a single journal record.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	SessionID SessionID         `json:"sessionId"`
	EventType EventType         `json:"eventType"`
	Title     string            `json:"title,omitempty"`
	User      string            `json:"user,omitempty"`
	Rating    int               `json:"rating,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SessionInfo summarizes the events of one session.
type SessionInfo struct {
	SessionID  SessionID
	StartTime  time.Time
	EndTime    *time.Time
	AppVersion string
	BooksAdded int
	BooksRated int
	Reloads    int
}

// Config holds configuration for the audit journal.
type Config struct {
	Enabled      bool   `koanf:"enabled"`
	Directory    string `koanf:"directory"`
	RotationSize int64  `koanf:"rotation_size"` // Rotate when the active log exceeds this size; 0 disables
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Directory:    ".bookshelf/audit",
		RotationSize: 1024 * 1024, // 1MB
	}
}
