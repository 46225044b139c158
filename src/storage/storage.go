// Package storage persists conversations for the william backend in
// SQLite. Message ordering lives in a separate paths table so forked
// conversations can share message rows without copying content.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/chamber-ai/william/src/arrakis"
)

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies the schema.
// The schema statements are idempotent and run on every open.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, logger: logger.With("component", "storage")}
	if err := store.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return store, nil
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// messageTypeID maps wire message types onto their stable row ids.
func messageTypeID(mt arrakis.MessageType) (int64, error) {
	switch mt {
	case arrakis.MessageTypeSystem:
		return 0, nil
	case arrakis.MessageTypeUser:
		return 1, nil
	case arrakis.MessageTypeAssistant:
		return 2, nil
	default:
		return 0, fmt.Errorf("invalid message type: %q", mt)
	}
}

func messageTypeFromID(id int64) (arrakis.MessageType, error) {
	switch id {
	case 0:
		return arrakis.MessageTypeSystem, nil
	case 1:
		return arrakis.MessageTypeUser, nil
	case 2:
		return arrakis.MessageTypeAssistant, nil
	default:
		return "", fmt.Errorf("invalid message type id: %d", id)
	}
}
