package storage

import (
	"errors"
	"fmt"

	"github.com/chamber-ai/william/src/arrakis"
)

// ErrNotFound is returned when a conversation id has no rows.
var ErrNotFound = errors.New("conversation not found")

// UpsertConversation persists the conversation and all of its messages,
// assigning ids in place wherever they are still nil, then rewrites the
// paths rows so the stored ordering matches the message slice. Every id
// in the conversation is set by the time this returns.
func (s *Store) UpsertConversation(conv *arrakis.Conversation) error {
	if conv.ID == nil {
		res, err := s.db.Exec(
			`INSERT INTO conversations (name, date_created, last_updated)
			 VALUES (?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`, conv.Name)
		if err != nil {
			return fmt.Errorf("failed to insert conversation: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		conv.ID = arrakis.Int64Ptr(id)
	} else {
		if _, err := s.db.Exec(
			`UPDATE conversations SET name = ?, last_updated = CURRENT_TIMESTAMP WHERE id = ?`,
			conv.Name, *conv.ID); err != nil {
			return fmt.Errorf("failed to update conversation: %w", err)
		}
	}

	for i := range conv.Messages {
		if err := s.upsertMessage(&conv.Messages[i]); err != nil {
			return err
		}
	}

	if _, err := s.db.Exec(`DELETE FROM paths WHERE conversation_id = ?`, *conv.ID); err != nil {
		return fmt.Errorf("failed to reset paths: %w", err)
	}
	for sequence, msg := range conv.Messages {
		if _, err := s.db.Exec(
			`INSERT INTO paths (conversation_id, message_id, sequence) VALUES (?, ?, ?)`,
			*conv.ID, *msg.ID, sequence); err != nil {
			return fmt.Errorf("failed to insert path: %w", err)
		}
	}

	return nil
}

func (s *Store) upsertMessage(msg *arrakis.Message) error {
	if msg.ID != nil {
		res, err := s.db.Exec(
			`UPDATE messages SET content = ?, system_prompt = ? WHERE id = ?`,
			msg.Content, msg.SystemPrompt, *msg.ID)
		if err != nil {
			return fmt.Errorf("failed to update message: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
		// The id referenced a row that no longer exists; insert fresh.
	}

	typeID, err := messageTypeID(msg.MessageType)
	if err != nil {
		return err
	}

	var modelID int64
	err = s.db.QueryRow(
		`SELECT id FROM models WHERE provider = ? AND name = ?`,
		string(msg.API.Provider), msg.API.Model).Scan(&modelID)
	if err != nil {
		return fmt.Errorf("failed to resolve model %s/%s: %w", msg.API.Provider, msg.API.Model, err)
	}

	res, err := s.db.Exec(
		`INSERT INTO messages (message_type_id, content, model_id, system_prompt, date_created)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		typeID, msg.Content, modelID, msg.SystemPrompt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = arrakis.Int64Ptr(id)
	return nil
}

// GetConversation loads a full conversation ordered by sequence.
func (s *Store) GetConversation(id int64) (arrakis.Conversation, error) {
	rows, err := s.db.Query(`
		SELECT
			c.name,
			m.id,
			m.message_type_id,
			m.content,
			api.provider,
			api.name,
			m.system_prompt,
			p.sequence
		FROM conversations c
		JOIN paths p ON c.id = p.conversation_id
		JOIN messages m ON p.message_id = m.id
		JOIN models api ON m.model_id = api.id
		WHERE c.id = ?
		ORDER BY p.sequence ASC`, id)
	if err != nil {
		return arrakis.Conversation{}, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer rows.Close()

	conv := arrakis.Conversation{ID: arrakis.Int64Ptr(id)}
	for rows.Next() {
		var (
			name         string
			msgID        int64
			typeID       int64
			content      string
			provider     string
			model        string
			systemPrompt string
			sequence     int
		)
		if err := rows.Scan(&name, &msgID, &typeID, &content, &provider, &model, &systemPrompt, &sequence); err != nil {
			return arrakis.Conversation{}, err
		}

		messageType, err := messageTypeFromID(typeID)
		if err != nil {
			return arrakis.Conversation{}, err
		}
		api, err := arrakis.NewAPI(provider, model)
		if err != nil {
			return arrakis.Conversation{}, err
		}

		conv.Name = name
		conv.Messages = append(conv.Messages, arrakis.Message{
			ID:           arrakis.Int64Ptr(msgID),
			MessageType:  messageType,
			Content:      content,
			API:          api,
			SystemPrompt: systemPrompt,
			Sequence:     sequence,
		})
	}
	if err := rows.Err(); err != nil {
		return arrakis.Conversation{}, err
	}
	if len(conv.Messages) == 0 {
		return arrakis.Conversation{}, ErrNotFound
	}

	return conv, nil
}

// ListConversations returns id and name for every saved conversation,
// most recently updated first. Message bodies are not loaded.
func (s *Store) ListConversations() ([]arrakis.Conversation, error) {
	rows, err := s.db.Query(`SELECT id, name FROM conversations ORDER BY last_updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []arrakis.Conversation
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out = append(out, arrakis.Conversation{ID: arrakis.Int64Ptr(id), Name: name})
	}
	return out, rows.Err()
}

// RecordFork links a source conversation to its fork.
func (s *Store) RecordFork(fromID, toID int64) error {
	if _, err := s.db.Exec(
		`INSERT INTO forks (from_id, to_id) VALUES (?, ?)`, fromID, toID); err != nil {
		return fmt.Errorf("failed to record fork: %w", err)
	}
	return nil
}
