package storage

import "github.com/chamber-ai/william/src/arrakis"

// schemaDDL creates the tables. Executed on every open; all statements
// are idempotent.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS message_types (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS providers (
    name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS models (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT,
    provider TEXT NOT NULL,
    FOREIGN KEY (provider) REFERENCES providers(name)
);

CREATE TABLE IF NOT EXISTS conversations (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    date_created TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_updated TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY,
    message_type_id INTEGER NOT NULL,
    content TEXT NOT NULL,
    model_id INTEGER NOT NULL,
    system_prompt TEXT NOT NULL,
    date_created TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (message_type_id) REFERENCES message_types(id),
    FOREIGN KEY (model_id) REFERENCES models(id)
);

CREATE TABLE IF NOT EXISTS paths (
    id INTEGER PRIMARY KEY,
    conversation_id INTEGER NOT NULL,
    message_id INTEGER NOT NULL,
    sequence INTEGER NOT NULL,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE,
    FOREIGN KEY (message_id) REFERENCES messages(id)
);

CREATE TABLE IF NOT EXISTS message_embeddings (
    message_id INTEGER PRIMARY KEY,
    vector BLOB NOT NULL,
    FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS forks (
    id INTEGER PRIMARY KEY,
    from_id INTEGER NOT NULL,
    to_id INTEGER NOT NULL,
    FOREIGN KEY (from_id) REFERENCES conversations(id) ON DELETE CASCADE,
    FOREIGN KEY (to_id) REFERENCES conversations(id) ON DELETE CASCADE
);
`

// applySchema creates tables and seeds the closed enumeration tables from
// the wire schema, so the database and the protocol always agree on which
// providers and models exist.
func (s *Store) applySchema() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return err
	}

	for name, id := range map[string]int64{"system": 0, "user": 1, "assistant": 2} {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO message_types (id, name) VALUES (?, ?)`, id, name,
		); err != nil {
			return err
		}
	}

	for _, provider := range arrakis.Providers() {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO providers (name) VALUES (?)`, string(provider),
		); err != nil {
			return err
		}
		for _, model := range arrakis.ModelsFor(provider) {
			if _, err := s.db.Exec(
				`INSERT INTO models (name, provider)
				 SELECT ?, ?
				 WHERE NOT EXISTS (SELECT 1 FROM models WHERE name = ? AND provider = ?)`,
				model, string(provider), model, string(provider),
			); err != nil {
				return err
			}
		}
	}

	return nil
}
