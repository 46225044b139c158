package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Reference is a past message surfaced by similarity search, used to
// augment completion prompts with conversation memory.
type Reference struct {
	MessageID int64
	Content   string
	Score     float64
}

// AddMessageEmbedding records the embedding vector for a persisted
// message. A message that already has one keeps it.
func (s *Store) AddMessageEmbedding(messageID int64, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO message_embeddings (message_id, vector) VALUES (?, ?)`,
		messageID, data); err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}
	return nil
}

// SearchSimilarMessages returns up to limit past messages ranked by
// cosine similarity to the query vector, most similar first. The scan is
// linear over all stored embeddings; the corpus is one user's messages.
func (s *Store) SearchSimilarMessages(vector []float32, limit int) ([]Reference, error) {
	rows, err := s.db.Query(`
		SELECT e.message_id, e.vector, m.content
		FROM message_embeddings e
		JOIN messages m ON m.id = e.message_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var (
			id      int64
			data    []byte
			content string
		)
		if err := rows.Scan(&id, &data, &content); err != nil {
			return nil, err
		}

		var stored []float32
		if err := json.Unmarshal(data, &stored); err != nil {
			s.logger.Warn("skipping undecodable embedding", "message_id", id, "error", err)
			continue
		}

		refs = append(refs, Reference{
			MessageID: id,
			Content:   content,
			Score:     cosineSimilarity(vector, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Score > refs[j].Score })
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
