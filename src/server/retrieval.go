package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chamber-ai/william/src/arrakis"
	"github.com/chamber-ai/william/src/storage"
)

const (
	// contextBudget approximates the provider context window in content
	// characters; no tokenizer is loaded, matching the original's
	// fallback counting.
	contextBudget = 128000

	referenceLimit  = 10
	referenceLength = 512
)

// Embedder turns message text into an embedding vector for similarity
// search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder embeds text with the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
}

// NewOpenAIEmbedder creates an embedder backed by OpenAI.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: openai.NewClient(apiKey)}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding request returned no data")
	}
	return resp.Data[0].Embedding, nil
}

// cutoffMessages trims the oldest messages until the remaining content
// fits the context budget, returning the kept tail and its length. The
// final message is always kept so a completion has something to answer.
func cutoffMessages(messages []arrakis.Message, budget int) ([]arrakis.Message, int) {
	total := 0
	cutoff := 0
	for i := len(messages) - 1; i >= 0; i-- {
		n := len(messages[i].Content)
		if n == 0 {
			continue
		}
		if total+n > budget {
			cutoff = i + 1
			break
		}
		total += n
	}
	if cutoff >= len(messages) && len(messages) > 0 {
		cutoff = len(messages) - 1
		total = len(messages[cutoff].Content)
	}
	return messages[cutoff:], total
}

const referenceObjective = `<objective>
Determine whether to use the following references to inform your response, and do so without explicitly acknowledging it.
Incorporate into your judgment whether this moves the conversation forward, in the same direction as the user.
If you decide to use it, do so in a friendly, familiar manner; leave what should stay unsaid, but implicitly acknowledge the history.
If reasonable, try and use the references to fill in contextual gaps.
</objective>`

// buildSystemPrompt wraps the base prompt with retrieved references.
// Each reference is clipped and references stop once the conversation
// plus prompt would exceed the context budget. With no references the
// base prompt is returned untouched.
func buildSystemPrompt(base string, refs []storage.Reference, conversationLen int) string {
	if len(refs) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString("<systemPrompt>")
	b.WriteString(base)
	b.WriteString(referenceObjective)
	b.WriteString("<references>")
	for _, ref := range refs {
		if conversationLen+b.Len() > contextBudget {
			break
		}
		content := ref.Content
		if len(content) > referenceLength {
			content = content[:referenceLength]
		}
		b.WriteString("<reference>")
		b.WriteString(content)
		b.WriteString("</reference>")
	}
	b.WriteString("</references>")
	b.WriteString("</systemPrompt>")
	return b.String()
}

// augmentWithReferences runs the retrieval pass for one completion: embed
// the prompting message, surface similar past messages into the system
// prompt, and index the prompting message for future retrieval. Every
// failure degrades to the plain prompt; retrieval never blocks a
// completion.
func (s *Server) augmentWithReferences(ctx context.Context, prompting arrakis.Message, systemPrompt string, conversationLen int) string {
	if s.embedder == nil || prompting.Content == "" {
		return systemPrompt
	}

	vec, err := s.embedder.Embed(ctx, prompting.Content)
	if err != nil {
		s.logger.Warn("failed to embed message", "error", err)
		return systemPrompt
	}

	// Search before indexing so the prompting message never cites itself.
	refs, err := s.store.SearchSimilarMessages(vec, referenceLimit)
	if err != nil {
		s.logger.Warn("failed to fetch references", "error", err)
		refs = nil
	}

	if prompting.ID != nil {
		if err := s.store.AddMessageEmbedding(*prompting.ID, vec); err != nil {
			s.logger.Warn("failed to index message embedding", "error", err)
		}
	}

	return buildSystemPrompt(systemPrompt, refs, conversationLen)
}
