package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/chamber-ai/william/src/arrakis"
)

// Namer produces a short display name for a conversation from its first
// user message.
type Namer interface {
	Name(ctx context.Context, content string) (string, error)
}

const (
	namerModel  = "gpt-4o-mini"
	namerPrompt = "Generate a short, descriptive title for a conversation that starts with the following message. Respond with the title only, no quotes, at most six words."
)

// OpenAINamer names conversations with a one-shot chat completion.
type OpenAINamer struct {
	client *openai.Client
}

// NewOpenAINamer creates a namer backed by OpenAI.
func NewOpenAINamer(apiKey string) *OpenAINamer {
	return &OpenAINamer{client: openai.NewClient(apiKey)}
}

func (n *OpenAINamer) Name(ctx context.Context, content string) (string, error) {
	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: namerModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: namerPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return "", fmt.Errorf("name generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("name generation returned no choices")
	}
	return sanitizeName(resp.Choices[0].Message.Content), nil
}

// sanitizeName strips characters that are awkward in display names and
// file paths.
func sanitizeName(name string) string {
	name = strings.TrimSpace(strings.Trim(name, `"'`))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == ',', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// generateName replaces a placeholder GUID name with a model-generated
// title. Naming failures are logged and ignored; the GUID name stands.
func (s *Server) generateName(ctx context.Context, conv *arrakis.Conversation) {
	if s.namer == nil || len(conv.Messages) == 0 {
		return
	}
	if _, err := uuid.Parse(conv.Name); err != nil {
		return
	}
	name, err := s.namer.Name(ctx, conv.Messages[0].Content)
	if err != nil {
		s.logger.Warn("failed to generate conversation name", "error", err)
		return
	}
	if name != "" {
		conv.Name = name
	}
}

// systemPromptFor picks the prompt for a completion: the message's own
// prompt wins, otherwise the stored shared prompt.
func (s *Server) systemPromptFor(msg arrakis.Message) string {
	if msg.SystemPrompt != "" {
		return msg.SystemPrompt
	}
	prompt, err := s.prompts.Read()
	if err != nil {
		s.logger.Warn("failed to read system prompt", "error", err)
		return ""
	}
	return prompt
}

// runCompletion drives one streamed completion: name the conversation,
// persist it so every message carries an id, stream deltas to the client,
// then persist the finished reply.
func (s *Server) runCompletion(ctx context.Context, c *wsConn, conv arrakis.Conversation) {
	if len(conv.Messages) < 2 {
		s.sendError(c, "Completion", errors.New("conversation needs a user message and a reply placeholder"))
		return
	}

	s.generateName(ctx, &conv)

	if err := s.store.UpsertConversation(&conv); err != nil {
		s.sendError(c, "Completion", err)
		return
	}

	last := &conv.Messages[len(conv.Messages)-1]
	prompting := conv.Messages[len(conv.Messages)-2]
	requestID := *prompting.ID
	responseID := *last.ID

	payload, payloadLen := cutoffMessages(conv.Messages[:len(conv.Messages)-1], contextBudget)
	systemPrompt := s.augmentWithReferences(ctx, prompting, s.systemPromptFor(prompting), payloadLen)

	deltas := make(chan string, 16)
	errc := make(chan error, 1)
	go func() {
		defer close(deltas)
		errc <- s.streamer.Stream(ctx, prompting.API, payload, systemPrompt, deltas)
	}()

	for delta := range deltas {
		last.Content += delta
		if err := s.sendResponse(c, arrakis.CompletionResponse{Completion: arrakis.Completion{
			Stream:         true,
			Delta:          delta,
			Name:           conv.Name,
			ConversationID: *conv.ID,
			RequestID:      requestID,
			ResponseID:     responseID,
		}}); err != nil {
			s.logger.Warn("failed to write delta", "error", err)
		}
	}
	if err := <-errc; err != nil {
		s.sendError(c, "Completion", err)
		return
	}

	if err := s.store.UpsertConversation(&conv); err != nil {
		s.sendError(c, "Completion", err)
		return
	}
	if err := s.sendResponse(c, arrakis.CompletionEndResponse{}); err != nil {
		s.logger.Warn("failed to write completion end", "error", err)
	}
}

// runFork builds a new conversation from a prefix of an existing one and
// immediately regenerates the trailing assistant reply.
func (s *Server) runFork(ctx context.Context, c *wsConn, req arrakis.Fork) {
	source, err := s.store.GetConversation(req.ConversationID)
	if err != nil {
		s.sendError(c, "Fork", err)
		return
	}
	sequence := int(req.Sequence)
	if sequence >= len(source.Messages) {
		s.sendError(c, "Fork", fmt.Errorf("sequence %d out of range", sequence))
		return
	}

	fork := source.Clone()
	fork.ID = nil
	fork.Name = "Fork: " + source.Name
	fork.Messages = fork.Messages[:sequence+1]

	last := &fork.Messages[len(fork.Messages)-1]
	if last.MessageType == arrakis.MessageTypeAssistant {
		// Regenerating the reply itself: clear it and stream fresh.
		last.ID = nil
		last.Content = ""
	} else {
		fork.Messages = append(fork.Messages, arrakis.Message{
			MessageType:  arrakis.MessageTypeAssistant,
			API:          last.API,
			SystemPrompt: last.SystemPrompt,
			Sequence:     len(fork.Messages),
		})
	}
	// Shared message rows belong to the source; the fork gets its own.
	for i := range fork.Messages {
		fork.Messages[i].ID = nil
		fork.Messages[i].Sequence = i
	}

	if err := s.store.UpsertConversation(&fork); err != nil {
		s.sendError(c, "Fork", err)
		return
	}
	if err := s.store.RecordFork(req.ConversationID, *fork.ID); err != nil {
		s.sendError(c, "Fork", err)
		return
	}

	s.runCompletion(ctx, c, fork)
}
