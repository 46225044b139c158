package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"

	"github.com/chamber-ai/william/src/arrakis"
)

// groqBaseURL is Groq's OpenAI-compatible endpoint.
const groqBaseURL = "https://api.groq.com/openai/v1"

// Streamer produces an assistant reply for a conversation, delivering
// fragments on deltas as they arrive. Implementations close nothing; the
// caller owns the channel.
type Streamer interface {
	Stream(ctx context.Context, api arrakis.API, messages []arrakis.Message, systemPrompt string, deltas chan<- string) error
}

// ProviderKeys holds the per-provider API keys.
type ProviderKeys struct {
	OpenAI    string
	Groq      string
	Anthropic string
}

// ProviderStreamer dispatches completion requests to the real model
// providers based on the request's API selector.
type ProviderStreamer struct {
	keys   ProviderKeys
	logger *slog.Logger
}

// NewProviderStreamer creates a streamer backed by the real providers.
func NewProviderStreamer(keys ProviderKeys, logger *slog.Logger) *ProviderStreamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderStreamer{keys: keys, logger: logger.With("component", "providers")}
}

// Stream dispatches on the provider and forwards fragments to deltas.
func (p *ProviderStreamer) Stream(ctx context.Context, api arrakis.API, messages []arrakis.Message, systemPrompt string, deltas chan<- string) error {
	if err := api.Validate(); err != nil {
		return err
	}

	p.logger.Debug("streaming completion", "provider", api.Provider, "model", api.Model, "messages", len(messages))

	switch api.Provider {
	case arrakis.ProviderOpenAI:
		return p.streamOpenAI(ctx, p.keys.OpenAI, "", api.Model, messages, systemPrompt, deltas)
	case arrakis.ProviderGroq:
		return p.streamOpenAI(ctx, p.keys.Groq, groqBaseURL, api.Model, messages, systemPrompt, deltas)
	case arrakis.ProviderAnthropic:
		return p.streamAnthropic(ctx, api.Model, messages, systemPrompt, deltas)
	default:
		return fmt.Errorf("unknown provider: %q", api.Provider)
	}
}

// streamOpenAI covers both OpenAI and Groq; Groq speaks the same chat
// completions dialect behind a different base URL.
func (p *ProviderStreamer) streamOpenAI(ctx context.Context, key, baseURL, model string, messages []arrakis.Message, systemPrompt string, deltas chan<- string) error {
	if key == "" {
		return errors.New("provider API key is not configured")
	}

	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages, systemPrompt),
		Stream:   true,
	}

	stream, err := client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("create stream failed: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("stream recv failed: %w", err)
		}
		if len(resp.Choices) > 0 && resp.Choices[0].Delta.Content != "" {
			select {
			case deltas <- resp.Choices[0].Delta.Content:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func toOpenAIMessages(messages []arrakis.Message, systemPrompt string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		switch m.MessageType {
		case arrakis.MessageTypeSystem:
			role = openai.ChatMessageRoleSystem
		case arrakis.MessageTypeAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

const anthropicMaxTokens = 4096

func (p *ProviderStreamer) streamAnthropic(ctx context.Context, model string, messages []arrakis.Message, systemPrompt string, deltas chan<- string) error {
	if p.keys.Anthropic == "" {
		return errors.New("provider API key is not configured")
	}

	client := anthropic.NewClient(option.WithAPIKey(p.keys.Anthropic))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
		Messages:  toAnthropicMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	stream := client.Messages.NewStreaming(ctx, params)
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text == "" {
					continue
				}
				select {
				case deltas <- delta.Text:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream failed: %w", err)
	}
	return nil
}

func toAnthropicMessages(messages []arrakis.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		switch m.MessageType {
		case arrakis.MessageTypeAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			// System turns ride along as user content; Anthropic takes
			// the real system prompt as a top-level parameter.
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}
