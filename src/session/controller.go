// Package session owns the client's loaded conversation: it translates
// user intents into wire requests and folds inbound responses back into
// conversation state. Exactly one conversation is loaded at a time.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/chamber-ai/william/src/arrakis"
)

// Sender is the outbound half of the connection the controller drives.
type Sender interface {
	Send(req arrakis.Request) error
}

// ErrNotPersisted is returned for operations that need a backend-assigned
// conversation id before they make sense.
var ErrNotPersisted = errors.New("conversation has not been persisted yet")

// Config configures a Controller.
type Config struct {
	Sender Sender
	// API is the provider/model selector stamped onto outgoing messages.
	API arrakis.API
	// SystemPrompt is the initial system prompt; the backend's saved
	// prompt replaces it once fetched.
	SystemPrompt string
	Logger       *slog.Logger
	// OnChange, when set, is called with a snapshot after every state
	// change. It runs on the handler's goroutine; keep it cheap.
	OnChange func(arrakis.Conversation)
}

// Controller is the orchestration glue between the connection and the
// conversation value. All state is guarded by one mutex, so intents and
// inbound responses behave as discrete, non-overlapping handlers.
type Controller struct {
	sender Sender
	logger *slog.Logger

	mu            sync.Mutex
	conv          arrakis.Conversation
	conversations []arrakis.Conversation
	systemPrompt  string
	api           arrakis.API
	streaming     bool
	lastErr       error
	onChange      func(arrakis.Conversation)
}

// New creates a controller with a fresh empty conversation loaded.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		sender:       cfg.Sender,
		logger:       logger.With("component", "session"),
		systemPrompt: cfg.SystemPrompt,
		api:          cfg.API,
		onChange:     cfg.OnChange,
	}
	c.conv = newConversation()
	return c
}

func newConversation() arrakis.Conversation {
	return arrakis.Conversation{Name: uuid.NewString()}
}

// NewConversation discards the loaded conversation and starts an empty
// one with a fresh random name and no id.
func (c *Controller) NewConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conv = newConversation()
	c.streaming = false
	c.notifyLocked()
}

// Send appends a User message with the given text plus an empty Assistant
// placeholder, then submits the whole conversation for completion. Local
// ids continue from the previous last id when one exists; otherwise they
// stay nil until the backend assigns them.
func (c *Controller) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var userID, assistantID *int64
	if n := len(c.conv.Messages); n > 0 {
		if prev := c.conv.Messages[n-1].ID; prev != nil {
			userID = arrakis.Int64Ptr(*prev + 1)
			assistantID = arrakis.Int64Ptr(*prev + 2)
		}
	}

	seq := len(c.conv.Messages)
	c.conv.Messages = append(c.conv.Messages,
		arrakis.Message{
			ID:           userID,
			MessageType:  arrakis.MessageTypeUser,
			Content:      text,
			API:          c.api,
			SystemPrompt: c.systemPrompt,
			Sequence:     seq,
		},
		arrakis.Message{
			ID:           assistantID,
			MessageType:  arrakis.MessageTypeAssistant,
			Content:      "",
			API:          c.api,
			SystemPrompt: c.systemPrompt,
			Sequence:     seq + 1,
		},
	)
	c.streaming = true
	c.notifyLocked()

	return c.send(arrakis.CompletionRequest{Conversation: c.conv.Clone()})
}

// Load asks the backend for a saved conversation. The loaded conversation
// is replaced wholesale when the response arrives.
func (c *Controller) Load(id int64) error {
	return c.send(arrakis.LoadRequest{Load: arrakis.Load{ID: id}})
}

// Fork branches the loaded conversation at the given message sequence.
// The local truncation is optimistic: messages after sequence are dropped
// and the message at sequence becomes an empty Assistant placeholder
// stamped with the current prompt and selector, so the user can re-send
// immediately without waiting for the backend's acknowledgment.
func (c *Controller) Fork(sequence int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sequence < 0 || sequence >= len(c.conv.Messages) {
		return fmt.Errorf("fork sequence %d out of range (%d messages)", sequence, len(c.conv.Messages))
	}
	if c.conv.ID == nil {
		return ErrNotPersisted
	}
	conversationID := *c.conv.ID

	c.conv.Messages = c.conv.Messages[:sequence+1]
	last := &c.conv.Messages[sequence]
	last.ID = nil
	last.MessageType = arrakis.MessageTypeAssistant
	last.Content = ""
	last.SystemPrompt = c.systemPrompt
	last.API = c.api
	// The backend answers a fork by regenerating the trailing reply, so
	// the stream is in flight as soon as the request is out.
	c.streaming = true
	c.notifyLocked()

	return c.send(arrakis.ForkRequest{Fork: arrakis.Fork{
		ConversationID: conversationID,
		Sequence:       int64(sequence),
	}})
}

// Regenerate re-requests the last assistant reply: it forks at the final
// message and resubmits the truncated conversation for completion.
func (c *Controller) Regenerate() error {
	c.mu.Lock()
	n := len(c.conv.Messages)
	c.mu.Unlock()
	if n == 0 {
		return errors.New("nothing to regenerate")
	}

	if err := c.Fork(n - 1); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = true
	return c.send(arrakis.CompletionRequest{Conversation: c.conv.Clone()})
}

// ListConversations requests summaries of every saved conversation.
func (c *Controller) ListConversations() error {
	return c.send(arrakis.ConversationListRequest{})
}

// FetchSystemPrompt asks the backend for the saved system prompt.
func (c *Controller) FetchSystemPrompt() error {
	return c.send(arrakis.SystemPromptRequest{SystemPrompt: arrakis.SystemPrompt{Write: false}})
}

// SaveSystemPrompt updates the system prompt locally and persists it.
func (c *Controller) SaveSystemPrompt(content string) error {
	c.mu.Lock()
	c.systemPrompt = content
	c.mu.Unlock()
	return c.send(arrakis.SystemPromptRequest{SystemPrompt: arrakis.SystemPrompt{
		Content: content,
		Write:   true,
	}})
}

// SetAPI changes the provider/model selector stamped onto future messages.
func (c *Controller) SetAPI(api arrakis.API) error {
	if err := api.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.api = api
	c.mu.Unlock()
	return nil
}

// HandleResponse routes one inbound response into state. It is intended
// to be wired as the connection's inbound handler.
func (c *Controller) HandleResponse(resp arrakis.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch r := resp.(type) {
	case arrakis.CompletionResponse:
		c.conv = ApplyDelta(c.conv, r.Completion)
		c.notifyLocked()
	case arrakis.CompletionEndResponse:
		c.streaming = false
		c.notifyLocked()
	case arrakis.LoadResponse:
		c.conv = r.Conversation.Clone()
		c.streaming = false
		c.notifyLocked()
	case arrakis.ConversationListResponse:
		c.conversations = r.Conversations
	case arrakis.SystemPromptResponse:
		c.systemPrompt = r.Content
	case arrakis.PingResponse:
		// Keep-alive is the connection layer's concern.
	case arrakis.ErrorResponse:
		c.lastErr = fmt.Errorf("%s: %s", r.ErrorType, r.Message)
		c.logger.Warn("backend error", "type", r.ErrorType, "message", r.Message)
		if r.ErrorType == string(arrakis.MethodFork) && c.conv.ID != nil {
			// The optimistic truncation no longer matches the backend;
			// reload the source conversation to restore server truth.
			if err := c.send(arrakis.LoadRequest{Load: arrakis.Load{ID: *c.conv.ID}}); err != nil {
				c.logger.Warn("fork recovery load failed", "error", err)
			}
		}
	default:
		c.logger.Warn("unhandled response", "method", resp.Method())
	}
}

// Conversation returns a snapshot of the loaded conversation.
func (c *Controller) Conversation() arrakis.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Clone()
}

// Conversations returns the most recent conversation list snapshot.
func (c *Controller) Conversations() []arrakis.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]arrakis.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

// SystemPrompt returns the current system prompt.
func (c *Controller) SystemPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.systemPrompt
}

// Streaming reports whether a completion is currently streaming in.
func (c *Controller) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// LastError returns the most recent backend error frame, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) send(req arrakis.Request) error {
	if err := c.sender.Send(req); err != nil {
		c.logger.Warn("send failed", "method", req.Method(), "error", err)
		return err
	}
	return nil
}

func (c *Controller) notifyLocked() {
	if c.onChange != nil {
		c.onChange(c.conv.Clone())
	}
}
