// Package arrakis defines the wire protocol spoken between the william
// client and its backend: conversation and message shapes, the closed
// provider/model sets, and the tagged request/response envelopes.
package arrakis

// MessageType identifies who authored a message.
type MessageType string

const (
	MessageTypeSystem    MessageType = "System"
	MessageTypeUser      MessageType = "User"
	MessageTypeAssistant MessageType = "Assistant"
)

// Valid reports whether the message type is one of the closed set.
func (m MessageType) Valid() bool {
	switch m {
	case MessageTypeSystem, MessageTypeUser, MessageTypeAssistant:
		return true
	}
	return false
}

// Message is a single entry in a conversation transcript. ID is nil until
// the backend persists the message and assigns one.
type Message struct {
	ID           *int64      `json:"id"`
	MessageType  MessageType `json:"message_type" validate:"message_type"`
	Content      string      `json:"content"`
	API          API         `json:"api"`
	SystemPrompt string      `json:"system_prompt"`
	Sequence     int         `json:"sequence" validate:"min=0"`
}

// Conversation is an ordered transcript plus its identity. ID is nil until
// the backend persists the conversation. Messages are ordered by Sequence,
// starting at 0, strictly increasing with no gaps.
type Conversation struct {
	ID       *int64    `json:"id"`
	Name     string    `json:"name"`
	Messages []Message `json:"messages" validate:"dive"`
}

// Clone returns a deep copy of the conversation. The message slice is
// copied so callers can mutate the result without aliasing the original.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// Int64Ptr is a convenience for building optional wire ids.
func Int64Ptr(v int64) *int64 { return &v }

// Ping is the keep-alive payload, identical in both directions.
type Ping struct {
	Body string `json:"body"`
}

// Load asks the backend for a full conversation by id.
type Load struct {
	ID int64 `json:"id" validate:"required"`
}

// SystemPrompt reads or writes the saved system prompt depending on Write.
type SystemPrompt struct {
	Content string `json:"content"`
	Write   bool   `json:"write"`
}

// Fork branches a conversation at a message sequence. History after the
// fork point is kept on the original conversation only.
type Fork struct {
	ConversationID int64 `json:"conversationId" validate:"required"`
	Sequence       int64 `json:"sequence" validate:"min=0"`
}

// ConversationList carries conversation summaries; the backend omits
// message bodies when listing.
type ConversationList struct {
	Conversations []Conversation `json:"conversations"`
}

// Completion is one streamed fragment of an assistant reply plus the ids
// the backend assigned when it persisted the exchange.
type Completion struct {
	Stream         bool   `json:"stream"`
	Delta          string `json:"delta"`
	Name           string `json:"name"`
	ConversationID int64  `json:"conversationId"`
	RequestID      int64  `json:"requestId"`
	ResponseID     int64  `json:"responseId"`
}

// WilliamError is the backend's error frame.
type WilliamError struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}
