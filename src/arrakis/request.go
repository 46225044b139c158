package arrakis

import (
	"bytes"
	"encoding/json"
)

// Method is the discriminant of the request and response envelopes.
type Method string

const (
	MethodConversationList Method = "ConversationList"
	MethodPing             Method = "Ping"
	MethodCompletion       Method = "Completion"
	MethodLoad             Method = "Load"
	MethodSystemPrompt     Method = "SystemPrompt"
	MethodFork             Method = "Fork"

	// Response-only methods.
	MethodCompletionEnd Method = "CompletionEnd"
	MethodError         Method = "WilliamError"
)

// envelope is the outer shape of every frame on the wire.
type envelope struct {
	Method  Method          `json:"method"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request is one of the closed set of client-to-backend frames.
type Request interface {
	Method() Method
}

// ConversationListRequest asks for summaries of every saved conversation.
// It carries no payload.
type ConversationListRequest struct{}

func (ConversationListRequest) Method() Method { return MethodConversationList }

// PingRequest is the keep-alive probe.
type PingRequest struct {
	Ping
}

func (PingRequest) Method() Method { return MethodPing }

// CompletionRequest submits the full conversation, ending in a User
// message and an empty Assistant placeholder, for a streamed reply.
type CompletionRequest struct {
	Conversation
}

func (CompletionRequest) Method() Method { return MethodCompletion }

// LoadRequest fetches a full conversation by id.
type LoadRequest struct {
	Load
}

func (LoadRequest) Method() Method { return MethodLoad }

// SystemPromptRequest reads (Write=false) or writes the saved system prompt.
type SystemPromptRequest struct {
	SystemPrompt
}

func (SystemPromptRequest) Method() Method { return MethodSystemPrompt }

// ForkRequest branches a conversation at a message sequence.
type ForkRequest struct {
	Fork
}

func (ForkRequest) Method() Method { return MethodFork }

// ParseRequest validates an untrusted frame against the request schema.
// It returns a *SchemaError on any structural failure and never panics.
func ParseRequest(raw []byte) (Request, error) {
	env, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}

	var req Request
	switch env.Method {
	case MethodConversationList:
		req, err = ConversationListRequest{}, nil
	case MethodPing:
		var r PingRequest
		err = decodePayload(env, &r.Ping)
		req = r
	case MethodCompletion:
		var r CompletionRequest
		err = decodePayload(env, &r.Conversation)
		req = r
	case MethodLoad:
		var r LoadRequest
		err = decodePayload(env, &r.Load)
		req = r
	case MethodSystemPrompt:
		var r SystemPromptRequest
		err = decodePayload(env, &r.SystemPrompt)
		req = r
	case MethodFork:
		var r ForkRequest
		err = decodePayload(env, &r.Fork)
		req = r
	default:
		return nil, schemaErrorf("method", "unknown request method %q", env.Method)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// EncodeRequest serializes a request into its wire envelope.
func EncodeRequest(req Request) ([]byte, error) {
	return encodeEnvelope(req.Method(), requestPayload(req))
}

func requestPayload(req Request) any {
	switch r := req.(type) {
	case ConversationListRequest:
		return nil
	case PingRequest:
		return r.Ping
	case CompletionRequest:
		return r.Conversation
	case LoadRequest:
		return r.Load
	case SystemPromptRequest:
		return r.SystemPrompt
	case ForkRequest:
		return r.Fork
	default:
		return nil
	}
}

func parseEnvelope(raw []byte) (envelope, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return envelope{}, asSchemaError(err)
	}
	if env.Method == "" {
		return envelope{}, schemaErrorf("method", "missing discriminant")
	}
	return env, nil
}

// decodePayload unmarshals the envelope payload into dst and runs the
// validator tags over the result.
func decodePayload(env envelope, dst any) error {
	if len(env.Payload) == 0 {
		return schemaErrorf("payload", "missing payload for method %q", env.Method)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return asSchemaError(err)
	}
	if serr := checkStruct(dst); serr != nil {
		return serr
	}
	return nil
}

func encodeEnvelope(method Method, payload any) ([]byte, error) {
	env := struct {
		Method  Method `json:"method"`
		Payload any    `json:"payload,omitempty"`
	}{Method: method, Payload: payload}
	return json.Marshal(env)
}
