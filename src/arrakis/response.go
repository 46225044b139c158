package arrakis

// Response is one of the closed set of backend-to-client frames.
type Response interface {
	Method() Method
}

// PingResponse answers a keep-alive probe.
type PingResponse struct {
	Ping
}

func (PingResponse) Method() Method { return MethodPing }

// CompletionResponse carries one streamed delta of an assistant reply.
type CompletionResponse struct {
	Completion
}

func (CompletionResponse) Method() Method { return MethodCompletion }

// CompletionEndResponse marks the end of a streamed reply. It has no
// payload fields the client consumes.
type CompletionEndResponse struct{}

func (CompletionEndResponse) Method() Method { return MethodCompletionEnd }

// ConversationListResponse carries the saved conversation summaries.
type ConversationListResponse struct {
	ConversationList
}

func (ConversationListResponse) Method() Method { return MethodConversationList }

// LoadResponse carries a full conversation. Its payload is the bare
// Conversation shape rather than a dedicated variant; this matches the
// backend's observed behavior.
type LoadResponse struct {
	Conversation
}

func (LoadResponse) Method() Method { return MethodLoad }

// SystemPromptResponse answers a system prompt read.
type SystemPromptResponse struct {
	SystemPrompt
}

func (SystemPromptResponse) Method() Method { return MethodSystemPrompt }

// ErrorResponse reports a backend-side failure for a request.
type ErrorResponse struct {
	WilliamError
}

func (ErrorResponse) Method() Method { return MethodError }

// ParseResponse validates an untrusted frame against the response schema.
// It returns a *SchemaError on any structural failure and never panics.
func ParseResponse(raw []byte) (Response, error) {
	env, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}

	var resp Response
	switch env.Method {
	case MethodPing:
		var r PingResponse
		err = decodePayload(env, &r.Ping)
		resp = r
	case MethodCompletion:
		var r CompletionResponse
		err = decodePayload(env, &r.Completion)
		resp = r
	case MethodCompletionEnd:
		resp = CompletionEndResponse{}
	case MethodConversationList:
		var r ConversationListResponse
		err = decodePayload(env, &r.ConversationList)
		resp = r
	case MethodLoad:
		var r LoadResponse
		err = decodePayload(env, &r.Conversation)
		resp = r
	case MethodSystemPrompt:
		var r SystemPromptResponse
		err = decodePayload(env, &r.SystemPrompt)
		resp = r
	case MethodError:
		var r ErrorResponse
		err = decodePayload(env, &r.WilliamError)
		resp = r
	default:
		return nil, schemaErrorf("method", "unknown response method %q", env.Method)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// EncodeResponse serializes a response into its wire envelope.
func EncodeResponse(resp Response) ([]byte, error) {
	return encodeEnvelope(resp.Method(), responsePayload(resp))
}

func responsePayload(resp Response) any {
	switch r := resp.(type) {
	case PingResponse:
		return r.Ping
	case CompletionResponse:
		return r.Completion
	case ConversationListResponse:
		return r.ConversationList
	case LoadResponse:
		return r.Conversation
	case SystemPromptResponse:
		return r.SystemPrompt
	case ErrorResponse:
		return r.WilliamError
	default:
		return nil
	}
}
