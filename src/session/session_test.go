package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamber-ai/william/src/arrakis"
)

type fakeSender struct {
	sent []arrakis.Request
	err  error
}

func (f *fakeSender) Send(req arrakis.Request) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, req)
	return nil
}

func testAPI() arrakis.API {
	return arrakis.API{Provider: arrakis.ProviderAnthropic, Model: "claude-3-5-sonnet-latest"}
}

func newTestController(sender Sender) *Controller {
	return New(Config{Sender: sender, API: testAPI(), SystemPrompt: "be kind"})
}

func TestSendAppendsUserAndPlaceholder(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)

	require.NoError(t, c.Send("hello"))

	conv := c.Conversation()
	require.Len(t, conv.Messages, 2)

	user := conv.Messages[0]
	assert.Nil(t, user.ID)
	assert.Equal(t, arrakis.MessageTypeUser, user.MessageType)
	assert.Equal(t, "hello", user.Content)
	assert.Equal(t, 0, user.Sequence)

	placeholder := conv.Messages[1]
	assert.Nil(t, placeholder.ID)
	assert.Equal(t, arrakis.MessageTypeAssistant, placeholder.MessageType)
	assert.Equal(t, "", placeholder.Content)
	assert.Equal(t, 1, placeholder.Sequence)

	require.Len(t, sender.sent, 1)
	completion, ok := sender.sent[0].(arrakis.CompletionRequest)
	require.True(t, ok)
	assert.Len(t, completion.Messages, 2)
}

func TestSendContinuesIDsFromPreviousMessage(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)
	require.NoError(t, c.Send("first"))

	// Stream in a delta so the pair gets backend ids.
	c.HandleResponse(arrakis.CompletionResponse{Completion: arrakis.Completion{
		Stream: true, Delta: "ok", Name: "x",
		ConversationID: 5, RequestID: 10, ResponseID: 11,
	}})

	require.NoError(t, c.Send("second"))
	conv := c.Conversation()
	require.Len(t, conv.Messages, 4)
	require.NotNil(t, conv.Messages[2].ID)
	require.NotNil(t, conv.Messages[3].ID)
	assert.Equal(t, int64(12), *conv.Messages[2].ID)
	assert.Equal(t, int64(13), *conv.Messages[3].ID)
}

func TestApplyDeltaScenario(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)
	require.NoError(t, c.Send("hello"))

	c.HandleResponse(arrakis.CompletionResponse{Completion: arrakis.Completion{
		Stream: true, Delta: "Hi", Name: "x",
		ConversationID: 5, RequestID: 10, ResponseID: 11,
	}})

	conv := c.Conversation()
	require.NotNil(t, conv.ID)
	assert.Equal(t, int64(5), *conv.ID)
	assert.Equal(t, "x", conv.Name)

	require.Len(t, conv.Messages, 2)
	require.NotNil(t, conv.Messages[0].ID)
	assert.Equal(t, int64(10), *conv.Messages[0].ID)
	require.NotNil(t, conv.Messages[1].ID)
	assert.Equal(t, int64(11), *conv.Messages[1].ID)
	assert.Equal(t, "Hi", conv.Messages[1].Content)
}

func TestApplyDeltaConcatenatesFragmentsInOrder(t *testing.T) {
	conv := arrakis.Conversation{
		Name: "x",
		Messages: []arrakis.Message{
			{MessageType: arrakis.MessageTypeUser, Content: "hi", Sequence: 0},
			{MessageType: arrakis.MessageTypeAssistant, Content: "", Sequence: 1},
		},
	}

	fragments := []string{"The ", "quick ", "brown ", "fox"}
	for _, frag := range fragments {
		before := len(conv.Messages)
		conv = ApplyDelta(conv, arrakis.Completion{
			Stream: true, Delta: frag, Name: "x",
			ConversationID: 1, RequestID: 2, ResponseID: 3,
		})
		assert.Equal(t, before, len(conv.Messages), "delta must not add or drop messages")
	}

	assert.Equal(t, "The quick brown fox", conv.Messages[1].Content)
}

func TestApplyDeltaDoesNotMutateInput(t *testing.T) {
	conv := arrakis.Conversation{
		Name: "orig",
		Messages: []arrakis.Message{
			{MessageType: arrakis.MessageTypeUser, Content: "hi", Sequence: 0},
			{MessageType: arrakis.MessageTypeAssistant, Content: "", Sequence: 1},
		},
	}

	out := ApplyDelta(conv, arrakis.Completion{Delta: "yo", Name: "new", ConversationID: 9, RequestID: 1, ResponseID: 2})

	assert.Equal(t, "orig", conv.Name)
	assert.Nil(t, conv.ID)
	assert.Equal(t, "", conv.Messages[1].Content)
	assert.Equal(t, "yo", out.Messages[1].Content)
}

func TestForkTruncatesOptimistically(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)
	require.NoError(t, c.Send("hello"))
	c.HandleResponse(arrakis.CompletionResponse{Completion: arrakis.Completion{
		Delta: "Hi", Name: "x", ConversationID: 5, RequestID: 10, ResponseID: 11,
	}})
	require.NoError(t, c.Send("more"))
	c.HandleResponse(arrakis.CompletionResponse{Completion: arrakis.Completion{
		Delta: "Sure", Name: "x", ConversationID: 5, RequestID: 12, ResponseID: 13,
	}})

	require.NoError(t, c.Fork(1))

	conv := c.Conversation()
	require.Len(t, conv.Messages, 2)
	last := conv.Messages[1]
	assert.Equal(t, "", last.Content)
	assert.Nil(t, last.ID)
	assert.Equal(t, arrakis.MessageTypeAssistant, last.MessageType)
	assert.Equal(t, "be kind", last.SystemPrompt)
	assert.Equal(t, testAPI(), last.API)

	fork, ok := sender.sent[len(sender.sent)-1].(arrakis.ForkRequest)
	require.True(t, ok)
	assert.Equal(t, int64(5), fork.ConversationID)
	assert.Equal(t, int64(1), fork.Sequence)

	// The backend answers a fork with a regeneration stream.
	assert.True(t, c.Streaming())
	c.HandleResponse(arrakis.CompletionEndResponse{})
	assert.False(t, c.Streaming())
}

func TestForkRequiresPersistedConversation(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)
	require.NoError(t, c.Send("hello"))

	err := c.Fork(1)
	assert.ErrorIs(t, err, ErrNotPersisted)
}

func TestForkRejectsOutOfRangeSequence(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)
	require.NoError(t, c.Send("hello"))

	assert.Error(t, c.Fork(2))
	assert.Error(t, c.Fork(-1))
}

func TestLoadReplacesConversationWholesale(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)
	require.NoError(t, c.Send("throwaway"))

	loaded := arrakis.Conversation{
		ID:   arrakis.Int64Ptr(42),
		Name: "saved",
		Messages: []arrakis.Message{
			{ID: arrakis.Int64Ptr(1), MessageType: arrakis.MessageTypeUser, Content: "old", API: testAPI(), Sequence: 0},
		},
	}
	c.HandleResponse(arrakis.LoadResponse{Conversation: loaded})

	conv := c.Conversation()
	require.NotNil(t, conv.ID)
	assert.Equal(t, int64(42), *conv.ID)
	assert.Equal(t, "saved", conv.Name)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "old", conv.Messages[0].Content)
}

func TestSystemPromptRoundTrip(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)

	require.NoError(t, c.FetchSystemPrompt())
	read, ok := sender.sent[0].(arrakis.SystemPromptRequest)
	require.True(t, ok)
	assert.False(t, read.Write)

	c.HandleResponse(arrakis.SystemPromptResponse{SystemPrompt: arrakis.SystemPrompt{Content: "saved prompt"}})
	assert.Equal(t, "saved prompt", c.SystemPrompt())

	require.NoError(t, c.SaveSystemPrompt("new prompt"))
	write, ok := sender.sent[1].(arrakis.SystemPromptRequest)
	require.True(t, ok)
	assert.True(t, write.Write)
	assert.Equal(t, "new prompt", write.Content)
	assert.Equal(t, "new prompt", c.SystemPrompt())
}

func TestErrorResponseRecordedNotFatal(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)
	require.NoError(t, c.Send("hello"))

	before := c.Conversation()
	c.HandleResponse(arrakis.ErrorResponse{WilliamError: arrakis.WilliamError{
		ErrorType: "Completion", Message: "provider unavailable",
	}})

	assert.Error(t, c.LastError())
	assert.Equal(t, before, c.Conversation())
}

func TestForkRejectionReloadsSource(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)
	require.NoError(t, c.Send("hello"))
	c.HandleResponse(arrakis.CompletionResponse{Completion: arrakis.Completion{
		Delta: "Hi", Name: "x", ConversationID: 5, RequestID: 10, ResponseID: 11,
	}})
	require.NoError(t, c.Fork(1))

	c.HandleResponse(arrakis.ErrorResponse{WilliamError: arrakis.WilliamError{
		ErrorType: "Fork", Message: "fork failed",
	}})

	assert.Error(t, c.LastError())
	load, ok := sender.sent[len(sender.sent)-1].(arrakis.LoadRequest)
	require.True(t, ok, "a rejected fork must trigger a reload of the source")
	assert.Equal(t, int64(5), load.ID)
}

func TestNewConversationResets(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(sender)
	require.NoError(t, c.Send("hello"))
	firstName := c.Conversation().Name

	c.NewConversation()
	conv := c.Conversation()
	assert.Nil(t, conv.ID)
	assert.Empty(t, conv.Messages)
	assert.NotEqual(t, firstName, conv.Name)
}

func TestSendErrorPropagates(t *testing.T) {
	sender := &fakeSender{err: errors.New("not connected")}
	c := newTestController(sender)
	assert.Error(t, c.Send("hello"))
}
