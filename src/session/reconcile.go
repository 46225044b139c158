package session

import "github.com/chamber-ai/william/src/arrakis"

// ApplyDelta folds one streamed completion fragment into a conversation
// and returns the updated value. The input is never mutated.
//
// The conversation is expected to end with the User message and empty
// Assistant placeholder appended by Send: the fragment text lands on the
// placeholder, the backend-assigned ids land on the pair, and the
// conversation takes whatever id and name the backend settled on when it
// first persisted the exchange. Message count and order are preserved.
//
// Deltas must be applied in arrival order; the transport preserves
// per-connection ordering, so in-order application reproduces the full
// assistant reply as the concatenation of fragments.
func ApplyDelta(conv arrakis.Conversation, delta arrakis.Completion) arrakis.Conversation {
	out := conv.Clone()
	if len(out.Messages) == 0 {
		return out
	}

	last := &out.Messages[len(out.Messages)-1]
	last.Content += delta.Delta
	last.ID = arrakis.Int64Ptr(delta.ResponseID)

	if len(out.Messages) >= 2 {
		out.Messages[len(out.Messages)-2].ID = arrakis.Int64Ptr(delta.RequestID)
	}

	out.ID = arrakis.Int64Ptr(delta.ConversationID)
	out.Name = delta.Name

	return out
}
