package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamber-ai/william/src/arrakis"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "william.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testAPI() arrakis.API {
	return arrakis.API{Provider: arrakis.ProviderOpenAI, Model: "gpt-4o"}
}

func testConversation() arrakis.Conversation {
	return arrakis.Conversation{
		Name: "test conversation",
		Messages: []arrakis.Message{
			{
				MessageType:  arrakis.MessageTypeUser,
				Content:      "hello there",
				API:          testAPI(),
				SystemPrompt: "be helpful",
				Sequence:     0,
			},
			{
				MessageType:  arrakis.MessageTypeAssistant,
				Content:      "hi!",
				API:          testAPI(),
				SystemPrompt: "be helpful",
				Sequence:     1,
			},
		},
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "william.sqlite")

	store, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Schema application must survive a reopen.
	store, err = Open(path, nil)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestUpsertAssignsIDs(t *testing.T) {
	store := openTestStore(t)

	conv := testConversation()
	require.NoError(t, store.UpsertConversation(&conv))

	require.NotNil(t, conv.ID)
	for i, msg := range conv.Messages {
		require.NotNil(t, msg.ID, "message %d should have an id", i)
	}
}

func TestUpsertGetRoundTrip(t *testing.T) {
	store := openTestStore(t)

	conv := testConversation()
	require.NoError(t, store.UpsertConversation(&conv))

	loaded, err := store.GetConversation(*conv.ID)
	require.NoError(t, err)

	assert.Equal(t, conv.Name, loaded.Name)
	require.Len(t, loaded.Messages, 2)
	for i := range conv.Messages {
		assert.Equal(t, conv.Messages[i].Content, loaded.Messages[i].Content)
		assert.Equal(t, conv.Messages[i].MessageType, loaded.Messages[i].MessageType)
		assert.Equal(t, conv.Messages[i].API, loaded.Messages[i].API)
		assert.Equal(t, i, loaded.Messages[i].Sequence)
	}
}

func TestUpsertUpdatesInPlace(t *testing.T) {
	store := openTestStore(t)

	conv := testConversation()
	require.NoError(t, store.UpsertConversation(&conv))
	firstID := *conv.ID

	conv.Name = "renamed"
	conv.Messages[1].Content = "hi! (edited)"
	require.NoError(t, store.UpsertConversation(&conv))
	assert.Equal(t, firstID, *conv.ID)

	loaded, err := store.GetConversation(firstID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", loaded.Name)
	assert.Equal(t, "hi! (edited)", loaded.Messages[1].Content)

	list, err := store.ListConversations()
	require.NoError(t, err)
	assert.Len(t, list, 1, "update must not create a second conversation")
}

func TestGetConversationNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetConversation(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListConversations(t *testing.T) {
	store := openTestStore(t)

	first := testConversation()
	require.NoError(t, store.UpsertConversation(&first))
	second := testConversation()
	second.Name = "second"
	require.NoError(t, store.UpsertConversation(&second))

	list, err := store.ListConversations()
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, c := range list {
		assert.NotNil(t, c.ID)
		assert.Empty(t, c.Messages, "listing must not load message bodies")
	}
}

func TestRecordFork(t *testing.T) {
	store := openTestStore(t)

	original := testConversation()
	require.NoError(t, store.UpsertConversation(&original))

	fork := testConversation()
	fork.Name = "Fork: test conversation"
	fork.Messages = fork.Messages[:1]
	require.NoError(t, store.UpsertConversation(&fork))

	require.NoError(t, store.RecordFork(*original.ID, *fork.ID))

	var count int
	require.NoError(t, store.DB().QueryRow(
		`SELECT COUNT(*) FROM forks WHERE from_id = ? AND to_id = ?`,
		*original.ID, *fork.ID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMessageEmbeddingSearch(t *testing.T) {
	store := openTestStore(t)

	conv := testConversation()
	require.NoError(t, store.UpsertConversation(&conv))
	first, second := *conv.Messages[0].ID, *conv.Messages[1].ID

	require.NoError(t, store.AddMessageEmbedding(first, []float32{1, 0}))
	require.NoError(t, store.AddMessageEmbedding(second, []float32{0, 1}))

	refs, err := store.SearchSimilarMessages([]float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, first, refs[0].MessageID)
	assert.Equal(t, "hello there", refs[0].Content)
	assert.InDelta(t, 1.0, refs[0].Score, 1e-9)
	assert.Equal(t, second, refs[1].MessageID)
	assert.InDelta(t, 0.0, refs[1].Score, 1e-9)

	refs, err = store.SearchSimilarMessages([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, refs, 1, "limit must cap the result set")
	assert.Equal(t, first, refs[0].MessageID)
}

func TestAddMessageEmbeddingKeepsFirstVector(t *testing.T) {
	store := openTestStore(t)

	conv := testConversation()
	require.NoError(t, store.UpsertConversation(&conv))
	id := *conv.Messages[0].ID

	require.NoError(t, store.AddMessageEmbedding(id, []float32{1, 0}))
	require.NoError(t, store.AddMessageEmbedding(id, []float32{0, 1}))

	refs, err := store.SearchSimilarMessages([]float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.InDelta(t, 1.0, refs[0].Score, 1e-9, "a second add must not replace the stored vector")
}

func TestUpsertRejectsUnknownModel(t *testing.T) {
	store := openTestStore(t)

	conv := testConversation()
	conv.Messages[0].API = arrakis.API{Provider: arrakis.ProviderOpenAI, Model: "not-a-model"}
	assert.Error(t, store.UpsertConversation(&conv))
}
