package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepo(newTestDB(t))

	created, err := repo.Create(ctx, "Trip Planning")
	require.NoError(t, err)
	assert.Equal(t, uint(1), created.ID)
	assert.Equal(t, "Trip Planning", created.Title)
	assert.Empty(t, created.Messages)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Trip Planning", got.Title)
	assert.NotNil(t, got.Messages)
	assert.Len(t, got.Messages, 0)
}

func TestConversationGetMissing(t *testing.T) {
	repo := NewConversationRepo(newTestDB(t))

	got, err := repo.Get(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConversationGetMaterializesOrderedMessages(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	conversations := NewConversationRepo(db)
	messages := NewMessageRepo(db)

	c, err := conversations.Create(ctx, "ordered")
	require.NoError(t, err)
	for _, text := range []string{"one", "two", "three"} {
		_, err := messages.Create(ctx, MessageCreate{ConversationID: c.ID, Content: text, MessageType: MessageTypeUser})
		require.NoError(t, err)
	}

	got, err := conversations.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "one", got.Messages[0].Content)
	assert.Equal(t, "three", got.Messages[2].Content)
}

func TestConversationListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepo(newTestDB(t))

	for _, title := range []string{"a", "b", "c"} {
		_, err := repo.Create(ctx, title)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Title)
	assert.Equal(t, "a", all[2].Title)

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].Title)
}

func TestConversationListZeroLimitIsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepo(newTestDB(t))

	for _, title := range []string{"a", "b", "c"} {
		_, err := repo.Create(ctx, title)
		require.NoError(t, err)
	}

	got, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMessageInsertKeepsConversationUpdatedAt(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	conversations := NewConversationRepo(db)
	messages := NewMessageRepo(db)

	c, err := conversations.Create(ctx, "untouched")
	require.NoError(t, err)
	before, err := conversations.Get(ctx, c.ID)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = messages.Create(ctx, MessageCreate{ConversationID: c.ID, Content: "hello", MessageType: MessageTypeUser})
	require.NoError(t, err)

	after, err := conversations.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, after.Messages, 1)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt), "updated_at moved from %s to %s", before.UpdatedAt, after.UpdatedAt)
}

func TestConversationUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepo(newTestDB(t))

	c, err := repo.Create(ctx, "old")
	require.NoError(t, err)

	unchanged, err := repo.Update(ctx, c.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, unchanged)
	assert.Equal(t, "old", unchanged.Title)

	title := "new"
	updated, err := repo.Update(ctx, c.ID, &title)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "new", updated.Title)
	assert.True(t, updated.CreatedAt.Equal(c.CreatedAt))
	assert.False(t, updated.UpdatedAt.Before(c.UpdatedAt))

	missing, err := repo.Update(ctx, 42, &title)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestConversationDeleteCascadesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	conversations := NewConversationRepo(db)
	messages := NewMessageRepo(db)

	c, err := conversations.Create(ctx, "to delete")
	require.NoError(t, err)
	_, err = messages.Create(ctx, MessageCreate{ConversationID: c.ID, Content: "hi", MessageType: MessageTypeUser})
	require.NoError(t, err)
	_, err = messages.Create(ctx, MessageCreate{ConversationID: c.ID, Content: "hello", MessageType: MessageTypeAI})
	require.NoError(t, err)

	ok, err := conversations.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	var remaining int64
	require.NoError(t, db.Model(&Message{}).Where("conversation_id = ?", c.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	listed, err := messages.ListForConversation(ctx, c.ID, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []Message{}, listed)

	ok, err = conversations.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
