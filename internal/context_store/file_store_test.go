package context_store

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
	"github.com/lewisedginton/travel_context_engine/internal/storage_manager"
	"github.com/lewisedginton/travel_context_engine/pkg/logger"
)

func newTestLogger() logger.Logger {
	return logger.NewLogger(logger.Config{
		Level:  logger.DebugLevel,
		Output: io.Discard,
	})
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(FileStoreConfig{
		FileProvider: storage_manager.NewLocalFileProvider(t.TempDir()),
		Logger:       newTestLogger(),
	})
}

func TestFileStoreUserPreferences(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	// Absent user returns empty, not an error
	patterns, err := store.GetUserPreferences(ctx, "user1")
	require.NoError(t, err)
	assert.Empty(t, patterns)

	pattern := context_provider.PreferencePattern{
		Category:   "travel_style",
		Value:      "luxury",
		Confidence: 0.7,
		UsageCount: 1,
		LastSeen:   time.Now(),
	}
	require.NoError(t, store.StoreUserPreference(ctx, "user1", pattern))

	patterns, err = store.GetUserPreferences(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "luxury", patterns[0].Value)
	assert.InDelta(t, 0.7, patterns[0].Confidence, 0.001)

	// Same (category, value) upserts rather than appending
	pattern.Confidence = 0.8
	pattern.UsageCount = 2
	require.NoError(t, store.StoreUserPreference(ctx, "user1", pattern))

	patterns, err = store.GetUserPreferences(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 2, patterns[0].UsageCount)

	// Different value appends
	require.NoError(t, store.StoreUserPreference(ctx, "user1", context_provider.PreferencePattern{
		Category:   "travel_style",
		Value:      "adventure",
		Confidence: 0.6,
	}))
	patterns, err = store.GetUserPreferences(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, patterns, 2)
}

func TestFileStoreConversationData(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	turns, err := store.GetConversationData(ctx, "user1", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.StoreConversationData(ctx, "user1", context_provider.ConversationTurn{
			UserID:      "user1",
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			UserMessage: fmt.Sprintf("message %d", i),
			Intent:      context_provider.IntentGeneral,
			Sentiment:   context_provider.SentimentNeutral,
		}))
	}

	turns, err = store.GetConversationData(ctx, "user1", 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "message 2", turns[0].UserMessage)
	assert.Equal(t, "message 4", turns[2].UserMessage)

	// Zero limit returns everything
	turns, err = store.GetConversationData(ctx, "user1", 0)
	require.NoError(t, err)
	assert.Len(t, turns, 5)
}

func TestFileStoreUserProfile(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	profile, err := store.GetUserProfile(ctx, "user1")
	require.NoError(t, err)
	assert.Nil(t, profile)

	saved := context_provider.UserProfile{
		UserID:                "user1",
		TravelStyle:           "luxury",
		BudgetBucket:          "high",
		PreferredDestinations: []string{"Paris", "Tokyo"},
		ConfidenceScores:      map[string]float64{"travel_style": 0.8},
		LastUpdated:           time.Now(),
	}
	require.NoError(t, store.SaveUserProfile(ctx, "user1", saved))

	profile, err = store.GetUserProfile(ctx, "user1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "luxury", profile.TravelStyle)
	assert.Equal(t, []string{"Paris", "Tokyo"}, profile.PreferredDestinations)
	assert.InDelta(t, 0.8, profile.ConfidenceScores["travel_style"], 0.001)
}

func TestFileStoreMemories(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	memories, err := store.GetMemories(ctx, "user1", 10)
	require.NoError(t, err)
	assert.Empty(t, memories)

	now := time.Now()
	entries := []context_provider.MemoryEntry{
		{ID: "m1", UserID: "user1", Content: "prefers window seats on flights", ContentType: context_provider.ContentTypePreference, Importance: 0.6, CreatedAt: now.Add(-2 * time.Hour), Tags: []string{"flights"}},
		{ID: "m2", UserID: "user1", Content: "visited Rome last spring", ContentType: context_provider.ContentTypeFact, Importance: 0.5, CreatedAt: now.Add(-time.Hour)},
		{ID: "m3", UserID: "user1", Content: "allergic to peanuts", ContentType: context_provider.ContentTypeFact, Importance: 0.9, CreatedAt: now},
	}
	for _, entry := range entries {
		require.NoError(t, store.StoreMemoryEntry(ctx, "user1", entry))
	}

	// Newest first
	memories, err = store.GetMemories(ctx, "user1", 10)
	require.NoError(t, err)
	require.Len(t, memories, 3)
	assert.Equal(t, "m3", memories[0].ID)
	assert.Equal(t, "m1", memories[2].ID)

	// Limit applies
	memories, err = store.GetMemories(ctx, "user1", 2)
	require.NoError(t, err)
	assert.Len(t, memories, 2)

	// Search matches content words
	memories, err = store.SearchMemories(ctx, "user1", "trip to Rome", 10)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "m2", memories[0].ID)

	// Search matches tags
	memories, err = store.SearchMemories(ctx, "user1", "flights", 10)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "m1", memories[0].ID)

	// Empty query matches nothing
	memories, err = store.SearchMemories(ctx, "user1", "", 10)
	require.NoError(t, err)
	assert.Empty(t, memories)

	// Delete removes the entry; deleting again is not an error
	require.NoError(t, store.DeleteMemoryEntry(ctx, "user1", "m2"))
	require.NoError(t, store.DeleteMemoryEntry(ctx, "user1", "m2"))

	memories, err = store.GetMemories(ctx, "user1", 10)
	require.NoError(t, err)
	assert.Len(t, memories, 2)
}

func TestFileStoreMemoryOverwriteById(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	entry := context_provider.MemoryEntry{
		ID: "m1", UserID: "user1", Content: "original",
		ContentType: context_provider.ContentTypeFact,
		Importance:  0.5, CreatedAt: time.Now(),
	}
	require.NoError(t, store.StoreMemoryEntry(ctx, "user1", entry))

	entry.Importance = 0.9
	require.NoError(t, store.StoreMemoryEntry(ctx, "user1", entry))

	memories, err := store.GetMemories(ctx, "user1", 10)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.InDelta(t, 0.9, memories[0].Importance, 0.001)
}

func TestFileStoreContextSummary(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	_, ok, err := store.GetContextSummary(ctx, "user1", "conversation")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.StoreContextSummary(ctx, "user1", "conversation", "mostly hotel questions"))

	summary, ok, err := store.GetContextSummary(ctx, "user1", "conversation")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "mostly hotel questions", summary)
}

func TestFileStoreListUsers(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, store.SaveUserProfile(ctx, "alice", context_provider.UserProfile{UserID: "alice"}))
	require.NoError(t, store.StoreMemoryEntry(ctx, "bob", context_provider.MemoryEntry{
		ID: "m1", UserID: "bob", Content: "x",
		ContentType: context_provider.ContentTypeFact, CreatedAt: time.Now(),
	}))

	users, err = store.ListUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, users)
}

func TestFileStoreUserIsolation(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreMemoryEntry(ctx, "alice", context_provider.MemoryEntry{
		ID: "m1", UserID: "alice", Content: "alice memory",
		ContentType: context_provider.ContentTypeFact, CreatedAt: time.Now(),
	}))

	memories, err := store.GetMemories(ctx, "bob", 10)
	require.NoError(t, err)
	assert.Empty(t, memories)
}
