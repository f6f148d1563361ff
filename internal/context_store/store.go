// Package context_store defines the persistence collaborator the engine
// suspends on, plus its concrete implementations. Every method treats
// "nothing stored yet" as an empty or absent value, never an error; errors
// are reserved for genuinely unexpected storage failures and are caught and
// degraded at each engine method boundary.
package context_store //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"

	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
)

// Store is the async persistence collaborator. Implementations are swappable
// without touching business logic; the engine depends only on this interface.
type Store interface {
	// GetUserPreferences returns the user's learned preference patterns.
	GetUserPreferences(ctx context.Context, userID string) ([]context_provider.PreferencePattern, error)

	// StoreUserPreference upserts one preference pattern, keyed by
	// (category, value).
	StoreUserPreference(ctx context.Context, userID string, pattern context_provider.PreferencePattern) error

	// GetConversationData returns the most recent turns, newest last, up to limit.
	GetConversationData(ctx context.Context, userID string, limit int) ([]context_provider.ConversationTurn, error)

	// StoreConversationData appends one conversation turn.
	StoreConversationData(ctx context.Context, userID string, turn context_provider.ConversationTurn) error

	// GetUserProfile returns the user's profile, or (nil, nil) when absent.
	GetUserProfile(ctx context.Context, userID string) (*context_provider.UserProfile, error)

	// SaveUserProfile persists the merged profile.
	SaveUserProfile(ctx context.Context, userID string, profile context_provider.UserProfile) error

	// StoreMemoryEntry upserts one memory entry by id.
	StoreMemoryEntry(ctx context.Context, userID string, entry context_provider.MemoryEntry) error

	// GetMemories returns stored memories, newest first, up to limit.
	GetMemories(ctx context.Context, userID string, limit int) ([]context_provider.MemoryEntry, error)

	// SearchMemories returns memories whose content or tags share words with
	// the query, up to limit.
	SearchMemories(ctx context.Context, userID, query string, limit int) ([]context_provider.MemoryEntry, error)

	// DeleteMemoryEntry removes one memory entry by id. Deleting an absent
	// entry is not an error.
	DeleteMemoryEntry(ctx context.Context, userID, memoryID string) error

	// GetContextSummary returns the stored summary of the given type;
	// ok=false signals expected absence.
	GetContextSummary(ctx context.Context, userID, summaryType string) (string, bool, error)

	// StoreContextSummary persists a summary of the given type.
	StoreContextSummary(ctx context.Context, userID, summaryType, summary string) error

	// ListUsers returns every user id with stored state. Used by the
	// maintenance sweep when no user is given.
	ListUsers(ctx context.Context) ([]string, error)
}
