package context_provider

import (
	"context"
)

// Provider is the capability interface the reply generator consumes. Any
// storage-backed implementation must satisfy it; implementations degrade to
// empty values on collaborator failure instead of propagating errors through
// the pipeline.
type Provider interface {
	// GetUserContext assembles the full context bundle for a user without a
	// specific query.
	GetUserContext(ctx context.Context, userID string) (*ContextBundle, error)

	// GetConversationContext returns the most recent conversation turns, up
	// to limit.
	GetConversationContext(ctx context.Context, userID string, limit int) ([]ConversationTurn, error)

	// GetPreferencesContext returns the user's aggregated profile.
	GetPreferencesContext(ctx context.Context, userID string) (*UserProfile, error)

	// GetMemoryContext returns memories relevant to query, or recent memories
	// when query is empty.
	GetMemoryContext(ctx context.Context, userID, query string) ([]MemoryEntry, error)

	// GetPreferencePatterns returns the user's learned preference patterns.
	GetPreferencePatterns(ctx context.Context, userID string) ([]PreferencePattern, error)

	// OrchestrateContextFlow is the single entry point invoked before every
	// reply: a full bundle enriched with query-relevant memories and an
	// analysis of the query itself.
	OrchestrateContextFlow(ctx context.Context, userID, query string) (*ContextBundle, error)

	// StoreInteractionContext persists one exchange and triggers the derived
	// updates. Returns false (never an error) when persistence fails.
	StoreInteractionContext(ctx context.Context, userID string, record InteractionRecord) bool

	// GetContextSummary returns the stored summary of the given type, with
	// ok=false for expected absence.
	GetContextSummary(ctx context.Context, userID, summaryType string) (string, bool)
}
