// Package context_orchestrator wires analysis, memory and preference
// learning into the context provider the reply generator consumes. Every
// public method degrades to empty defaults when a collaborator fails, so
// a storage outage surfaces as a cold-start bundle rather than an error.
package context_orchestrator //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lewisedginton/travel_context_engine/internal/analysis"
	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
	"github.com/lewisedginton/travel_context_engine/internal/context_store"
	"github.com/lewisedginton/travel_context_engine/internal/memory_service"
	"github.com/lewisedginton/travel_context_engine/internal/preference_service"
	"github.com/lewisedginton/travel_context_engine/pkg/logger"
	"github.com/lewisedginton/travel_context_engine/pkg/metrics"
)

const (
	// providerName stamps every orchestrated bundle.
	providerName = "travel_context_engine"

	// ringBufferCap bounds the per-user in-memory turn buffer.
	ringBufferCap = 50

	// historyLimit is how many recent turns a bundle carries.
	historyLimit = 10

	// conversationSummaryType keys the rolling conversation summary.
	conversationSummaryType = "conversation"
)

// Orchestrator implements context_provider.Provider on top of the
// persistence store, the memory service and the preference service.
type Orchestrator struct {
	store       context_store.Store
	memories    *memory_service.Service
	preferences *preference_service.Service
	analyzer    *analysis.Analyzer
	ringBuffers map[string][]context_provider.ConversationTurn
	userLocks   map[string]*sync.Mutex // Per-user locks
	userLockMux sync.Mutex
	metrics     *metrics.Metrics
	log         logger.Logger
	now         func() time.Time
}

// Config holds configuration for the orchestrator.
type Config struct {
	Store       context_store.Store
	Memories    *memory_service.Service
	Preferences *preference_service.Service
	Logger      logger.Logger
	Metrics     *metrics.Metrics // optional
}

// New creates a new orchestrator with the given configuration.
func New(cfg Config) *Orchestrator {
	if cfg.Store == nil {
		panic("store cannot be nil")
	}
	if cfg.Memories == nil {
		panic("memory service cannot be nil")
	}
	if cfg.Preferences == nil {
		panic("preference service cannot be nil")
	}
	if cfg.Logger == nil {
		panic("logger cannot be nil")
	}

	return &Orchestrator{
		store:       cfg.Store,
		memories:    cfg.Memories,
		preferences: cfg.Preferences,
		analyzer:    analysis.NewAnalyzer(),
		ringBuffers: make(map[string][]context_provider.ConversationTurn),
		userLocks:   make(map[string]*sync.Mutex),
		metrics:     cfg.Metrics,
		log:         cfg.Logger,
		now:         time.Now,
	}
}

var _ context_provider.Provider = (*Orchestrator)(nil)

// AddConversationTurn analyzes one exchange, persists the resulting turn,
// appends it to the user's ring buffer and fans out to preference learning
// and the rolling summary. Analysis is pure; only persistence can fail.
func (o *Orchestrator) AddConversationTurn(
	ctx context.Context,
	userID, userMessage, assistantMessage string,
	metadata map[string]string,
) (*context_provider.ConversationTurn, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}

	turn := context_provider.ConversationTurn{
		UserID:           userID,
		Timestamp:        o.now(),
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		Intent:           o.analyzer.Classify(userMessage),
		Entities:         o.analyzer.Extract(userMessage),
		Sentiment:        o.analyzer.Analyze(userMessage),
		Topics:           o.analyzer.Topics(userMessage),
		Context:          metadata,
	}

	if o.metrics != nil {
		o.metrics.TurnsAnalyzedCounter.Inc()
	}

	userLock := o.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	// Seed before persisting so the buffer never starts from this turn
	// alone and shadows older persisted history.
	seeded := o.ensureBuffer(ctx, userID)

	if err := o.store.StoreConversationData(ctx, userID, turn); err != nil {
		if o.metrics != nil {
			o.metrics.StoreFailuresCounter.Inc()
		}
		return nil, fmt.Errorf("failed to store conversation turn: %w", err)
	}

	if seeded {
		o.appendToRingBuffer(userID, turn)
	}

	// Derived updates degrade independently; a failed extractor never
	// blocks the turn itself
	if err := o.preferences.LearnFromConversation(ctx, userID, preference_service.ConversationData{
		Text:     userMessage,
		Context:  metadata,
		Entities: turn.Entities,
	}); err != nil {
		o.log.Warn("Preference learning failed for turn",
			logger.UserIDField(userID),
			logger.ErrorField(err))
	}

	if err := o.updateSummary(ctx, userID); err != nil {
		o.log.Warn("Summary update failed for turn",
			logger.UserIDField(userID),
			logger.ErrorField(err))
	}

	o.log.Debug("Added conversation turn",
		logger.UserIDField(userID),
		logger.StringField("intent", string(turn.Intent)),
		logger.StringField("sentiment", string(turn.Sentiment)))

	return &turn, nil
}

// GetUserContext assembles the context bundle for a user without a query.
// Every collaborator failure is logged and degrades to an empty section.
func (o *Orchestrator) GetUserContext(ctx context.Context, userID string) (*context_provider.ContextBundle, error) {
	bundle := &context_provider.ContextBundle{
		UserID:  userID,
		Profile: context_provider.UserProfile{UserID: userID},
	}

	profile, err := o.store.GetUserProfile(ctx, userID)
	if err != nil {
		o.degrade(userID, "load user profile", err)
	} else if profile != nil {
		bundle.Profile = *profile
	}

	bundle.ConversationHistory = o.recentTurns(ctx, userID, historyLimit)

	memories, err := o.memories.GetRelevantMemories(ctx, userID, "")
	if err != nil {
		o.degrade(userID, "load relevant memories", err)
	} else {
		bundle.RelevantMemories = memories
	}

	patterns, err := o.store.GetUserPreferences(ctx, userID)
	if err != nil {
		o.degrade(userID, "load preference patterns", err)
	} else {
		bundle.PreferencePatterns = patterns
	}

	summary, ok, err := o.store.GetContextSummary(ctx, userID, conversationSummaryType)
	if err != nil {
		o.degrade(userID, "load context summary", err)
	} else if ok {
		bundle.Summary = summary
	}

	bundle.ContextQuality = contextQuality(bundle)
	return bundle, nil
}

// GetConversationContext returns the most recent turns for a user,
// oldest first, up to limit.
func (o *Orchestrator) GetConversationContext(ctx context.Context, userID string, limit int) ([]context_provider.ConversationTurn, error) {
	if limit <= 0 {
		limit = historyLimit
	}
	return o.recentTurns(ctx, userID, limit), nil
}

// GetPreferencesContext returns the user's aggregated profile, empty when
// nothing has been learned yet.
func (o *Orchestrator) GetPreferencesContext(ctx context.Context, userID string) (*context_provider.UserProfile, error) {
	profile, err := o.store.GetUserProfile(ctx, userID)
	if err != nil {
		o.degrade(userID, "load user profile", err)
		return &context_provider.UserProfile{UserID: userID}, nil
	}
	if profile == nil {
		return &context_provider.UserProfile{UserID: userID}, nil
	}
	return profile, nil
}

// GetMemoryContext returns memories relevant to query, or recent memories
// when query is empty.
func (o *Orchestrator) GetMemoryContext(ctx context.Context, userID, query string) ([]context_provider.MemoryEntry, error) {
	var (
		entries []context_provider.MemoryEntry
		err     error
	)
	if query == "" {
		entries, err = o.memories.RetrieveMemories(ctx, userID, "", 0)
	} else {
		entries, err = o.memories.GetRelevantMemories(ctx, userID, query)
	}
	if err != nil {
		o.degrade(userID, "load memories", err)
		return nil, nil
	}
	return entries, nil
}

// GetPreferencePatterns returns the user's learned preference patterns.
func (o *Orchestrator) GetPreferencePatterns(ctx context.Context, userID string) ([]context_provider.PreferencePattern, error) {
	patterns, err := o.store.GetUserPreferences(ctx, userID)
	if err != nil {
		o.degrade(userID, "load preference patterns", err)
		return nil, nil
	}
	return patterns, nil
}

// OrchestrateContextFlow is the single entry point used before every
// reply: the full bundle enriched with query-relevant memories and an
// analysis of the query itself, stamped with time and provider identity.
func (o *Orchestrator) OrchestrateContextFlow(ctx context.Context, userID, query string) (*context_provider.ContextBundle, error) {
	started := o.now()

	bundle, err := o.GetUserContext(ctx, userID)
	if err != nil {
		// GetUserContext degrades internally and never returns an error,
		// but keep the bundle usable if that ever changes
		bundle = &context_provider.ContextBundle{
			UserID:  userID,
			Profile: context_provider.UserProfile{UserID: userID},
		}
	}

	if query != "" {
		memories, err := o.memories.GetRelevantMemories(ctx, userID, query)
		if err != nil {
			o.degrade(userID, "load query memories", err)
		} else {
			bundle.RelevantMemories = memories
		}

		bundle.Query = query
		bundle.QueryAnalysis = &context_provider.QueryAnalysis{
			Intent:    o.analyzer.Classify(query),
			Entities:  o.analyzer.Extract(query),
			Sentiment: o.analyzer.Analyze(query),
			Keywords:  o.analyzer.Keywords(query),
		}
	}

	bundle.ContextQuality = contextQuality(bundle)
	bundle.OrchestratedAt = o.now()
	bundle.Provider = providerName

	if o.metrics != nil {
		o.metrics.ObserveOrchestration(o.now().Sub(started), bundle.ContextQuality)
	}

	return bundle, nil
}

// StoreInteractionContext persists one exchange and triggers the derived
// updates. Returns false when persistence fails; never an error.
func (o *Orchestrator) StoreInteractionContext(ctx context.Context, userID string, record context_provider.InteractionRecord) bool {
	_, err := o.AddConversationTurn(ctx, userID, record.UserMessage, record.AssistantMessage, record.Metadata)
	if err != nil {
		o.log.Error("Failed to store interaction context",
			logger.UserIDField(userID),
			logger.ErrorField(err))
		return false
	}
	return true
}

// GetContextSummary returns the stored summary of the given type, with
// ok=false for both absence and collaborator failure.
func (o *Orchestrator) GetContextSummary(ctx context.Context, userID, summaryType string) (string, bool) {
	summary, ok, err := o.store.GetContextSummary(ctx, userID, summaryType)
	if err != nil {
		o.degrade(userID, "load context summary", err)
		return "", false
	}
	return summary, ok
}

// recentTurns returns the newest turns for a user, oldest first. The ring
// buffer is seeded from the store on first access so restarts keep their
// history.
func (o *Orchestrator) recentTurns(ctx context.Context, userID string, limit int) []context_provider.ConversationTurn {
	userLock := o.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	if !o.ensureBuffer(ctx, userID) {
		return nil
	}
	buffer := o.ringBuffers[userID]

	if len(buffer) > limit {
		buffer = buffer[len(buffer)-limit:]
	}

	result := make([]context_provider.ConversationTurn, len(buffer))
	copy(result, buffer)
	return result
}

// ensureBuffer seeds the user's ring buffer from the store on first access.
// Returns false when the load failed and the buffer stays unseeded, so the
// buffer is never a partial view of persisted history. Callers must hold
// the user lock.
func (o *Orchestrator) ensureBuffer(ctx context.Context, userID string) bool {
	if _, ok := o.ringBuffers[userID]; ok {
		return true
	}
	stored, err := o.store.GetConversationData(ctx, userID, ringBufferCap)
	if err != nil {
		o.degrade(userID, "load conversation history", err)
		return false
	}
	o.ringBuffers[userID] = stored
	return true
}

// appendToRingBuffer adds a turn, dropping the oldest past the cap.
// Callers must hold the user lock.
func (o *Orchestrator) appendToRingBuffer(userID string, turn context_provider.ConversationTurn) {
	buffer := append(o.ringBuffers[userID], turn)
	if len(buffer) > ringBufferCap {
		buffer = buffer[len(buffer)-ringBufferCap:]
	}
	o.ringBuffers[userID] = buffer
}

// updateSummary recomputes the lightweight rolling summary from the ring
// buffer. Callers must hold the user lock.
func (o *Orchestrator) updateSummary(ctx context.Context, userID string) error {
	buffer := o.ringBuffers[userID]
	if len(buffer) == 0 {
		return nil
	}
	return o.store.StoreContextSummary(ctx, userID, conversationSummaryType, summarizeTurns(buffer))
}

// summarizeTurns folds recent turns into a short text summary of topics,
// intents and the latest sentiment.
func summarizeTurns(turns []context_provider.ConversationTurn) string {
	topicSeen := make(map[string]struct{})
	var topics []string
	intentSeen := make(map[context_provider.Intent]struct{})
	var intents []string

	start := 0
	if len(turns) > historyLimit {
		start = len(turns) - historyLimit
	}
	recent := turns[start:]

	for _, turn := range recent {
		for _, topic := range turn.Topics {
			if _, ok := topicSeen[topic]; !ok {
				topicSeen[topic] = struct{}{}
				topics = append(topics, topic)
			}
		}
		if _, ok := intentSeen[turn.Intent]; !ok {
			intentSeen[turn.Intent] = struct{}{}
			intents = append(intents, string(turn.Intent))
		}
	}

	var parts []string
	if len(topics) > 0 {
		parts = append(parts, "Topics: "+strings.Join(topics, ", "))
	}
	if len(intents) > 0 {
		parts = append(parts, "Intents: "+strings.Join(intents, ", "))
	}
	last := recent[len(recent)-1]
	parts = append(parts, "Last sentiment: "+string(last.Sentiment))

	return strings.Join(parts, ". ")
}

// contextQuality scores how much signal a bundle carries: 0.2 for each
// populated section plus 0.2 times the mean confidence score, capped at 1.
func contextQuality(bundle *context_provider.ContextBundle) float64 {
	quality := 0.0
	if !bundle.Profile.IsEmpty() {
		quality += 0.2
	}
	if len(bundle.ConversationHistory) > 0 {
		quality += 0.2
	}
	if len(bundle.RelevantMemories) > 0 {
		quality += 0.2
	}
	if len(bundle.PreferencePatterns) > 0 {
		quality += 0.2
	}
	if len(bundle.Profile.ConfidenceScores) > 0 {
		sum := 0.0
		for _, score := range bundle.Profile.ConfidenceScores {
			sum += score
		}
		quality += 0.2 * (sum / float64(len(bundle.Profile.ConfidenceScores)))
	}
	if quality > 1 {
		quality = 1
	}
	return quality
}

// degrade logs a collaborator failure that was absorbed into an empty
// default.
func (o *Orchestrator) degrade(userID, operation string, err error) {
	if o.metrics != nil {
		o.metrics.StoreFailuresCounter.Inc()
	}
	o.log.Warn("Degrading to empty context",
		logger.UserIDField(userID),
		logger.StringField("operation", operation),
		logger.ErrorField(err))
}

// getUserLock returns a user-specific lock, creating it if necessary.
func (o *Orchestrator) getUserLock(userID string) *sync.Mutex {
	o.userLockMux.Lock()
	defer o.userLockMux.Unlock()

	if lock, exists := o.userLocks[userID]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	o.userLocks[userID] = lock
	return lock
}
