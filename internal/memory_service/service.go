// Package memory_service implements the durable conversation memory store.
// Memory entries are taggable snippets of facts, preferences and context
// scoped to a single user, ranked at retrieval time by a weighted relevance
// score over importance, content overlap, tag overlap and recency.
package memory_service //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lewisedginton/travel_context_engine/internal/config"
	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
	"github.com/lewisedginton/travel_context_engine/internal/context_store"
	"github.com/lewisedginton/travel_context_engine/pkg/logger"
	"github.com/lewisedginton/travel_context_engine/pkg/metrics"
)

// Service provides scored storage and retrieval of per-user memory entries
// on top of a persistence store.
type Service struct {
	store       context_store.Store
	cfg         config.MemoryConfig
	userCaches  map[string][]context_provider.MemoryEntry
	userLocks   map[string]*sync.Mutex // Per-user locks
	userLockMux sync.Mutex
	metrics     *metrics.Metrics
	log         logger.Logger
	now         func() time.Time
}

// Config holds configuration for the memory service.
type Config struct {
	Store   context_store.Store
	Memory  config.MemoryConfig
	Logger  logger.Logger
	Metrics *metrics.Metrics // optional
}

// New creates a new memory service with the given configuration.
func New(cfg Config) *Service {
	if cfg.Store == nil {
		panic("store cannot be nil")
	}
	if cfg.Logger == nil {
		panic("logger cannot be nil")
	}

	memCfg := cfg.Memory
	if memCfg.DecayWindow == 0 {
		memCfg.DecayWindow = 90 * 24 * time.Hour
	}
	if memCfg.ImportanceThreshold == 0 {
		memCfg.ImportanceThreshold = 0.3
	}
	if memCfg.RelevanceThreshold == 0 {
		memCfg.RelevanceThreshold = 0.3
	}
	if memCfg.RecencyWindow == 0 {
		memCfg.RecencyWindow = 30 * 24 * time.Hour
	}
	if memCfg.RetrieveLimit == 0 {
		memCfg.RetrieveLimit = 10
	}

	return &Service{
		store:      cfg.Store,
		cfg:        memCfg,
		userCaches: make(map[string][]context_provider.MemoryEntry),
		userLocks:  make(map[string]*sync.Mutex),
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		now:        time.Now,
	}
}

// StoreMemoryRequest describes a memory entry to be stored.
type StoreMemoryRequest struct {
	UserID      string
	Content     string
	ContentType context_provider.ContentType

	// Importance defaults to 0.5 when nil. Values are clamped to [0,1].
	Importance *float64

	Tags     []string
	Metadata map[string]string
}

// StoreMemory persists a new memory entry and returns its id.
// The id is derived deterministically from the user, content type,
// storage timestamp and a hash of the content.
func (s *Service) StoreMemory(ctx context.Context, req StoreMemoryRequest) (string, error) {
	if req.UserID == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}
	if req.Content == "" {
		return "", fmt.Errorf("content cannot be empty")
	}
	if !context_provider.ValidContentTypes[req.ContentType] {
		return "", fmt.Errorf("invalid content type: %s", req.ContentType)
	}

	importance := 0.5
	if req.Importance != nil {
		importance = clamp01(*req.Importance)
	}

	now := s.now()
	entry := context_provider.MemoryEntry{
		ID:          s.memoryID(req.UserID, req.ContentType, req.Content, now),
		UserID:      req.UserID,
		Content:     req.Content,
		ContentType: req.ContentType,
		Importance:  importance,
		CreatedAt:   now,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	}

	userLock := s.getUserLock(req.UserID)
	userLock.Lock()
	defer userLock.Unlock()

	if err := s.store.StoreMemoryEntry(ctx, req.UserID, entry); err != nil {
		return "", fmt.Errorf("failed to store memory entry: %w", err)
	}

	// Keep the cache coherent only if it was already populated
	if cached, ok := s.userCaches[req.UserID]; ok {
		s.userCaches[req.UserID] = append([]context_provider.MemoryEntry{entry}, cached...)
	}

	if s.metrics != nil {
		s.metrics.MemoriesStoredCounter.Inc()
	}

	s.log.Debug("Stored memory entry",
		logger.UserIDField(req.UserID),
		logger.StringField("memory_id", entry.ID),
		logger.StringField("content_type", string(entry.ContentType)))

	return entry.ID, nil
}

// RetrieveMemories returns stored entries for a user, newest first,
// optionally filtered by content type. An empty content type matches all.
// A non-positive limit falls back to the configured retrieval limit.
func (s *Service) RetrieveMemories(
	ctx context.Context,
	userID string,
	contentType context_provider.ContentType,
	limit int,
) ([]context_provider.MemoryEntry, error) {
	if limit <= 0 {
		limit = s.cfg.RetrieveLimit
	}

	userLock := s.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	entries, err := s.loadEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]context_provider.MemoryEntry, 0, limit)
	for _, entry := range entries {
		if contentType != "" && entry.ContentType != contentType {
			continue
		}
		result = append(result, entry)
		if len(result) >= limit {
			break
		}
	}

	return result, nil
}

// GetRelevantMemories scores every entry against the query and returns
// the best matches in descending score order. Entries scoring at or below
// the relevance threshold are dropped.
func (s *Service) GetRelevantMemories(ctx context.Context, userID, query string) ([]context_provider.MemoryEntry, error) {
	userLock := s.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	entries, err := s.loadEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	queryWords := extractWords(query)
	now := s.now()

	type scoredEntry struct {
		entry context_provider.MemoryEntry
		score float64
	}

	scored := make([]scoredEntry, 0, len(entries))
	for _, entry := range entries {
		score := s.scoreEntry(entry, queryWords, now)
		if score > s.cfg.RelevanceThreshold {
			scored = append(scored, scoredEntry{entry: entry, score: score})
		}
	}

	// Entries arrive newest first, so ties keep the fresher entry ahead
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > s.cfg.RetrieveLimit {
		scored = scored[:s.cfg.RetrieveLimit]
	}

	result := make([]context_provider.MemoryEntry, 0, len(scored))
	for _, sc := range scored {
		result = append(result, sc.entry)
	}

	s.log.Debug("Scored memory retrieval",
		logger.UserIDField(userID),
		logger.IntField("candidates", len(entries)),
		logger.IntField("results", len(result)))

	return result, nil
}

// UpdateMemoryImportance overwrites the stored importance of an entry.
// The value is clamped to [0,1].
func (s *Service) UpdateMemoryImportance(ctx context.Context, userID, memoryID string, importance float64) error {
	userLock := s.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	entries, err := s.loadEntries(ctx, userID)
	if err != nil {
		return err
	}

	for i, entry := range entries {
		if entry.ID != memoryID {
			continue
		}

		entry.Importance = clamp01(importance)
		if err := s.store.StoreMemoryEntry(ctx, userID, entry); err != nil {
			return fmt.Errorf("failed to update memory entry: %w", err)
		}
		entries[i] = entry
		s.userCaches[userID] = entries
		return nil
	}

	return fmt.Errorf("memory entry not found: %s", memoryID)
}

// ForgetOldMemories removes entries that are both older than the decay
// window and below the importance threshold. Entries matching only one
// condition are kept. Returns the number of entries removed.
func (s *Service) ForgetOldMemories(ctx context.Context, userID string) (int, error) {
	userLock := s.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	entries, err := s.loadEntries(ctx, userID)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.cfg.DecayWindow)
	kept := make([]context_provider.MemoryEntry, 0, len(entries))
	removed := 0

	for _, entry := range entries {
		expired := !entry.CreatedAt.After(cutoff)
		if expired && entry.Importance < s.cfg.ImportanceThreshold {
			if err := s.store.DeleteMemoryEntry(ctx, userID, entry.ID); err != nil {
				return removed, fmt.Errorf("failed to delete memory entry %s: %w", entry.ID, err)
			}
			removed++
			continue
		}
		kept = append(kept, entry)
	}

	s.userCaches[userID] = kept

	if s.metrics != nil {
		s.metrics.MemoriesForgottenCounter.Add(float64(removed))
	}

	if removed > 0 {
		s.log.Info("Forgot old memories",
			logger.UserIDField(userID),
			logger.IntField("removed", removed))
	}

	return removed, nil
}

// SweepOldMemories runs ForgetOldMemories for every known user.
// Returns the total number of entries removed.
func (s *Service) SweepOldMemories(ctx context.Context) (int, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	total := 0
	for _, userID := range users {
		removed, err := s.ForgetOldMemories(ctx, userID)
		total += removed
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// Statistics summarises a user's stored memories.
type Statistics struct {
	TotalEntries      int                                  `json:"total_entries"`
	CountsByType      map[context_provider.ContentType]int `json:"counts_by_type"`
	AverageImportance float64                              `json:"average_importance"`
	OldestEntry       time.Time                            `json:"oldest_entry"`
	NewestEntry       time.Time                            `json:"newest_entry"`
	CacheSize         int                                  `json:"cache_size"`
}

// GetMemoryStatistics returns counts, average importance and age bounds
// for a user's memories.
func (s *Service) GetMemoryStatistics(ctx context.Context, userID string) (Statistics, error) {
	userLock := s.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	entries, err := s.loadEntries(ctx, userID)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		TotalEntries: len(entries),
		CountsByType: make(map[context_provider.ContentType]int),
		CacheSize:    len(s.userCaches[userID]),
	}

	totalImportance := 0.0
	for _, entry := range entries {
		stats.CountsByType[entry.ContentType]++
		totalImportance += entry.Importance

		if stats.OldestEntry.IsZero() || entry.CreatedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.CreatedAt
		}
		if entry.CreatedAt.After(stats.NewestEntry) {
			stats.NewestEntry = entry.CreatedAt
		}
	}

	if len(entries) > 0 {
		stats.AverageImportance = totalImportance / float64(len(entries))
	}

	return stats, nil
}

// scoreEntry computes the weighted relevance of an entry against a query:
// 0.3 importance + 0.4 content overlap + 0.2 tag overlap + 0.1 recency.
// Recency decays linearly to zero over the recency window.
func (s *Service) scoreEntry(
	entry context_provider.MemoryEntry,
	queryWords map[string]struct{},
	now time.Time,
) float64 {
	contentWords := extractWords(entry.Content)

	recency := 0.0
	age := now.Sub(entry.CreatedAt)
	if age < s.cfg.RecencyWindow {
		recency = 1 - float64(age)/float64(s.cfg.RecencyWindow)
	}

	return 0.3*entry.Importance +
		0.4*jaccardSimilarity(contentWords, queryWords) +
		0.2*tagOverlapFraction(entry.Tags, queryWords) +
		0.1*recency
}

// loadEntries returns the cached entries for a user, loading from the
// store on first access. Callers must hold the user lock.
func (s *Service) loadEntries(ctx context.Context, userID string) ([]context_provider.MemoryEntry, error) {
	if cached, ok := s.userCaches[userID]; ok {
		return cached, nil
	}

	entries, err := s.store.GetMemories(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory entries: %w", err)
	}

	s.userCaches[userID] = entries
	return entries, nil
}

// getUserLock returns a user-specific lock, creating it if necessary.
func (s *Service) getUserLock(userID string) *sync.Mutex {
	s.userLockMux.Lock()
	defer s.userLockMux.Unlock()

	if lock, exists := s.userLocks[userID]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	s.userLocks[userID] = lock
	return lock
}

// memoryID builds the deterministic entry id from the owning user,
// content type, storage time and a short hash of the content.
func (s *Service) memoryID(userID string, contentType context_provider.ContentType, content string, now time.Time) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s_%s_%d_%x", userID, contentType, now.UnixNano(), hash[:4])
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
