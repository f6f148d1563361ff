package context_store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
	"github.com/lewisedginton/travel_context_engine/internal/storage_manager"
	"github.com/lewisedginton/travel_context_engine/pkg/logger"
)

// FileStore implements Store with JSON documents over a FileProvider.
// Documents are plain key-value records; field names round-trip unchanged.
type FileStore struct {
	fileProvider storage_manager.FileProvider
	userLocks    map[string]*sync.Mutex // Per-user locks
	userLockMux  sync.Mutex
	log          logger.Logger
}

// FileStoreConfig holds configuration for the file store.
type FileStoreConfig struct {
	FileProvider storage_manager.FileProvider
	Logger       logger.Logger
}

// NewFileStore creates a new file-backed context store.
func NewFileStore(cfg FileStoreConfig) *FileStore {
	if cfg.FileProvider == nil {
		panic("file provider cannot be nil")
	}
	if cfg.Logger == nil {
		panic("logger cannot be nil")
	}

	return &FileStore{
		fileProvider: cfg.FileProvider,
		userLocks:    make(map[string]*sync.Mutex),
		log:          cfg.Logger,
	}
}

// preferencesDoc is the on-disk shape of a user's preference patterns.
type preferencesDoc struct {
	UserID    string                               `json:"user_id"`
	UpdatedAt time.Time                            `json:"updated_at"`
	Patterns  []context_provider.PreferencePattern `json:"patterns"`
}

// conversationsDoc is the on-disk shape of a user's conversation log.
type conversationsDoc struct {
	UserID    string                              `json:"user_id"`
	UpdatedAt time.Time                           `json:"updated_at"`
	Turns     []context_provider.ConversationTurn `json:"turns"`
}

// summaryDoc is the on-disk shape of one context summary.
type summaryDoc struct {
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	UpdatedAt time.Time `json:"updated_at"`
	Summary   string    `json:"summary"`
}

// GetUserPreferences returns the stored preference patterns, or empty when
// none exist yet.
func (s *FileStore) GetUserPreferences(ctx context.Context, userID string) ([]context_provider.PreferencePattern, error) {
	var doc preferencesDoc
	found, err := s.readJSON(ctx, s.preferencesPath(userID), &doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return doc.Patterns, nil
}

// StoreUserPreference upserts one pattern keyed by (category, value).
func (s *FileStore) StoreUserPreference(ctx context.Context, userID string, pattern context_provider.PreferencePattern) error {
	lock := s.getUserLock(userID)
	lock.Lock()
	defer lock.Unlock()

	var doc preferencesDoc
	if _, err := s.readJSON(ctx, s.preferencesPath(userID), &doc); err != nil {
		return err
	}
	doc.UserID = userID
	doc.UpdatedAt = time.Now()

	replaced := false
	for i, existing := range doc.Patterns {
		if existing.Category == pattern.Category && existing.Value == pattern.Value {
			doc.Patterns[i] = pattern
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Patterns = append(doc.Patterns, pattern)
	}

	return s.writeJSON(ctx, s.preferencesPath(userID), doc)
}

// GetConversationData returns the most recent turns, oldest first, up to limit.
func (s *FileStore) GetConversationData(ctx context.Context, userID string, limit int) ([]context_provider.ConversationTurn, error) {
	var doc conversationsDoc
	found, err := s.readJSON(ctx, s.conversationsPath(userID), &doc)
	if err != nil {
		return nil, err
	}
	if !found || len(doc.Turns) == 0 {
		return nil, nil
	}

	turns := doc.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

// StoreConversationData appends one turn to the user's conversation log.
func (s *FileStore) StoreConversationData(ctx context.Context, userID string, turn context_provider.ConversationTurn) error {
	lock := s.getUserLock(userID)
	lock.Lock()
	defer lock.Unlock()

	var doc conversationsDoc
	if _, err := s.readJSON(ctx, s.conversationsPath(userID), &doc); err != nil {
		return err
	}
	doc.UserID = userID
	doc.UpdatedAt = time.Now()
	doc.Turns = append(doc.Turns, turn)

	return s.writeJSON(ctx, s.conversationsPath(userID), doc)
}

// GetUserProfile returns the stored profile, or (nil, nil) when absent.
func (s *FileStore) GetUserProfile(ctx context.Context, userID string) (*context_provider.UserProfile, error) {
	var profile context_provider.UserProfile
	found, err := s.readJSON(ctx, s.profilePath(userID), &profile)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &profile, nil
}

// SaveUserProfile persists the merged profile.
func (s *FileStore) SaveUserProfile(ctx context.Context, userID string, profile context_provider.UserProfile) error {
	lock := s.getUserLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.writeJSON(ctx, s.profilePath(userID), profile)
}

// StoreMemoryEntry upserts one memory entry document by id. A colliding id
// silently overwrites the previous document.
func (s *FileStore) StoreMemoryEntry(ctx context.Context, userID string, entry context_provider.MemoryEntry) error {
	lock := s.getUserLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.writeJSON(ctx, s.memoryPath(userID, entry.ID), entry)
}

// GetMemories returns stored memories, newest first, up to limit.
func (s *FileStore) GetMemories(ctx context.Context, userID string, limit int) ([]context_provider.MemoryEntry, error) {
	entries, err := s.loadMemories(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Newest first
	sortMemoriesByCreatedAtDesc(entries)

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// SearchMemories returns memories whose content or tags share a word with the
// query, newest first, up to limit.
func (s *FileStore) SearchMemories(ctx context.Context, userID, query string, limit int) ([]context_provider.MemoryEntry, error) {
	queryWords := extractWords(query)
	if len(queryWords) == 0 {
		return nil, nil
	}

	entries, err := s.loadMemories(ctx, userID)
	if err != nil {
		return nil, err
	}

	var matches []context_provider.MemoryEntry
	for _, entry := range entries {
		entryWords := extractWords(entry.Content)
		for _, tag := range entry.Tags {
			entryWords[strings.ToLower(tag)] = struct{}{}
		}
		if wordsIntersect(entryWords, queryWords) {
			matches = append(matches, entry)
		}
	}

	sortMemoriesByCreatedAtDesc(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// DeleteMemoryEntry removes one memory document. Absent entries are ignored.
func (s *FileStore) DeleteMemoryEntry(ctx context.Context, userID, memoryID string) error {
	lock := s.getUserLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.fileProvider.Delete(ctx, s.memoryPath(userID, memoryID))
}

// GetContextSummary returns the stored summary of the given type.
func (s *FileStore) GetContextSummary(ctx context.Context, userID, summaryType string) (string, bool, error) {
	var doc summaryDoc
	found, err := s.readJSON(ctx, s.summaryPath(userID, summaryType), &doc)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}
	return doc.Summary, true, nil
}

// StoreContextSummary persists one summary document.
func (s *FileStore) StoreContextSummary(ctx context.Context, userID, summaryType, summary string) error {
	lock := s.getUserLock(userID)
	lock.Lock()
	defer lock.Unlock()

	doc := summaryDoc{
		UserID:    userID,
		Type:      summaryType,
		UpdatedAt: time.Now(),
		Summary:   summary,
	}
	return s.writeJSON(ctx, s.summaryPath(userID, summaryType), doc)
}

// ListUsers returns every user id with stored state.
func (s *FileStore) ListUsers(ctx context.Context) ([]string, error) {
	paths, err := s.fileProvider.List(ctx, "users")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var users []string
	for _, path := range paths {
		rel := strings.TrimPrefix(path, "users/")
		parts := strings.SplitN(rel, "/", 2)
		if len(parts) < 2 || parts[0] == "" {
			continue
		}
		if _, ok := seen[parts[0]]; ok {
			continue
		}
		seen[parts[0]] = struct{}{}
		users = append(users, parts[0])
	}
	return users, nil
}

// loadMemories reads every memory document of a user.
func (s *FileStore) loadMemories(ctx context.Context, userID string) ([]context_provider.MemoryEntry, error) {
	paths, err := s.fileProvider.List(ctx, s.memoriesDir(userID))
	if err != nil {
		return nil, err
	}

	entries := make([]context_provider.MemoryEntry, 0, len(paths))
	for _, path := range paths {
		data, err := s.fileProvider.Read(ctx, path)
		if err != nil {
			s.log.Debug("Failed to read memory document",
				logger.StringField("path", path),
				logger.ErrorField(err))
			continue
		}
		var entry context_provider.MemoryEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			s.log.Warn("Skipping corrupt memory document",
				logger.StringField("path", path),
				logger.ErrorField(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// getUserLock returns a user-specific lock, creating it if necessary.
func (s *FileStore) getUserLock(userID string) *sync.Mutex {
	s.userLockMux.Lock()
	defer s.userLockMux.Unlock()

	if lock, exists := s.userLocks[userID]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	s.userLocks[userID] = lock
	return lock
}

func (s *FileStore) profilePath(userID string) string {
	return fmt.Sprintf("users/%s/profile.json", userID)
}

func (s *FileStore) preferencesPath(userID string) string {
	return fmt.Sprintf("users/%s/preferences.json", userID)
}

func (s *FileStore) conversationsPath(userID string) string {
	return fmt.Sprintf("users/%s/conversations.json", userID)
}

func (s *FileStore) memoriesDir(userID string) string {
	return fmt.Sprintf("users/%s/memories", userID)
}

func (s *FileStore) memoryPath(userID, memoryID string) string {
	return fmt.Sprintf("users/%s/memories/%s.json", userID, memoryID)
}

func (s *FileStore) summaryPath(userID, summaryType string) string {
	return fmt.Sprintf("users/%s/summaries/%s.json", userID, summaryType)
}

// readJSON reads and unmarshals a document, reporting found=false for
// expected absence.
func (s *FileStore) readJSON(ctx context.Context, path string, dest any) (bool, error) {
	exists, err := s.fileProvider.Exists(ctx, path)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", path, err)
	}
	if !exists {
		return false, nil
	}

	data, err := s.fileProvider.Read(ctx, path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return true, nil
}

// writeJSON writes a document as indented JSON.
func (s *FileStore) writeJSON(ctx context.Context, path string, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return s.fileProvider.Write(ctx, path, jsonData)
}
