// Package preference_service implements the preference learning system.
// It extracts category to value signals from conversation data, folds them
// into a per-user profile and a set of confidence-scored preference
// patterns, and answers prediction and suggestion queries over both.
package preference_service //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/lewisedginton/travel_context_engine/internal/config"
	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
	"github.com/lewisedginton/travel_context_engine/internal/context_store"
	"github.com/lewisedginton/travel_context_engine/pkg/logger"
	"github.com/lewisedginton/travel_context_engine/pkg/metrics"
)

// Feedback grades a preference pattern after the fact.
type Feedback string

const (
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
	FeedbackNeutral  Feedback = "neutral"
)

// ConversationData is the per-turn input to preference learning:
// the raw user message, a structured context payload, and entities
// already extracted by analysis.
type ConversationData struct {
	Text     string
	Context  map[string]string
	Entities map[string][]string
}

// LearningRecord is one entry in the per-user learning history log.
type LearningRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Observations int       `json:"observations"`
	Categories   []string  `json:"categories"`
}

// Service learns and serves user travel preferences.
type Service struct {
	store       context_store.Store
	cfg         config.LearningConfig
	history     map[string][]LearningRecord
	userLocks   map[string]*sync.Mutex // Per-user locks
	userLockMux sync.Mutex
	metrics     *metrics.Metrics
	log         logger.Logger
	now         func() time.Time
}

// Config holds configuration for the preference service.
type Config struct {
	Store    context_store.Store
	Learning config.LearningConfig
	Logger   logger.Logger
	Metrics  *metrics.Metrics // optional
}

// New creates a new preference service with the given configuration.
func New(cfg Config) *Service {
	if cfg.Store == nil {
		panic("store cannot be nil")
	}
	if cfg.Logger == nil {
		panic("logger cannot be nil")
	}

	learnCfg := cfg.Learning
	if learnCfg.HistoryRetention == 0 {
		learnCfg.HistoryRetention = 60 * 24 * time.Hour
	}
	if learnCfg.ConfidenceStep == 0 {
		learnCfg.ConfidenceStep = 0.1
	}
	if learnCfg.PredictionThreshold == 0 {
		learnCfg.PredictionThreshold = 0.6
	}
	if learnCfg.SuggestionLimit == 0 {
		learnCfg.SuggestionLimit = 5
	}
	if learnCfg.ListCap == 0 {
		learnCfg.ListCap = 10
	}

	return &Service{
		store:     cfg.Store,
		cfg:       learnCfg,
		history:   make(map[string][]LearningRecord),
		userLocks: make(map[string]*sync.Mutex),
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		now:       time.Now,
	}
}

// LearnFromConversation extracts preference signals from one conversation
// turn and folds them into the user's patterns and profile. Turns with no
// extractable signal are a no-op.
func (s *Service) LearnFromConversation(ctx context.Context, userID string, data ConversationData) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	observations := extractObservations(data)
	if len(observations) == 0 {
		return nil
	}

	userLock := s.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	now := s.now()

	if err := s.updatePatterns(ctx, userID, observations, now); err != nil {
		return err
	}
	if err := s.updateProfile(ctx, userID, observations, now); err != nil {
		return err
	}

	s.appendHistory(userID, observations, now)

	s.log.Debug("Learned from conversation",
		logger.UserIDField(userID),
		logger.IntField("observations", len(observations)))

	return nil
}

// updatePatterns applies the pattern update rule to each observation:
// an existing (category, value) pattern averages its confidence with the
// observed one and bumps its usage count; a new pattern starts at the
// observed confidence with usage count 1.
func (s *Service) updatePatterns(
	ctx context.Context,
	userID string,
	observations []observation,
	now time.Time,
) error {
	existing, err := s.store.GetUserPreferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load preference patterns: %w", err)
	}

	byKey := make(map[string]context_provider.PreferencePattern, len(existing))
	for _, pattern := range existing {
		byKey[pattern.Category+"\x00"+pattern.Value] = pattern
	}

	learned := 0
	for _, obs := range observations {
		key := obs.category + "\x00" + obs.value

		pattern, ok := byKey[key]
		if ok {
			pattern.Confidence = (pattern.Confidence + obs.confidence) / 2
			pattern.UsageCount++
		} else {
			pattern = context_provider.PreferencePattern{
				Category:   obs.category,
				Value:      obs.value,
				Confidence: obs.confidence,
				UsageCount: 1,
			}
			learned++
		}
		pattern.LastSeen = now
		if len(obs.context) > 0 {
			if pattern.Context == nil {
				pattern.Context = make(map[string]string, len(obs.context))
			}
			for k, v := range obs.context {
				pattern.Context[k] = v
			}
		}
		byKey[key] = pattern

		if err := s.store.StoreUserPreference(ctx, userID, pattern); err != nil {
			return fmt.Errorf("failed to store preference pattern: %w", err)
		}
	}

	if s.metrics != nil && learned > 0 {
		s.metrics.PatternsLearnedCounter.Add(float64(learned))
	}

	return nil
}

// updateProfile merges the observations into the user's profile and
// refreshes the per-category confidence scores from the stored patterns.
func (s *Service) updateProfile(
	ctx context.Context,
	userID string,
	observations []observation,
	now time.Time,
) error {
	profile, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user profile: %w", err)
	}
	if profile == nil {
		profile = &context_provider.UserProfile{UserID: userID}
	}

	byCategory := make(map[string][]string)
	for _, obs := range observations {
		byCategory[obs.category] = append(byCategory[obs.category], obs.value)
	}

	profile.TravelStyle = mergeScalar(profile.TravelStyle, byCategory[CategoryTravelStyle])
	profile.BudgetBucket = mergeScalar(profile.BudgetBucket, byCategory[CategoryBudget])
	if profile.BudgetBucket != "" {
		budgetRange := RangeForBucket(profile.BudgetBucket)
		profile.BudgetRange = &budgetRange
	}

	listCap := s.cfg.ListCap
	profile.PreferredDestinations = mergeList(profile.PreferredDestinations, byCategory[CategoryDestination], listCap)
	profile.PreferredActivities = mergeList(profile.PreferredActivities, byCategory[CategoryActivity], listCap)
	profile.PreferredAccommodations = mergeList(profile.PreferredAccommodations, byCategory[CategoryAccommodation], listCap)
	profile.PreferredTransportation = mergeList(profile.PreferredTransportation, byCategory[CategoryTransportation], listCap)
	profile.DietaryPreferences = mergeList(profile.DietaryPreferences, byCategory[CategoryDietary], listCap)
	profile.AccessibilityNeeds = mergeList(profile.AccessibilityNeeds, byCategory[CategoryAccessibility], listCap)
	profile.LanguagePreferences = mergeList(profile.LanguagePreferences, byCategory[CategoryLanguage], listCap)

	patterns, err := s.store.GetUserPreferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to reload preference patterns: %w", err)
	}
	profile.ConfidenceScores = confidenceByCategory(patterns)
	profile.LastUpdated = now

	if err := s.store.SaveUserProfile(ctx, userID, *profile); err != nil {
		return fmt.Errorf("failed to save user profile: %w", err)
	}

	return nil
}

// Prediction pairs the current profile with the confident patterns that
// matched a prediction context.
type Prediction struct {
	Profile  context_provider.UserProfile
	Patterns []context_provider.PreferencePattern
}

// PredictPreferences returns the user's profile together with every
// pattern above the prediction confidence threshold whose category or
// value words overlap the given context text.
func (s *Service) PredictPreferences(ctx context.Context, userID, contextText string) (Prediction, error) {
	profile, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to load user profile: %w", err)
	}

	prediction := Prediction{}
	if profile != nil {
		prediction.Profile = *profile
	} else {
		prediction.Profile = context_provider.UserProfile{UserID: userID}
	}

	patterns, err := s.store.GetUserPreferences(ctx, userID)
	if err != nil {
		return prediction, fmt.Errorf("failed to load preference patterns: %w", err)
	}

	contextWords := wordsOf(contextText)
	for _, pattern := range patterns {
		if pattern.Confidence <= s.cfg.PredictionThreshold {
			continue
		}
		patternWords := wordsOf(pattern.Category + " " + pattern.Value)
		if overlaps(patternWords, contextWords) {
			prediction.Patterns = append(prediction.Patterns, pattern)
		}
	}

	return prediction, nil
}

// suggestion query classes and their trigger keywords
var suggestionRules = []struct {
	class    string
	keywords []string
}{
	{class: "destination", keywords: []string{"where", "destination", "country", "city", "place", "visit", "go"}},
	{class: "accommodation", keywords: []string{"hotel", "stay", "accommodation", "hostel", "resort"}},
	{class: "dining", keywords: []string{"eat", "food", "restaurant", "dining", "cuisine"}},
	{class: "activity", keywords: []string{"do", "activity", "activities", "fun", "adventure", "see"}},
}

// GetPreferenceSuggestions classifies the query and returns up to the
// configured number of matching profile values. Unclassified queries get
// a mixed set drawn from every list.
func (s *Service) GetPreferenceSuggestions(ctx context.Context, userID, query string) ([]string, error) {
	profile, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	if profile == nil {
		return nil, nil
	}

	queryWords := wordsOf(query)

	class := "general"
	for _, rule := range suggestionRules {
		matched := false
		for _, keyword := range rule.keywords {
			if _, ok := queryWords[keyword]; ok {
				matched = true
				break
			}
		}
		if matched {
			class = rule.class
			break
		}
	}

	var candidates []string
	switch class {
	case "destination":
		candidates = profile.PreferredDestinations
	case "accommodation":
		candidates = profile.PreferredAccommodations
	case "dining":
		candidates = profile.DietaryPreferences
	case "activity":
		candidates = profile.PreferredActivities
	default:
		// Mixed set: round-robin across the lists preserves variety
		lists := [][]string{
			profile.PreferredDestinations,
			profile.PreferredActivities,
			profile.PreferredAccommodations,
			profile.DietaryPreferences,
		}
		for i := 0; ; i++ {
			added := false
			for _, list := range lists {
				if i < len(list) {
					candidates = append(candidates, list[i])
					added = true
				}
			}
			if !added {
				break
			}
		}
	}

	if len(candidates) > s.cfg.SuggestionLimit {
		candidates = candidates[:s.cfg.SuggestionLimit]
	}
	return candidates, nil
}

// UpdatePreferenceConfidence applies feedback to a stored pattern,
// moving its confidence by one step up or down, clamped to [0,1].
// Neutral feedback leaves the confidence unchanged.
func (s *Service) UpdatePreferenceConfidence(ctx context.Context, userID, category, value string, feedback Feedback) error {
	var delta float64
	switch feedback {
	case FeedbackPositive:
		delta = s.cfg.ConfidenceStep
	case FeedbackNegative:
		delta = -s.cfg.ConfidenceStep
	case FeedbackNeutral:
		delta = 0
	default:
		return fmt.Errorf("invalid feedback: %s", feedback)
	}

	userLock := s.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	patterns, err := s.store.GetUserPreferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load preference patterns: %w", err)
	}

	for _, pattern := range patterns {
		if pattern.Category != category || pattern.Value != value {
			continue
		}

		pattern.Confidence = clamp01(pattern.Confidence + delta)
		if err := s.store.StoreUserPreference(ctx, userID, pattern); err != nil {
			return fmt.Errorf("failed to store preference pattern: %w", err)
		}
		return nil
	}

	return fmt.Errorf("preference pattern not found: %s/%s", category, value)
}

// GetLearningHistory returns the retained learning records for a user,
// oldest first.
func (s *Service) GetLearningHistory(userID string) []LearningRecord {
	userLock := s.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	s.pruneHistory(userID, s.now())

	records := s.history[userID]
	result := make([]LearningRecord, len(records))
	copy(result, records)
	return result
}

// appendHistory records a learning event and prunes expired records.
// Callers must hold the user lock.
func (s *Service) appendHistory(userID string, observations []observation, now time.Time) {
	categories := make([]string, 0, len(observations))
	seen := make(map[string]struct{})
	for _, obs := range observations {
		if _, ok := seen[obs.category]; ok {
			continue
		}
		seen[obs.category] = struct{}{}
		categories = append(categories, obs.category)
	}

	s.history[userID] = append(s.history[userID], LearningRecord{
		Timestamp:    now,
		Observations: len(observations),
		Categories:   categories,
	})
	s.pruneHistory(userID, now)
}

// pruneHistory drops records older than the retention window.
// Callers must hold the user lock.
func (s *Service) pruneHistory(userID string, now time.Time) {
	records := s.history[userID]
	if len(records) == 0 {
		return
	}

	cutoff := now.Add(-s.cfg.HistoryRetention)
	kept := records[:0]
	for _, record := range records {
		if record.Timestamp.After(cutoff) {
			kept = append(kept, record)
		}
	}
	s.history[userID] = kept
}

// confidenceByCategory averages pattern confidences per category.
func confidenceByCategory(patterns []context_provider.PreferencePattern) map[string]float64 {
	if len(patterns) == 0 {
		return nil
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, pattern := range patterns {
		sums[pattern.Category] += pattern.Confidence
		counts[pattern.Category]++
	}

	scores := make(map[string]float64, len(sums))
	for category, sum := range sums {
		scores[category] = sum / float64(counts[category])
	}
	return scores
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

// wordsOf splits text into a lowercase word set.
func wordsOf(text string) map[string]struct{} {
	result := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) {
		word = strings.ToLower(word)
		if word != "" {
			result[word] = struct{}{}
		}
	}
	return result
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	for word := range a {
		if _, ok := b[word]; ok {
			return true
		}
	}
	return false
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
