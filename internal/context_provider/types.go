// Package context_provider defines the capability contract the rest of the
// assistant depends on: the ContextBundle aggregate, the domain records it is
// assembled from, and the Provider interface. Callers depend only on this
// package, never on a concrete orchestrator or store.
package context_provider //nolint:revive // var-naming: using underscores for domain clarity

import (
	"time"
)

// Intent is the coarse classification of what a user message is asking for.
type Intent string

// Intents in classification order. The orchestrator tests keyword groups in
// exactly this order and takes the first match.
const (
	IntentBooking        Intent = "booking"
	IntentSearch         Intent = "search"
	IntentPlanning       Intent = "planning"
	IntentWeather        Intent = "weather"
	IntentFlights        Intent = "flights"
	IntentHotels         Intent = "hotels"
	IntentAttractions    Intent = "attractions"
	IntentFood           Intent = "food"
	IntentTransportation Intent = "transportation"
	IntentBudget         Intent = "budget"
	IntentHelp           Intent = "help"
	IntentGeneral        Intent = "general"
)

// Sentiment is the polarity of a user message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ContentType classifies a memory entry.
type ContentType string

const (
	ContentTypeConversation ContentType = "conversation"
	ContentTypePreference   ContentType = "preference"
	ContentTypeFact         ContentType = "fact"
	ContentTypeContext      ContentType = "context"
)

// ValidContentTypes lists the accepted memory content types.
var ValidContentTypes = map[ContentType]bool{
	ContentTypeConversation: true,
	ContentTypePreference:   true,
	ContentTypeFact:         true,
	ContentTypeContext:      true,
}

// ConversationTurn is one user/assistant exchange with its derived analysis.
// Immutable once created.
type ConversationTurn struct {
	UserID           string              `json:"user_id"`
	Timestamp        time.Time           `json:"timestamp"`
	UserMessage      string              `json:"user_message"`
	AssistantMessage string              `json:"assistant_message"`
	Intent           Intent              `json:"intent"`
	Entities         map[string][]string `json:"entities,omitempty"`
	Sentiment        Sentiment           `json:"sentiment"`
	Topics           []string            `json:"topics,omitempty"`
	Context          map[string]string   `json:"context,omitempty"`
}

// MemoryEntry is a durable, taggable fact/preference/context snippet scoped
// to one user.
type MemoryEntry struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Content     string            `json:"content"`
	ContentType ContentType       `json:"content_type"`
	Importance  float64           `json:"importance"`
	CreatedAt   time.Time         `json:"created_at"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// PreferencePattern is a learned (category, value) signal with confidence and
// observation frequency. Patterns are reinforced, never hard-deleted.
type PreferencePattern struct {
	Category   string            `json:"category"`
	Value      string            `json:"value"`
	Confidence float64           `json:"confidence"`
	UsageCount int               `json:"usage_count"`
	LastSeen   time.Time         `json:"last_seen"`
	Context    map[string]string `json:"context,omitempty"`
}

// BudgetRange is the numeric span derived from a budget bucket. Unbounded
// upper ends carry math.MaxFloat64.
type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// UserProfile is the aggregated, current-best-guess preference state of a
// user. Mutated by merge, never destructively overwritten.
type UserProfile struct {
	UserID                  string             `json:"user_id"`
	TravelStyle             string             `json:"travel_style,omitempty"`
	BudgetBucket            string             `json:"budget_bucket,omitempty"`
	BudgetRange             *BudgetRange       `json:"budget_range,omitempty"`
	PreferredDestinations   []string           `json:"preferred_destinations,omitempty"`
	PreferredActivities     []string           `json:"preferred_activities,omitempty"`
	PreferredAccommodations []string           `json:"preferred_accommodations,omitempty"`
	PreferredTransportation []string           `json:"preferred_transportation,omitempty"`
	DietaryPreferences      []string           `json:"dietary_preferences,omitempty"`
	AccessibilityNeeds      []string           `json:"accessibility_needs,omitempty"`
	LanguagePreferences     []string           `json:"language_preferences,omitempty"`
	ConfidenceScores        map[string]float64 `json:"confidence_scores,omitempty"`
	LastUpdated             time.Time          `json:"last_updated"`
}

// IsEmpty reports whether the profile carries any learned preference signal.
func (p *UserProfile) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.TravelStyle == "" &&
		p.BudgetBucket == "" &&
		len(p.PreferredDestinations) == 0 &&
		len(p.PreferredActivities) == 0 &&
		len(p.PreferredAccommodations) == 0 &&
		len(p.PreferredTransportation) == 0 &&
		len(p.DietaryPreferences) == 0 &&
		len(p.AccessibilityNeeds) == 0 &&
		len(p.LanguagePreferences) == 0
}

// QueryAnalysis is the deterministic analysis of a caller-supplied query.
type QueryAnalysis struct {
	Intent    Intent              `json:"intent"`
	Entities  map[string][]string `json:"entities,omitempty"`
	Sentiment Sentiment           `json:"sentiment"`
	Keywords  []string            `json:"keywords,omitempty"`
}

// ContextBundle is the per-request snapshot handed to the reply generator.
// Never persisted; owned solely by the requesting call.
type ContextBundle struct {
	UserID              string              `json:"user_id"`
	Profile             UserProfile         `json:"profile"`
	ConversationHistory []ConversationTurn  `json:"conversation_history"`
	RelevantMemories    []MemoryEntry       `json:"relevant_memories"`
	PreferencePatterns  []PreferencePattern `json:"preference_patterns"`
	Summary             string              `json:"summary,omitempty"`
	ContextQuality      float64             `json:"context_quality"`
	Query               string              `json:"query,omitempty"`
	QueryAnalysis       *QueryAnalysis      `json:"query_analysis,omitempty"`
	OrchestratedAt      time.Time           `json:"orchestrated_at"`
	Provider            string              `json:"provider,omitempty"`
}

// InteractionRecord is one raw exchange handed to StoreInteractionContext.
type InteractionRecord struct {
	UserMessage      string            `json:"user_message"`
	AssistantMessage string            `json:"assistant_message"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}
