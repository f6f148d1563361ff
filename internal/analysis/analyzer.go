// Package analysis provides the deterministic, rule-based text analysis the
// orchestrator runs on every turn: intent classification, entity extraction,
// sentiment scoring and topic detection. Everything here is pure computation
// with no I/O. The narrow interfaces exist so a model-backed implementation
// can be substituted without touching the orchestrator.
package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
)

// IntentClassifier maps a user message to an intent.
type IntentClassifier interface {
	Classify(text string) context_provider.Intent
}

// EntityExtractor pulls category -> ordered values mappings out of a message.
type EntityExtractor interface {
	Extract(text string) map[string][]string
}

// SentimentAnalyzer scores a message's polarity.
type SentimentAnalyzer interface {
	Analyze(text string) context_provider.Sentiment
}

// TopicExtractor detects which fixed topics a message touches.
type TopicExtractor interface {
	Topics(text string) []string
}

// Entity category keys produced by the extractor.
const (
	EntityLocations = "locations"
	EntityDates     = "dates"
	EntityNumbers   = "numbers"
	EntityCurrency  = "currency"
)

// intentGroup pairs an intent with its trigger keywords. Order matters:
// classification is first-match-wins over this list.
type intentGroup struct {
	intent   context_provider.Intent
	keywords []string
}

var intentGroups = []intentGroup{
	{context_provider.IntentBooking, []string{"book", "reserve", "reservation", "purchase", "buy"}},
	{context_provider.IntentSearch, []string{"search", "find", "look for", "show me", "looking for"}},
	{context_provider.IntentPlanning, []string{"plan", "itinerary", "schedule", "organize", "trip to"}},
	{context_provider.IntentWeather, []string{"weather", "temperature", "forecast", "climate", "rain"}},
	{context_provider.IntentFlights, []string{"flight", "fly", "airline", "airport", "plane"}},
	{context_provider.IntentHotels, []string{"hotel", "accommodation", "stay", "room", "hostel"}},
	{context_provider.IntentAttractions, []string{"attraction", "visit", "sightseeing", "tour", "museum"}},
	{context_provider.IntentFood, []string{"restaurant", "food", "eat", "dining", "cuisine"}},
	{context_provider.IntentTransportation, []string{"transport", "taxi", "bus", "train", "car rental"}},
	{context_provider.IntentBudget, []string{"budget", "cost", "price", "cheap", "expensive"}},
	{context_provider.IntentHelp, []string{"help", "assist", "support", "how do", "how can"}},
}

var positiveWords = map[string]struct{}{
	"love": {}, "like": {}, "great": {}, "good": {}, "amazing": {},
	"wonderful": {}, "excellent": {}, "fantastic": {}, "enjoy": {},
	"beautiful": {}, "perfect": {}, "awesome": {}, "happy": {},
	"excited": {}, "best": {}, "nice": {},
}

var negativeWords = map[string]struct{}{
	"hate": {}, "dislike": {}, "terrible": {}, "awful": {}, "bad": {},
	"horrible": {}, "disappointing": {}, "disappointed": {}, "worst": {},
	"problem": {}, "issue": {}, "annoying": {}, "avoid": {}, "never": {},
}

// topicKeywords is the fixed topic -> keyword membership table. Iterated in
// topicOrder so output stays deterministic.
var topicKeywords = map[string][]string{
	"accommodation":  {"hotel", "hostel", "resort", "airbnb", "room", "stay"},
	"transportation": {"flight", "train", "bus", "taxi", "car", "airport"},
	"food":           {"restaurant", "food", "cuisine", "dining", "eat", "meal"},
	"activities":     {"beach", "hiking", "museum", "tour", "adventure", "sightseeing"},
	"budget":         {"budget", "cost", "price", "money", "cheap", "expensive"},
	"weather":        {"weather", "temperature", "forecast", "climate", "sunny", "rain"},
	"destination":    {"city", "country", "travel", "trip", "visit", "destination"},
}

var topicOrder = []string{
	"accommodation", "transportation", "food", "activities",
	"budget", "weather", "destination",
}

// Capitalized-word runs are treated as candidate locations. Sentence-leading
// pronouns and question words are filtered through locationStopwords.
var (
	locationPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	datePattern     = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	monthPattern    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	currencyPattern = regexp.MustCompile(`[$€£]\s?\d+(?:,\d{3})*(?:\.\d+)?|\b\d+(?:,\d{3})*(?:\.\d+)?\s?(?:dollars|usd|euros|eur|pounds|gbp)\b`)
	numberPattern   = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

var locationStopwords = map[string]struct{}{
	"I": {}, "The": {}, "A": {}, "An": {}, "My": {}, "We": {}, "It": {},
	"Is": {}, "What": {}, "Where": {}, "When": {}, "How": {}, "Can": {},
	"Do": {}, "Please": {}, "Hello": {}, "Hi": {}, "Thanks": {}, "Thank": {},
	"This": {}, "That": {}, "There": {},
}

// Analyzer bundles the rule-based implementations of all four extractors.
type Analyzer struct{}

// NewAnalyzer returns the rule-based analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Classify returns the first intent whose keyword group matches, in the fixed
// group order, falling back to "general".
func (a *Analyzer) Classify(text string) context_provider.Intent {
	lower := strings.ToLower(text)
	for _, group := range intentGroups {
		for _, keyword := range group.keywords {
			if strings.Contains(lower, keyword) {
				return group.intent
			}
		}
	}
	return context_provider.IntentGeneral
}

// Extract returns ordered, non-deduplicated entity sequences per category.
// Categories with no matches are omitted.
func (a *Analyzer) Extract(text string) map[string][]string {
	entities := make(map[string][]string)

	var locations []string
	for _, match := range locationPattern.FindAllString(text, -1) {
		if _, skip := locationStopwords[match]; skip {
			continue
		}
		locations = append(locations, match)
	}
	if len(locations) > 0 {
		entities[EntityLocations] = locations
	}

	var dates []string
	dates = append(dates, datePattern.FindAllString(text, -1)...)
	dates = append(dates, monthPattern.FindAllString(text, -1)...)
	if len(dates) > 0 {
		entities[EntityDates] = dates
	}

	if currency := currencyPattern.FindAllString(text, -1); len(currency) > 0 {
		entities[EntityCurrency] = currency
	}

	if numbers := numberPattern.FindAllString(text, -1); len(numbers) > 0 {
		entities[EntityNumbers] = numbers
	}

	return entities
}

// NumbersOutsideCurrency returns the bare numbers in text whose span is not
// part of a currency amount, in order of appearance. "$8000 for 3 nights"
// yields only "3".
func NumbersOutsideCurrency(text string) []string {
	currencySpans := currencyPattern.FindAllStringIndex(text, -1)

	var numbers []string
	for _, span := range numberPattern.FindAllStringIndex(text, -1) {
		insideCurrency := false
		for _, currency := range currencySpans {
			if span[0] >= currency[0] && span[1] <= currency[1] {
				insideCurrency = true
				break
			}
		}
		if !insideCurrency {
			numbers = append(numbers, text[span[0]:span[1]])
		}
	}
	return numbers
}

// Analyze runs a bag-of-words polarity vote. Ties, including zero matches,
// are neutral.
func (a *Analyzer) Analyze(text string) context_provider.Sentiment {
	positive := 0
	negative := 0
	for _, word := range tokenize(text) {
		if _, ok := positiveWords[word]; ok {
			positive++
		}
		if _, ok := negativeWords[word]; ok {
			negative++
		}
	}

	switch {
	case positive > negative:
		return context_provider.SentimentPositive
	case negative > positive:
		return context_provider.SentimentNegative
	default:
		return context_provider.SentimentNeutral
	}
}

// Topics returns every topic whose keyword group matches the text, in the
// fixed topic order.
func (a *Analyzer) Topics(text string) []string {
	lower := strings.ToLower(text)
	var topics []string
	for _, topic := range topicOrder {
		for _, keyword := range topicKeywords[topic] {
			if strings.Contains(lower, keyword) {
				topics = append(topics, topic)
				break
			}
		}
	}
	return topics
}

// Keywords returns the normalised word list of a text, preserving order of
// first appearance.
func (a *Analyzer) Keywords(text string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, word := range tokenize(text) {
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}

// ParseAmount extracts the numeric value from a currency or number entity.
func ParseAmount(entity string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(entity)
	cleaned = strings.ToLower(cleaned)
	for _, suffix := range []string{"dollars", "usd", "euros", "eur", "pounds", "gbp"} {
		cleaned = strings.TrimSuffix(cleaned, suffix)
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// tokenize normalises text to lowercase words, splitting on whitespace and
// punctuation and skipping single-character tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) > 1 {
			words = append(words, field)
		}
	}
	return words
}
