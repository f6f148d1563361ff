package preference_service

import (
	"fmt"
	"math"
	"strings"

	"github.com/lewisedginton/travel_context_engine/internal/analysis"
	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
)

// Preference categories produced by extraction.
const (
	CategoryTravelStyle    = "travel_style"
	CategoryDestination    = "destination"
	CategoryActivity       = "activity_preference"
	CategoryBudget         = "budget"
	CategoryDuration       = "duration"
	CategoryAccommodation  = "accommodation"
	CategoryTransportation = "transportation"
	CategoryDietary        = "dietary"
	CategoryAccessibility  = "accessibility"
	CategoryLanguage       = "language"
)

// Observed confidence per signal source. Structured payloads are the most
// reliable, free-text keyword matches the least.
const (
	confidenceText    = 0.7
	confidenceContext = 0.9
	confidenceEntity  = 0.6
	confidenceDerived = 0.7
)

// observation is a single extracted (category, value) signal.
type observation struct {
	category   string
	value      string
	confidence float64
	context    map[string]string
}

// keywordRule maps a trigger word group to the value it implies.
type keywordRule struct {
	keywords []string
	value    string
}

var travelStyleRules = []keywordRule{
	{keywords: []string{"luxury", "expensive", "high-end"}, value: "luxury"},
	{keywords: []string{"budget", "cheap", "affordable"}, value: "budget"},
	{keywords: []string{"backpack", "hostel", "adventure"}, value: "adventure"},
}

var activityRules = []keywordRule{
	{keywords: []string{"beach", "relax", "resort"}, value: "relaxation"},
	{keywords: []string{"hiking", "outdoor", "nature"}, value: "outdoor"},
	{keywords: []string{"culture", "museum", "history"}, value: "culture"},
	{keywords: []string{"food", "restaurant", "cuisine"}, value: "food"},
}

// structured context keys that map straight to a preference category,
// in a fixed scan order so observation order is deterministic
var contextCategoryKeys = []struct {
	key      string
	category string
}{
	{key: "destination", category: CategoryDestination},
	{key: "activity", category: CategoryActivity},
	{key: "accommodation", category: CategoryAccommodation},
	{key: "transportation", category: CategoryTransportation},
	{key: "dietary", category: CategoryDietary},
	{key: "accessibility", category: CategoryAccessibility},
	{key: "language", category: CategoryLanguage},
}

// extractObservations derives preference signals from the message text,
// the structured context payload, and pre-extracted entities. The three
// sources are merged into one ordered observation list.
func extractObservations(data ConversationData) []observation {
	var observations []observation

	text := strings.ToLower(data.Text)

	// Free-text keyword rules
	for _, rule := range travelStyleRules {
		if containsAny(text, rule.keywords) {
			observations = append(observations, observation{
				category:   CategoryTravelStyle,
				value:      rule.value,
				confidence: confidenceText,
			})
			break
		}
	}
	for _, rule := range activityRules {
		if containsAny(text, rule.keywords) {
			observations = append(observations, observation{
				category:   CategoryActivity,
				value:      rule.value,
				confidence: confidenceText,
			})
		}
	}

	// Budget: the keyword or a currency entity triggers extraction
	currencies := data.Entities[analysis.EntityCurrency]
	if strings.Contains(text, "budget") || len(currencies) > 0 {
		amount, ok := budgetAmount(data, currencies)
		if ok {
			bucket := BucketForAmount(amount)
			observations = append(observations, observation{
				category:   CategoryBudget,
				value:      bucket,
				confidence: confidenceDerived,
				context:    map[string]string{"amount": fmt.Sprintf("%.0f", amount)},
			})
		}
	}

	// Destinations from extracted locations; travel dates, when present,
	// ride along as contextual qualifiers
	var dateContext map[string]string
	if dates := data.Entities[analysis.EntityDates]; len(dates) > 0 {
		dateContext = map[string]string{"date": dates[0]}
	}
	for _, location := range data.Entities[analysis.EntityLocations] {
		observations = append(observations, observation{
			category:   CategoryDestination,
			value:      location,
			confidence: confidenceEntity,
			context:    dateContext,
		})
	}

	// Trip duration: a bare number next to day/night wording. Digits that
	// are part of a currency amount are never durations.
	if len(data.Entities[analysis.EntityNumbers]) > 0 &&
		(strings.Contains(text, "day") || strings.Contains(text, "night")) {
		if numbers := analysis.NumbersOutsideCurrency(data.Text); len(numbers) > 0 {
			unit := "days"
			if !strings.Contains(text, "day") {
				unit = "nights"
			}
			observations = append(observations, observation{
				category:   CategoryDuration,
				value:      numbers[0] + " " + unit,
				confidence: confidenceEntity,
			})
		}
	}

	// Structured context payload
	for _, mapping := range contextCategoryKeys {
		if value, ok := data.Context[mapping.key]; ok && value != "" {
			observations = append(observations, observation{
				category:   mapping.category,
				value:      value,
				confidence: confidenceContext,
			})
		}
	}
	if raw, ok := data.Context["budget"]; ok && raw != "" {
		if amount, ok := analysis.ParseAmount(raw); ok {
			observations = append(observations, observation{
				category:   CategoryBudget,
				value:      BucketForAmount(amount),
				confidence: confidenceContext,
				context:    map[string]string{"amount": fmt.Sprintf("%.0f", amount)},
			})
		}
	}

	return observations
}

// budgetAmount resolves the budget amount from currency entities first,
// then the structured payload.
func budgetAmount(data ConversationData, currencies []string) (float64, bool) {
	for _, raw := range currencies {
		if amount, ok := analysis.ParseAmount(raw); ok {
			return amount, true
		}
	}
	if raw, ok := data.Context["budget"]; ok {
		if amount, ok := analysis.ParseAmount(raw); ok {
			return amount, true
		}
	}
	return 0, false
}

// BucketForAmount maps a budget amount to its bucket name.
func BucketForAmount(amount float64) string {
	switch {
	case amount < 1000:
		return "low"
	case amount < 5000:
		return "medium"
	case amount < 10000:
		return "high"
	default:
		return "luxury"
	}
}

// RangeForBucket returns the numeric range a bucket covers. The luxury
// bucket is unbounded above; MaxFloat64 stands in for infinity so the
// range survives a JSON round-trip.
func RangeForBucket(bucket string) context_provider.BudgetRange {
	switch bucket {
	case "low":
		return context_provider.BudgetRange{Min: 0, Max: 1000}
	case "medium":
		return context_provider.BudgetRange{Min: 1000, Max: 5000}
	case "high":
		return context_provider.BudgetRange{Min: 5000, Max: 10000}
	case "luxury":
		return context_provider.BudgetRange{Min: 10000, Max: math.MaxFloat64}
	default:
		return context_provider.BudgetRange{}
	}
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
