package analysis

import (
	"testing"

	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected context_provider.Intent
	}{
		{"booking", "I want to book a room for next week", context_provider.IntentBooking},
		{"search", "search for beach destinations", context_provider.IntentSearch},
		{"planning", "help me plan an itinerary", context_provider.IntentPlanning},
		{"weather", "what's the weather like in June", context_provider.IntentWeather},
		{"flights", "any cheap flight to Rome", context_provider.IntentFlights},
		{"hotels", "recommend a hotel in Paris", context_provider.IntentHotels},
		{"attractions", "what should I visit in Tokyo", context_provider.IntentAttractions},
		{"food", "best restaurant nearby", context_provider.IntentFood},
		{"transportation", "is there a bus downtown", context_provider.IntentTransportation},
		{"budget", "what does a trip like that cost", context_provider.IntentBudget},
		{"help", "how do settings work", context_provider.IntentHelp},
		{"general fallback", "lorem ipsum", context_provider.IntentGeneral},
		{"empty", "", context_provider.IntentGeneral},
	}

	a := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, a.Classify(tt.input))
		})
	}
}

func TestClassifyIntentOrderIsFirstMatchWins(t *testing.T) {
	a := NewAnalyzer()

	// "book a flight" matches both booking and flights; booking is earlier.
	assert.Equal(t, context_provider.IntentBooking, a.Classify("book a flight to Madrid"))

	// "hotel price" matches both hotels and budget; hotels is earlier.
	assert.Equal(t, context_provider.IntentHotels, a.Classify("hotel price comparison"))

	// "plan" comes before "weather".
	assert.Equal(t, context_provider.IntentPlanning, a.Classify("plan around the weather"))
}

func TestExtractEntities(t *testing.T) {
	a := NewAnalyzer()

	entities := a.Extract("I want to fly from Paris to New York on 12/05/2026 with a budget of $3000 for 7 nights")

	assert.Equal(t, []string{"Paris", "New York"}, entities[EntityLocations])
	assert.Equal(t, []string{"12/05/2026"}, entities[EntityDates])
	assert.Equal(t, []string{"$3000"}, entities[EntityCurrency])
	assert.Contains(t, entities[EntityNumbers], "7")
}

func TestNumbersOutsideCurrency(t *testing.T) {
	assert.Equal(t, []string{"3"}, NumbersOutsideCurrency("budget $8000 for 3 nights"))
	assert.Equal(t, []string{"7"}, NumbersOutsideCurrency("planning 7 days in the sun"))
	assert.Equal(t, []string{"2"}, NumbersOutsideCurrency("500 euros for 2 days"))
	assert.Empty(t, NumbersOutsideCurrency("around $1,200 total"))
}

func TestExtractEntitiesMonthNames(t *testing.T) {
	a := NewAnalyzer()

	entities := a.Extract("we travel in june and come back in September")
	assert.Equal(t, []string{"june", "September"}, entities[EntityDates])
}

func TestExtractEntitiesOrderedNotDeduplicated(t *testing.T) {
	a := NewAnalyzer()

	entities := a.Extract("Tokyo or Kyoto, maybe Tokyo after all")
	assert.Equal(t, []string{"Tokyo", "Kyoto", "Tokyo"}, entities[EntityLocations])
}

func TestExtractEntitiesFiltersPronouns(t *testing.T) {
	a := NewAnalyzer()

	entities := a.Extract("Where should I go in Lisbon")
	assert.Equal(t, []string{"Lisbon"}, entities[EntityLocations])
}

func TestExtractEntitiesEmptyInput(t *testing.T) {
	a := NewAnalyzer()
	assert.Empty(t, a.Extract(""))
}

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected context_provider.Sentiment
	}{
		{"positive", "I love this amazing beach", context_provider.SentimentPositive},
		{"negative", "that hotel was terrible and awful", context_provider.SentimentNegative},
		{"neutral no matches", "the train leaves at noon", context_provider.SentimentNeutral},
		{"tie is neutral", "I love it but I also hate it", context_provider.SentimentNeutral},
		{"empty", "", context_provider.SentimentNeutral},
	}

	a := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, a.Analyze(tt.input))
		})
	}
}

func TestTopics(t *testing.T) {
	a := NewAnalyzer()

	topics := a.Topics("cheap hostel near the beach with good food")
	assert.Equal(t, []string{"accommodation", "food", "activities", "budget"}, topics)

	assert.Empty(t, a.Topics("hello there"))
}

func TestKeywordsPreserveFirstSeenOrder(t *testing.T) {
	a := NewAnalyzer()

	keywords := a.Keywords("Beach beach resort, the beach resort!")
	assert.Equal(t, []string{"beach", "resort", "the"}, keywords)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"$8000", 8000, true},
		{"$1,500.50", 1500.50, true},
		{"2000 dollars", 2000, true},
		{"€45", 45, true},
		{"750", 750, true},
		{"cheap", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			amount, ok := ParseAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, amount, 0.001)
			}
		})
	}
}
