package preference_service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/travel_context_engine/internal/analysis"
	"github.com/lewisedginton/travel_context_engine/internal/context_store"
	"github.com/lewisedginton/travel_context_engine/internal/storage_manager"
	"github.com/lewisedginton/travel_context_engine/pkg/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	log := logger.NewLogger(logger.Config{
		Level:  logger.DebugLevel,
		Output: io.Discard,
	})

	store := context_store.NewFileStore(context_store.FileStoreConfig{
		FileProvider: storage_manager.NewLocalFileProvider(t.TempDir()),
		Logger:       log,
	})

	return New(Config{
		Store:  store,
		Logger: log,
	})
}

func TestBucketForAmount(t *testing.T) {
	tests := []struct {
		amount float64
		bucket string
	}{
		{999, "low"},
		{1000, "medium"},
		{4999, "medium"},
		{5000, "high"},
		{9999, "high"},
		{10000, "luxury"},
		{0, "low"},
		{250000, "luxury"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.bucket, BucketForAmount(tt.amount), "amount %.0f", tt.amount)
	}
}

func TestRangeForBucket(t *testing.T) {
	low := RangeForBucket("low")
	assert.Equal(t, 0.0, low.Min)
	assert.Equal(t, 1000.0, low.Max)

	medium := RangeForBucket("medium")
	assert.Equal(t, 1000.0, medium.Min)
	assert.Equal(t, 5000.0, medium.Max)

	high := RangeForBucket("high")
	assert.Equal(t, 5000.0, high.Min)
	assert.Equal(t, 10000.0, high.Max)

	luxury := RangeForBucket("luxury")
	assert.Equal(t, 10000.0, luxury.Min)
	assert.Greater(t, luxury.Max, 1e100)
}

func TestMergeScalar(t *testing.T) {
	// Mode of observations wins
	assert.Equal(t, "luxury", mergeScalar("", []string{"luxury", "budget", "luxury"}))

	// No observations keep the previous value
	assert.Equal(t, "budget", mergeScalar("budget", nil))

	// Ties favor the previous value
	assert.Equal(t, "budget", mergeScalar("budget", []string{"luxury", "budget"}))

	// Ties without the previous value fall to the first observed
	assert.Equal(t, "luxury", mergeScalar("adventure", []string{"luxury", "budget"}))
}

func TestMergeList(t *testing.T) {
	// Frequency descending, ties by first-seen order
	merged := mergeList([]string{"Paris", "Rome"}, []string{"Tokyo", "Rome", "Tokyo"}, 10)
	assert.Equal(t, []string{"Tokyo", "Rome", "Paris"}, merged)

	// Truncates to the cap
	merged = mergeList(nil, []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}, 10)
	assert.Len(t, merged, 10)
	assert.Equal(t, "a", merged[0])
	assert.NotContains(t, merged, "k")
}

func TestLearnFromConversationScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.LearnFromConversation(ctx, "user1", ConversationData{
		Text: "I love luxury hotels and beach relaxation, budget around $8000",
		Entities: map[string][]string{
			analysis.EntityCurrency: {"$8000"},
		},
	})
	require.NoError(t, err)

	profile, err := svc.store.GetUserProfile(ctx, "user1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "luxury", profile.TravelStyle)
	assert.Equal(t, "high", profile.BudgetBucket)
	require.NotNil(t, profile.BudgetRange)
	assert.Equal(t, 5000.0, profile.BudgetRange.Min)
	assert.Equal(t, 10000.0, profile.BudgetRange.Max)

	patterns, err := svc.store.GetUserPreferences(ctx, "user1")
	require.NoError(t, err)

	foundRelaxation := false
	for _, pattern := range patterns {
		if pattern.Category == CategoryActivity && pattern.Value == "relaxation" {
			foundRelaxation = true
		}
	}
	assert.True(t, foundRelaxation, "expected an activity_preference pattern for relaxation")

	history := svc.GetLearningHistory("user1")
	require.Len(t, history, 1)
	assert.Greater(t, history[0].Observations, 0)
}

func TestLearnFromConversationPatternUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	data := ConversationData{Text: "looking for a luxury trip"}
	require.NoError(t, svc.LearnFromConversation(ctx, "user1", data))
	require.NoError(t, svc.LearnFromConversation(ctx, "user1", data))

	patterns, err := svc.store.GetUserPreferences(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, CategoryTravelStyle, patterns[0].Category)
	assert.Equal(t, "luxury", patterns[0].Value)
	assert.Equal(t, 2, patterns[0].UsageCount)
	// avg(0.7, 0.7) stays put
	assert.InDelta(t, 0.7, patterns[0].Confidence, 0.001)
}

func TestDurationIgnoresCurrencyDigits(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.LearnFromConversation(ctx, "user1", ConversationData{
		Text: "budget $8000 for 3 nights",
		Entities: map[string][]string{
			analysis.EntityCurrency: {"$8000"},
			analysis.EntityNumbers:  {"8000", "3"},
		},
	})
	require.NoError(t, err)

	patterns, err := svc.store.GetUserPreferences(ctx, "user1")
	require.NoError(t, err)

	var duration string
	for _, pattern := range patterns {
		if pattern.Category == CategoryDuration {
			duration = pattern.Value
		}
	}
	assert.Equal(t, "3 nights", duration)
}

func TestLearnFromConversationEntitiesAndContext(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.LearnFromConversation(ctx, "user1", ConversationData{
		Text: "planning 7 days in the sun",
		Context: map[string]string{
			"destination": "Lisbon",
			"budget":      "3000",
			"dietary":     "vegetarian",
		},
		Entities: map[string][]string{
			analysis.EntityLocations: {"Madrid"},
			analysis.EntityNumbers:   {"7"},
		},
	})
	require.NoError(t, err)

	profile, err := svc.store.GetUserProfile(ctx, "user1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.ElementsMatch(t, []string{"Madrid", "Lisbon"}, profile.PreferredDestinations)
	assert.Equal(t, "medium", profile.BudgetBucket)
	assert.Equal(t, []string{"vegetarian"}, profile.DietaryPreferences)

	patterns, err := svc.store.GetUserPreferences(ctx, "user1")
	require.NoError(t, err)

	foundDuration := false
	for _, pattern := range patterns {
		if pattern.Category == CategoryDuration {
			foundDuration = true
			assert.Equal(t, "7 days", pattern.Value)
		}
	}
	assert.True(t, foundDuration)
}

func TestLearnFromConversationNoSignal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.LearnFromConversation(ctx, "user1", ConversationData{
		Text: "hello there",
	}))

	profile, err := svc.store.GetUserProfile(ctx, "user1")
	require.NoError(t, err)
	assert.Nil(t, profile)
	assert.Empty(t, svc.GetLearningHistory("user1"))
}

func TestUpdatePreferenceConfidenceFeedback(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.LearnFromConversation(ctx, "user1", ConversationData{
		Text: "a cheap getaway",
	}))

	// c0 = 0.7; four positive steps cap at 1.0
	for i := 0; i < 4; i++ {
		require.NoError(t, svc.UpdatePreferenceConfidence(ctx, "user1", CategoryTravelStyle, "budget", FeedbackPositive))
	}

	patterns, err := svc.store.GetUserPreferences(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.InDelta(t, 1.0, patterns[0].Confidence, 0.001)

	require.NoError(t, svc.UpdatePreferenceConfidence(ctx, "user1", CategoryTravelStyle, "budget", FeedbackNegative))
	require.NoError(t, svc.UpdatePreferenceConfidence(ctx, "user1", CategoryTravelStyle, "budget", FeedbackNeutral))

	patterns, err = svc.store.GetUserPreferences(ctx, "user1")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, patterns[0].Confidence, 0.001)

	assert.Error(t, svc.UpdatePreferenceConfidence(ctx, "user1", CategoryTravelStyle, "missing", FeedbackPositive))
	assert.Error(t, svc.UpdatePreferenceConfidence(ctx, "user1", CategoryTravelStyle, "budget", "loved-it"))
}

func TestPredictPreferences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.LearnFromConversation(ctx, "user1", ConversationData{
		Text: "luxury beach resort please",
	}))

	// Lift the relaxation pattern above the prediction threshold
	require.NoError(t, svc.UpdatePreferenceConfidence(ctx, "user1", CategoryActivity, "relaxation", FeedbackPositive))

	prediction, err := svc.PredictPreferences(ctx, "user1", "thinking about some relaxation time")
	require.NoError(t, err)
	assert.Equal(t, "luxury", prediction.Profile.TravelStyle)

	require.Len(t, prediction.Patterns, 1)
	assert.Equal(t, "relaxation", prediction.Patterns[0].Value)

	// Non-overlapping context yields no patterns
	prediction, err = svc.PredictPreferences(ctx, "user1", "completely unrelated words")
	require.NoError(t, err)
	assert.Empty(t, prediction.Patterns)
}

func TestGetPreferenceSuggestions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.LearnFromConversation(ctx, "user1", ConversationData{
		Context: map[string]string{"destination": "Kyoto", "dietary": "vegan"},
		Entities: map[string][]string{
			analysis.EntityLocations: {"Osaka"},
		},
	}))

	suggestions, err := svc.GetPreferenceSuggestions(ctx, "user1", "where should we go next")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Kyoto", "Osaka"}, suggestions)

	suggestions, err = svc.GetPreferenceSuggestions(ctx, "user1", "any restaurant tips")
	require.NoError(t, err)
	assert.Equal(t, []string{"vegan"}, suggestions)

	// General query mixes lists, capped at the suggestion limit
	suggestions, err = svc.GetPreferenceSuggestions(ctx, "user1", "tell me something")
	require.NoError(t, err)
	assert.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), 5)

	// Unknown users get no suggestions and no error
	suggestions, err = svc.GetPreferenceSuggestions(ctx, "nobody", "where to")
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestLearningHistoryRetention(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	stale := time.Now().Add(-70 * 24 * time.Hour)
	svc.now = func() time.Time { return stale }
	require.NoError(t, svc.LearnFromConversation(ctx, "user1", ConversationData{
		Text: "a luxury weekend",
	}))

	svc.now = time.Now
	require.NoError(t, svc.LearnFromConversation(ctx, "user1", ConversationData{
		Text: "another luxury weekend",
	}))

	history := svc.GetLearningHistory("user1")
	require.Len(t, history, 1)
	assert.WithinDuration(t, time.Now(), history[0].Timestamp, time.Minute)
}
