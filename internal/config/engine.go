package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// MemoryConfig holds conversation memory behaviour settings
type MemoryConfig struct {
	// DecayWindow is the age beyond which low-importance memories become
	// eligible for the forget sweep
	DecayWindow time.Duration `env:"MEMORY_DECAY_WINDOW" yaml:"decay_window" default:"2160h"`

	// ImportanceThreshold is the importance below which an old memory is forgotten
	ImportanceThreshold float64 `env:"MEMORY_IMPORTANCE_THRESHOLD" yaml:"importance_threshold" default:"0.3"`

	// RelevanceThreshold is the minimum relevance score for query matches
	RelevanceThreshold float64 `env:"MEMORY_RELEVANCE_THRESHOLD" yaml:"relevance_threshold" default:"0.3"`

	// RecencyWindow is the horizon of the linear recency component of the
	// relevance score
	RecencyWindow time.Duration `env:"MEMORY_RECENCY_WINDOW" yaml:"recency_window" default:"720h"`

	// RetrieveLimit is the default number of memories returned by retrieval
	RetrieveLimit int `env:"MEMORY_RETRIEVE_LIMIT" yaml:"retrieve_limit" default:"10"`
}

// Validate checks memory thresholds stay in range
func (m MemoryConfig) Validate() error {
	var result error

	if m.ImportanceThreshold < 0 || m.ImportanceThreshold > 1 {
		result = multierror.Append(result, fmt.Errorf("memory importance_threshold must be in [0,1], got %v", m.ImportanceThreshold))
	}

	if m.RelevanceThreshold < 0 || m.RelevanceThreshold > 1 {
		result = multierror.Append(result, fmt.Errorf("memory relevance_threshold must be in [0,1], got %v", m.RelevanceThreshold))
	}

	if m.DecayWindow <= 0 {
		result = multierror.Append(result, fmt.Errorf("memory decay_window must be greater than 0"))
	}

	if m.RetrieveLimit <= 0 {
		result = multierror.Append(result, fmt.Errorf("memory retrieve_limit must be greater than 0"))
	}

	return result
}

// LearningConfig holds preference learning behaviour settings
type LearningConfig struct {
	// HistoryRetention bounds the learning-history log
	HistoryRetention time.Duration `env:"LEARNING_HISTORY_RETENTION" yaml:"history_retention" default:"1440h"`

	// ConfidenceStep is the feedback adjustment applied per observation
	ConfidenceStep float64 `env:"LEARNING_CONFIDENCE_STEP" yaml:"confidence_step" default:"0.1"`

	// PredictionThreshold is the minimum pattern confidence for predictions
	PredictionThreshold float64 `env:"LEARNING_PREDICTION_THRESHOLD" yaml:"prediction_threshold" default:"0.6"`

	// SuggestionLimit caps the values returned by preference suggestions
	SuggestionLimit int `env:"LEARNING_SUGGESTION_LIMIT" yaml:"suggestion_limit" default:"5"`

	// ListCap bounds the per-category profile lists (top-N by frequency)
	ListCap int `env:"LEARNING_LIST_CAP" yaml:"list_cap" default:"10"`
}

// Validate checks learning thresholds stay in range
func (l LearningConfig) Validate() error {
	var result error

	if l.ConfidenceStep <= 0 || l.ConfidenceStep > 1 {
		result = multierror.Append(result, fmt.Errorf("learning confidence_step must be in (0,1], got %v", l.ConfidenceStep))
	}

	if l.PredictionThreshold < 0 || l.PredictionThreshold > 1 {
		result = multierror.Append(result, fmt.Errorf("learning prediction_threshold must be in [0,1], got %v", l.PredictionThreshold))
	}

	if l.SuggestionLimit <= 0 {
		result = multierror.Append(result, fmt.Errorf("learning suggestion_limit must be greater than 0"))
	}

	if l.ListCap <= 0 {
		result = multierror.Append(result, fmt.Errorf("learning list_cap must be greater than 0"))
	}

	return result
}
