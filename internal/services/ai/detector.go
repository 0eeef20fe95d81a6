package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Detection is one milestone found in memory text.
type Detection struct {
	Label      string
	Confidence float64
}

// Detector finds milestones in memory text.
type Detector interface {
	DetectMilestones(ctx context.Context, text string) ([]Detection, error)
}

// detectorEnv holds raw env values before post-parse validation.
type detectorEnv struct {
	ResponsesURL string `env:"KEEPSAKE_AI_RESPONSES_URL"`
	APIKey       string `env:"KEEPSAKE_AI_API_KEY"`
	Model        string `env:"KEEPSAKE_AI_MODEL" envDefault:"gpt-4o-mini"`
}

// NewDetectorFromEnv builds a detector from environment configuration.
// Without a configured endpoint the offline keyword heuristic is used, so
// the worker runs without external dependencies.
func NewDetectorFromEnv() (Detector, error) {
	var raw detectorEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse detector env: %w", err)
	}
	responsesURL := strings.TrimSpace(raw.ResponsesURL)
	if responsesURL == "" {
		return NewKeywordDetector(), nil
	}
	apiKey := strings.TrimSpace(raw.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("KEEPSAKE_AI_API_KEY is required when KEEPSAKE_AI_RESPONSES_URL is set")
	}
	return NewOpenAIDetector(OpenAIConfig{
		ResponsesURL: responsesURL,
		APIKey:       apiKey,
		Model:        strings.TrimSpace(raw.Model),
	}), nil
}
