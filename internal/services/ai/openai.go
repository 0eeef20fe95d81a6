package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/keepsakehq/keepsake/internal/platform/timeouts"
)

const detectorPrompt = `You find developmental milestones in short family memory notes.
Given the note below, respond with a JSON array only. Each element must be
{"label": "<snake_case_milestone>", "confidence": <0..1>}. Respond with []
when no milestone is present.

Note:
`

// OpenAIConfig configures the hosted milestone detector.
type OpenAIConfig struct {
	ResponsesURL string
	APIKey       string
	Model        string
	HTTPClient   *http.Client
}

type openAIDetector struct {
	cfg OpenAIConfig
}

// NewOpenAIDetector creates a detector backed by an OpenAI-compatible
// responses endpoint.
func NewOpenAIDetector(cfg OpenAIConfig) Detector {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.DetectorRequest}
	}
	return &openAIDetector{cfg: cfg}
}

func (d *openAIDetector) DetectMilestones(ctx context.Context, text string) ([]Detection, error) {
	responsesURL := strings.TrimSpace(d.cfg.ResponsesURL)
	apiKey := strings.TrimSpace(d.cfg.APIKey)
	model := strings.TrimSpace(d.cfg.Model)
	text = strings.TrimSpace(text)
	if responsesURL == "" {
		return nil, fmt.Errorf("responses url is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if text == "" {
		return nil, nil
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": model,
		"input": detectorPrompt + text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal detect request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is
	// never echoed in errors or response payloads.
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := d.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return nil, fmt.Errorf("read detect error body: %w", err)
		}
		return nil, fmt.Errorf("detect request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return nil, fmt.Errorf("detect response missing output text")
	}
	return parseDetections(outputText)
}

// parseDetections decodes the model's JSON array, tolerating code fences and
// clamping confidences into [0, 1]. Malformed output is an error so the
// worker can retry or dead-letter the event.
func parseDetections(output string) ([]Detection, error) {
	output = strings.TrimSpace(output)
	output = strings.TrimPrefix(output, "```json")
	output = strings.TrimPrefix(output, "```")
	output = strings.TrimSuffix(output, "```")
	output = strings.TrimSpace(output)

	var raw []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(output), &raw); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	detections := make([]Detection, 0, len(raw))
	for _, item := range raw {
		label := strings.TrimSpace(item.Label)
		if label == "" {
			continue
		}
		confidence := item.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		detections = append(detections, Detection{Label: label, Confidence: confidence})
	}
	return detections, nil
}
