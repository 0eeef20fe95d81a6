package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestKeywordDetector(t *testing.T) {
	detector := NewKeywordDetector()
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "first steps",
			text: "June took her FIRST STEPS in the garden today!",
			want: []string{"first_steps"},
		},
		{
			name: "multiple milestones sorted",
			text: "He said mama right after his first tooth came in.",
			want: []string{"first_tooth", "first_words"},
		},
		{
			name: "no milestone",
			text: "We went to the park and fed the ducks.",
			want: nil,
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detections, err := detector.DetectMilestones(ctx, tt.text)
			if err != nil {
				t.Fatalf("DetectMilestones() error = %v", err)
			}
			if len(detections) != len(tt.want) {
				t.Fatalf("DetectMilestones() = %v, want labels %v", detections, tt.want)
			}
			for i, label := range tt.want {
				if detections[i].Label != label {
					t.Errorf("detection[%d].Label = %q, want %q", i, detections[i].Label, label)
				}
				if detections[i].Confidence <= 0 || detections[i].Confidence > 1 {
					t.Errorf("detection[%d].Confidence = %v, want in (0, 1]", i, detections[i].Confidence)
				}
			}
		})
	}
}

func TestKeywordDetectorDeterministic(t *testing.T) {
	detector := NewKeywordDetector()
	ctx := context.Background()
	text := "First tooth, first laugh, and she rolled over!"

	first, err := detector.DetectMilestones(ctx, text)
	if err != nil {
		t.Fatalf("DetectMilestones() error = %v", err)
	}
	second, err := detector.DetectMilestones(ctx, text)
	if err != nil {
		t.Fatalf("DetectMilestones() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("detection counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("detection[%d] = %v vs %v", i, first[i], second[i])
		}
	}
}

func TestOpenAIDetector(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output_text": `[{"label":"first_steps","confidence":0.94}]`,
		})
	}))
	defer server.Close()

	detector := NewOpenAIDetector(OpenAIConfig{
		ResponsesURL: server.URL,
		APIKey:       "test-key",
		Model:        "gpt-4o-mini",
		HTTPClient:   server.Client(),
	})

	detections, err := detector.DetectMilestones(context.Background(), "June took her first steps!")
	if err != nil {
		t.Fatalf("DetectMilestones() error = %v", err)
	}
	if len(detections) != 1 {
		t.Fatalf("detection count = %d, want 1", len(detections))
	}
	if detections[0].Label != "first_steps" {
		t.Errorf("detection.Label = %q, want %q", detections[0].Label, "first_steps")
	}
	if detections[0].Confidence != 0.94 {
		t.Errorf("detection.Confidence = %v, want 0.94", detections[0].Confidence)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("request model = %v, want gpt-4o-mini", gotBody["model"])
	}
	input, _ := gotBody["input"].(string)
	if !strings.Contains(input, "June took her first steps!") {
		t.Errorf("request input missing memory text: %q", input)
	}
}

func TestOpenAIDetectorNestedOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output": []map[string]any{
				{"content": []map[string]any{
					{"type": "output_text", "text": "```json\n[{\"label\":\"first_words\",\"confidence\":1.4}]\n```"},
				}},
			},
		})
	}))
	defer server.Close()

	detector := NewOpenAIDetector(OpenAIConfig{
		ResponsesURL: server.URL,
		APIKey:       "test-key",
		Model:        "gpt-4o-mini",
		HTTPClient:   server.Client(),
	})

	detections, err := detector.DetectMilestones(context.Background(), "He said mama!")
	if err != nil {
		t.Fatalf("DetectMilestones() error = %v", err)
	}
	if len(detections) != 1 || detections[0].Label != "first_words" {
		t.Fatalf("detections = %v, want [first_words]", detections)
	}
	// Confidence above 1 is clamped.
	if detections[0].Confidence != 1 {
		t.Errorf("detection.Confidence = %v, want 1", detections[0].Confidence)
	}
}

func TestOpenAIDetectorErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	detector := NewOpenAIDetector(OpenAIConfig{
		ResponsesURL: server.URL,
		APIKey:       "test-key",
		Model:        "gpt-4o-mini",
		HTTPClient:   server.Client(),
	})

	if _, err := detector.DetectMilestones(context.Background(), "text"); err == nil {
		t.Fatal("DetectMilestones() error = nil, want status error")
	}
}

func TestOpenAIDetectorMalformedOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"output_text": "not json"})
	}))
	defer server.Close()

	detector := NewOpenAIDetector(OpenAIConfig{
		ResponsesURL: server.URL,
		APIKey:       "test-key",
		Model:        "gpt-4o-mini",
		HTTPClient:   server.Client(),
	})

	if _, err := detector.DetectMilestones(context.Background(), "text"); err == nil {
		t.Fatal("DetectMilestones() error = nil, want decode error")
	}
}
