package ai

import (
	"context"
	"sort"
	"strings"
)

// keywordRules maps milestone labels to trigger phrases. Matching is
// case-insensitive on whole phrases; longer phrases are checked before their
// substrings so "first words" does not also fire "words".
var keywordRules = map[string][]string{
	"first_steps":   {"first steps", "first step", "started walking", "took a step"},
	"first_words":   {"first word", "first words", "said mama", "said papa", "said dada"},
	"first_tooth":   {"first tooth", "tooth came in", "teething"},
	"crawling":      {"started crawling", "crawled for the first time", "first crawl"},
	"first_smile":   {"first smile", "smiled for the first time"},
	"first_laugh":   {"first laugh", "laughed for the first time", "first giggle"},
	"rolling_over":  {"rolled over", "rolling over"},
	"sitting_up":    {"sat up", "sitting up on"},
	"first_haircut": {"first haircut"},
	"first_day":     {"first day of school", "first day of daycare", "first day of kindergarten"},
	"potty_trained": {"potty trained", "potty training done", "no more diapers"},
	"first_solid":   {"first solid food", "first solids", "started solids"},
}

// heuristicConfidence is reported for every keyword match. The heuristic
// cannot rank matches, so one honest mid confidence beats a fabricated score.
const heuristicConfidence = 0.6

type keywordDetector struct{}

// NewKeywordDetector creates the offline milestone detector.
func NewKeywordDetector() Detector {
	return keywordDetector{}
}

// DetectMilestones scans the text for known milestone phrases. The result is
// sorted by label so identical input always produces identical output.
func (keywordDetector) DetectMilestones(_ context.Context, text string) ([]Detection, error) {
	lowered := strings.ToLower(text)
	var detections []Detection
	for label, phrases := range keywordRules {
		for _, phrase := range phrases {
			if strings.Contains(lowered, phrase) {
				detections = append(detections, Detection{Label: label, Confidence: heuristicConfidence})
				break
			}
		}
	}
	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Label < detections[j].Label
	})
	return detections, nil
}
