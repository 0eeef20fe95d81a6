// Package ai detects developmental milestones in captured memory text,
// either through an OpenAI-compatible endpoint or an offline keyword
// heuristic.
package ai
