package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/keepsakehq/keepsake/internal/platform/id"
	"github.com/keepsakehq/keepsake/internal/services/ai"
	memoriesdomain "github.com/keepsakehq/keepsake/internal/services/memories/domain"
	memoriesstorage "github.com/keepsakehq/keepsake/internal/services/memories/storage"
)

// MilestoneHandler turns memory.captured events into milestone records.
type MilestoneHandler struct {
	detector    ai.Detector
	milestones  memoriesstorage.MilestoneStore
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewMilestoneHandler creates a milestone detection event handler.
func NewMilestoneHandler(detector ai.Detector, milestones memoriesstorage.MilestoneStore, clock func() time.Time) *MilestoneHandler {
	if clock == nil {
		clock = time.Now
	}
	return &MilestoneHandler{
		detector:    detector,
		milestones:  milestones,
		clock:       clock,
		idGenerator: id.NewID,
	}
}

// Handle detects milestones in a captured memory and stores them.
//
// Events without a child or without text are acked without detection; there
// is nothing to attach a milestone to. Malformed payloads are Permanent.
// Detector failures stay transient so the loop retries them.
func (h *MilestoneHandler) Handle(ctx context.Context, event memoriesstorage.OutboxEvent) error {
	if h == nil || h.detector == nil || h.milestones == nil {
		return Permanent(fmt.Errorf("milestone handler is not configured"))
	}
	payload, err := decodeCapturedPayload(event)
	if err != nil {
		return Permanent(err)
	}
	if payload.ChildID == "" {
		return nil
	}
	text := strings.TrimSpace(strings.TrimSpace(payload.Title) + "\n" + strings.TrimSpace(payload.Body))
	if text == "" {
		return nil
	}

	detections, err := h.detector.DetectMilestones(ctx, text)
	if err != nil {
		return fmt.Errorf("detect milestones: %w", err)
	}

	now := h.clock().UTC()
	for _, detection := range detections {
		milestoneID, err := h.idGenerator()
		if err != nil {
			return fmt.Errorf("generate milestone id: %w", err)
		}
		milestone := memoriesstorage.Milestone{
			ID:         milestoneID,
			MemoryID:   payload.MemoryID,
			ChildID:    payload.ChildID,
			Label:      detection.Label,
			Confidence: detection.Confidence,
			DetectedAt: now,
		}
		if err := h.milestones.PutMilestone(ctx, milestone); err != nil {
			return fmt.Errorf("put milestone %s: %w", detection.Label, err)
		}
	}
	return nil
}

func decodeCapturedPayload(event memoriesstorage.OutboxEvent) (memoriesdomain.CapturedPayload, error) {
	var payload memoriesdomain.CapturedPayload
	if strings.TrimSpace(event.PayloadJSON) == "" {
		return payload, fmt.Errorf("event %s has no payload", event.ID)
	}
	if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err != nil {
		return payload, fmt.Errorf("decode captured payload for event %s: %w", event.ID, err)
	}
	if strings.TrimSpace(payload.MemoryID) == "" {
		return payload, fmt.Errorf("event %s payload has no memory id", event.ID)
	}
	return payload, nil
}
