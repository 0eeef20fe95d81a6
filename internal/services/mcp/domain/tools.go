// Package domain defines the MCP tool schemas and handlers for memory and
// milestone operations.
package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	familydomain "github.com/keepsakehq/keepsake/internal/services/family/domain"
	memoriesdomain "github.com/keepsakehq/keepsake/internal/services/memories/domain"
	memoriesstorage "github.com/keepsakehq/keepsake/internal/services/memories/storage"
)

// Actor resolves the account the MCP process acts on behalf of.
type Actor func() string

// FamilyListInput represents the MCP tool input for listing families.
type FamilyListInput struct{}

// FamilySummary is one family in a listing result.
type FamilySummary struct {
	ID   string `json:"id" jsonschema:"family identifier"`
	Name string `json:"name" jsonschema:"family display name"`
}

// FamilyListResult represents the MCP tool output for listing families.
type FamilyListResult struct {
	Families []FamilySummary `json:"families" jsonschema:"families the acting user belongs to"`
}

// FamilyListTool defines the MCP tool schema for listing families.
func FamilyListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "family_list",
		Description: "Lists the families the acting user belongs to. Family identifiers feed the memory tools.",
	}
}

// FamilyListHandler executes a family listing request.
func FamilyListHandler(family *familydomain.Service, actor Actor) mcp.ToolHandlerFor[FamilyListInput, FamilyListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ FamilyListInput) (*mcp.CallToolResult, FamilyListResult, error) {
		families, err := family.ListFamilies(ctx, actor())
		if err != nil {
			return nil, FamilyListResult{}, fmt.Errorf("family list failed: %w", err)
		}
		result := FamilyListResult{Families: make([]FamilySummary, 0, len(families))}
		for _, entry := range families {
			result.Families = append(result.Families, FamilySummary{ID: entry.ID, Name: entry.Name})
		}
		return nil, result, nil
	}
}

// MemoryCaptureInput represents the MCP tool input for capturing a memory.
type MemoryCaptureInput struct {
	FamilyID string `json:"family_id" jsonschema:"family identifier"`
	ChildID  string `json:"child_id,omitempty" jsonschema:"optional child the memory is about"`
	Kind     string `json:"kind" jsonschema:"memory kind (photo, voice, text)"`
	Title    string `json:"title,omitempty" jsonschema:"optional short title"`
	Body     string `json:"body,omitempty" jsonschema:"memory text; required for text memories"`
	MediaKey string `json:"media_key,omitempty" jsonschema:"opaque media storage key; required for photo and voice memories"`
}

// MemoryCaptureResult represents the MCP tool output for capturing a memory.
type MemoryCaptureResult struct {
	ID         string `json:"id" jsonschema:"memory identifier"`
	FamilyID   string `json:"family_id" jsonschema:"family identifier"`
	ChildID    string `json:"child_id,omitempty" jsonschema:"child identifier when set"`
	Kind       string `json:"kind" jsonschema:"memory kind"`
	Title      string `json:"title,omitempty" jsonschema:"memory title"`
	CapturedAt string `json:"captured_at" jsonschema:"RFC3339 timestamp the memory was captured"`
}

// MemoryCaptureTool defines the MCP tool schema for capturing a memory.
func MemoryCaptureTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "memory_capture",
		Description: "Records a family memory. Text memories need a body; photo and voice memories need a media key. Captured memories queue milestone detection.",
	}
}

// MemoryCaptureHandler executes a memory capture request.
func MemoryCaptureHandler(memories *memoriesdomain.Service, actor Actor) mcp.ToolHandlerFor[MemoryCaptureInput, MemoryCaptureResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MemoryCaptureInput) (*mcp.CallToolResult, MemoryCaptureResult, error) {
		memory, err := memories.Capture(ctx, actor(), memoriesdomain.Draft{
			FamilyID: input.FamilyID,
			ChildID:  input.ChildID,
			Kind:     input.Kind,
			Title:    input.Title,
			Body:     input.Body,
			MediaKey: input.MediaKey,
		})
		if err != nil {
			return nil, MemoryCaptureResult{}, fmt.Errorf("memory capture failed: %w", err)
		}
		return nil, memoryCaptureResultFromRecord(memory), nil
	}
}

func memoryCaptureResultFromRecord(memory memoriesstorage.Memory) MemoryCaptureResult {
	return MemoryCaptureResult{
		ID:         memory.ID,
		FamilyID:   memory.FamilyID,
		ChildID:    memory.ChildID,
		Kind:       memory.Kind,
		Title:      memory.Title,
		CapturedAt: memory.CapturedAt.UTC().Format(time.RFC3339),
	}
}

// MemoryListInput represents the MCP tool input for listing memories.
type MemoryListInput struct {
	FamilyID string `json:"family_id" jsonschema:"family identifier"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum memories to return (newest first)"`
}

// MemorySummary is one memory in a listing result.
type MemorySummary struct {
	ID         string `json:"id" jsonschema:"memory identifier"`
	ChildID    string `json:"child_id,omitempty" jsonschema:"child identifier when set"`
	Kind       string `json:"kind" jsonschema:"memory kind"`
	Title      string `json:"title,omitempty" jsonschema:"memory title"`
	Body       string `json:"body,omitempty" jsonschema:"memory text"`
	CapturedAt string `json:"captured_at" jsonschema:"RFC3339 capture timestamp"`
}

// MemoryListResult represents the MCP tool output for listing memories.
type MemoryListResult struct {
	Memories []MemorySummary `json:"memories" jsonschema:"memories newest first"`
}

// MemoryListTool defines the MCP tool schema for listing memories.
func MemoryListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "memory_list",
		Description: "Lists recent memories for a family the acting user belongs to, newest first.",
	}
}

// MemoryListHandler executes a memory listing request.
func MemoryListHandler(memories *memoriesdomain.Service, actor Actor) mcp.ToolHandlerFor[MemoryListInput, MemoryListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MemoryListInput) (*mcp.CallToolResult, MemoryListResult, error) {
		records, err := memories.ListByFamily(ctx, actor(), input.FamilyID, input.Limit)
		if err != nil {
			return nil, MemoryListResult{}, fmt.Errorf("memory list failed: %w", err)
		}
		result := MemoryListResult{Memories: make([]MemorySummary, 0, len(records))}
		for _, record := range records {
			result.Memories = append(result.Memories, MemorySummary{
				ID:         record.ID,
				ChildID:    record.ChildID,
				Kind:       record.Kind,
				Title:      record.Title,
				Body:       record.Body,
				CapturedAt: record.CapturedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil, result, nil
	}
}

// MilestoneListInput represents the MCP tool input for listing milestones.
type MilestoneListInput struct {
	FamilyID string `json:"family_id" jsonschema:"family identifier"`
	ChildID  string `json:"child_id" jsonschema:"child identifier"`
}

// MilestoneSummary is one detected milestone in a listing result.
type MilestoneSummary struct {
	ID         string  `json:"id" jsonschema:"milestone identifier"`
	MemoryID   string  `json:"memory_id" jsonschema:"memory the milestone was detected in"`
	Label      string  `json:"label" jsonschema:"milestone label, e.g. first_steps"`
	Confidence float64 `json:"confidence" jsonschema:"detection confidence between 0 and 1"`
	DetectedAt string  `json:"detected_at" jsonschema:"RFC3339 detection timestamp"`
}

// MilestoneListResult represents the MCP tool output for listing milestones.
type MilestoneListResult struct {
	Milestones []MilestoneSummary `json:"milestones" jsonschema:"detected milestones for the child"`
}

// MilestoneListTool defines the MCP tool schema for listing milestones.
func MilestoneListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "milestone_list",
		Description: "Lists detected developmental milestones for a child in a family the acting user belongs to.",
	}
}

// MilestoneListHandler executes a milestone listing request.
func MilestoneListHandler(memories *memoriesdomain.Service, actor Actor) mcp.ToolHandlerFor[MilestoneListInput, MilestoneListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MilestoneListInput) (*mcp.CallToolResult, MilestoneListResult, error) {
		records, err := memories.ListMilestones(ctx, actor(), input.FamilyID, input.ChildID)
		if err != nil {
			return nil, MilestoneListResult{}, fmt.Errorf("milestone list failed: %w", err)
		}
		result := MilestoneListResult{Milestones: make([]MilestoneSummary, 0, len(records))}
		for _, record := range records {
			result.Milestones = append(result.Milestones, MilestoneSummary{
				ID:         record.ID,
				MemoryID:   record.MemoryID,
				Label:      record.Label,
				Confidence: record.Confidence,
				DetectedAt: record.DetectedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil, result, nil
	}
}
