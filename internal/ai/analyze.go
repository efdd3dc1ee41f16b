package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stirosario/tecnos/internal/models"
)

// ProblemAnalysis is the structured read of a free-text problem
// description. The flow uses it as a hint when keyword matching comes up
// empty; it never overrides an explicit user answer.
type ProblemAnalysis struct {
	DeviceType models.DeviceType `json:"deviceType"`
	Category   string            `json:"category"` // e.g. "power", "network", "software"
	Urgency    string            `json:"urgency"`  // "low", "normal", "high"
	Summary    string            `json:"summary"`
}

const classifySystemPrompt = `You are a triage assistant for an IT repair shop.
Given a customer's problem description, respond with a single JSON object:
{"deviceType": one of "notebook","desktop","phone","router","console","printer","other",
 "category": one of "power","screen","network","software","hardware","other",
 "urgency": one of "low","normal","high",
 "summary": one short sentence in the customer's language}.
Respond with JSON only, no prose.`

// ClassifyProblem asks the model to extract device/category/urgency hints
// from a problem description.
func (c *Client) ClassifyProblem(ctx context.Context, description string) (*ProblemAnalysis, error) {
	out, err := c.Generate(ctx, classifySystemPrompt, description)
	if err != nil {
		return nil, fmt.Errorf("classify problem: %w", err)
	}

	var analysis ProblemAnalysis
	if err := json.Unmarshal([]byte(extractJSON(out)), &analysis); err != nil {
		slog.Warn("ai.ClassifyProblem: unparseable model output", "error", err, "output", out)
		return nil, fmt.Errorf("classify problem: unparseable model output: %w", err)
	}
	if !isKnownDeviceType(analysis.DeviceType) {
		analysis.DeviceType = models.DeviceOther
	}
	slog.Debug("ai.ClassifyProblem: classified", "deviceType", analysis.DeviceType, "category", analysis.Category, "urgency", analysis.Urgency)
	return &analysis, nil
}

// extractJSON strips markdown fences and surrounding prose, keeping the
// outermost JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

func isKnownDeviceType(dt models.DeviceType) bool {
	switch dt {
	case models.DeviceNotebook, models.DeviceDesktop, models.DevicePhone,
		models.DeviceRouter, models.DeviceConsole, models.DevicePrinter, models.DeviceOther:
		return true
	default:
		return false
	}
}
