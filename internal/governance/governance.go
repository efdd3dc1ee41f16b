// Package governance enforces the per-stage conversation contract: which
// button tokens a stage may show, which user events it accepts, and how
// many quick replies fit in the widget. The contract table is embedded at
// build time and validated on startup.
package governance

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stirosario/tecnos/internal/models"
)

//go:embed contracts.yaml
var contractsYAML []byte

// StageType classifies how strictly a stage filters input.
type StageType string

const (
	// StageDeterministic stages accept only their allow-listed tokens and
	// recognized text patterns; everything else is blocked.
	StageDeterministic StageType = "deterministic"
	// StageGuided stages prefer buttons but tolerate free text.
	StageGuided StageType = "guided"
	// StageOpen stages are free-text first.
	StageOpen StageType = "open"
)

// StageContract describes what one stage allows.
type StageContract struct {
	Type           StageType `yaml:"type"`
	AllowButtons   bool      `yaml:"allowButtons"`
	AllowText      bool      `yaml:"allowText"`
	AllowImages    bool      `yaml:"allowImages"`
	MaxButtons     int       `yaml:"maxButtons"`
	AllowedTokens  []string  `yaml:"allowedTokens"`
	DefaultButtons []string  `yaml:"defaultButtons"`
}

// Violation records one contract breach observed on a turn.
type Violation struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return v.Code + ": " + v.Detail
}

var contracts map[models.Stage]StageContract

func init() {
	var err error
	contracts, err = parseContracts(contractsYAML)
	if err != nil {
		panic(fmt.Sprintf("governance: invalid embedded contract table: %v", err))
	}
}

// parseContracts decodes and validates a contract table. Every stage in
// the flow must have a contract and no contract may name an unknown stage.
func parseContracts(data []byte) (map[models.Stage]StageContract, error) {
	raw := map[string]StageContract{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse contract table: %w", err)
	}
	out := make(map[models.Stage]StageContract, len(raw))
	for name, c := range raw {
		stage := models.Stage(name)
		if !models.IsValidStage(stage) {
			return nil, fmt.Errorf("contract for unknown stage %q", name)
		}
		if c.MaxButtons < 0 {
			return nil, fmt.Errorf("stage %q: negative maxButtons", name)
		}
		if len(c.DefaultButtons) > c.MaxButtons {
			return nil, fmt.Errorf("stage %q: %d default buttons exceed maxButtons %d", name, len(c.DefaultButtons), c.MaxButtons)
		}
		out[stage] = c
	}
	for _, stage := range models.Stages {
		if _, ok := out[stage]; !ok {
			return nil, fmt.Errorf("stage %q has no contract", stage)
		}
	}
	return out, nil
}

// ContractFor returns the contract of a stage.
func ContractFor(stage models.Stage) (StageContract, bool) {
	c, ok := contracts[stage]
	return c, ok
}

// DefaultButtons returns the stage's default quick replies.
func DefaultButtons(stage models.Stage) []models.ButtonToken {
	c, ok := contracts[stage]
	if !ok {
		return nil
	}
	out := make([]models.ButtonToken, 0, len(c.DefaultButtons))
	for _, t := range c.DefaultButtons {
		out = append(out, models.ButtonToken(t))
	}
	return out
}

// IsTokenAllowed reports whether a stage's allow-list admits the token.
// Entries ending in '*' match any token with that prefix.
func IsTokenAllowed(stage models.Stage, token models.ButtonToken) bool {
	c, ok := contracts[stage]
	if !ok {
		return false
	}
	for _, allowed := range c.AllowedTokens {
		if prefix, ok := strings.CutSuffix(allowed, "*"); ok {
			if strings.HasPrefix(string(token), prefix) {
				return true
			}
			continue
		}
		if string(token) == allowed {
			return true
		}
	}
	return false
}

// SanitizeButtonsForStage filters a button list against the stage's
// allow-list and truncates it to maxButtons. Dropped tokens are logged.
func SanitizeButtonsForStage(stage models.Stage, buttons []models.ButtonToken) []models.ButtonToken {
	c, ok := contracts[stage]
	if !ok || !c.AllowButtons || c.MaxButtons == 0 {
		return nil
	}
	out := make([]models.ButtonToken, 0, len(buttons))
	for _, b := range buttons {
		if !IsTokenAllowed(stage, b) {
			slog.Warn("governance.SanitizeButtonsForStage: dropping disallowed token", "stage", stage, "token", b)
			continue
		}
		out = append(out, b)
	}
	if len(out) > c.MaxButtons {
		slog.Warn("governance.SanitizeButtonsForStage: truncating buttons", "stage", stage, "count", len(out), "max", c.MaxButtons)
		out = out[:c.MaxButtons]
	}
	return out
}

// EnforceStage classifies a user event against the stage contract. It
// returns whether the event may proceed and the violations observed.
// Violations block the turn only on deterministic stages; guided and open
// stages record them and let the turn continue.
func EnforceStage(stage models.Stage, event models.UserEvent) (allowed bool, violations []Violation) {
	c, ok := contracts[stage]
	if !ok {
		return false, []Violation{{Code: "UNKNOWN_STAGE", Detail: string(stage)}}
	}
	switch event.Kind {
	case "button":
		if !c.AllowButtons {
			violations = append(violations, Violation{Code: "BUTTONS_NOT_ALLOWED", Detail: string(stage)})
		} else if !IsTokenAllowed(stage, event.Token) {
			violations = append(violations, Violation{Code: "TOKEN_NOT_ALLOWED", Detail: string(event.Token)})
		}
	case "text":
		if !c.AllowText {
			violations = append(violations, Violation{Code: "TEXT_NOT_ALLOWED", Detail: string(stage)})
		}
	case "image":
		if !c.AllowImages {
			violations = append(violations, Violation{Code: "IMAGES_NOT_ALLOWED", Detail: string(stage)})
		}
	default:
		violations = append(violations, Violation{Code: "UNKNOWN_EVENT_KIND", Detail: event.Kind})
	}
	if len(violations) == 0 {
		return true, nil
	}
	if c.Type == StageDeterministic {
		slog.Info("governance.EnforceStage: blocking event", "stage", stage, "kind", event.Kind, "violations", len(violations))
		return false, violations
	}
	return true, violations
}
