package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tinyland-inc/mcpgatewayd/pkg/logger"
)

// RiskLevel classifies how much trust a tool call on a given server requires
// before it may reach the backend unmodified.
type RiskLevel int

const (
	// Unset means the config omitted risk_level or gave an unrecognized
	// one; the dispatcher treats it
	// identically to Low.
	Unset RiskLevel = 0
	Low   RiskLevel = 1
	Medium RiskLevel = 2
	High   RiskLevel = 3
)

func (r RiskLevel) String() string {
	switch r {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unset"
	}
}

// Description returns the fixed human-readable description every RiskLevel
// carries, surfaced to operators in confirmation prompts and execution
// environment annotations.
func (r RiskLevel) Description() string {
	switch r {
	case Low:
		return "Low risk: dispatched to the backend with no additional controls."
	case Medium:
		return "Medium risk: requires human confirmation before each tool call reaches the backend."
	case High:
		return "High risk: always executed inside an isolated container."
	default:
		return "No risk policy applied."
	}
}

// ParseRiskLevelInt converts the dynamic MCP_SERVER_<NAME>_RISK_LEVEL env
// var's integer form (1/2/3) into a RiskLevel.
func ParseRiskLevelInt(n int) (RiskLevel, error) {
	switch n {
	case 1:
		return Low, nil
	case 2:
		return Medium, nil
	case 3:
		return High, nil
	default:
		return Unset, fmt.Errorf("unrecognized risk_level %d", n)
	}
}

// ParseRiskLevel converts the config file's string form into a RiskLevel.
// An empty string is Unset, not an error; anything else unrecognized is.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Unset, nil
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	default:
		return Unset, fmt.Errorf("unrecognized risk_level %q", s)
	}
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	if r == Unset {
		return json.Marshal("")
	}
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(s)
	if err != nil {
		// An unrecognized level is dropped (left Unset) with a warning
		// rather than failing the whole document.
		logger.WarnCF("config", "ignoring unrecognized risk_level", map[string]any{"error": err.Error()})
		parsed = Unset
	}
	*r = parsed
	return nil
}
