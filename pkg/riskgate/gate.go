package riskgate

import (
	"errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tinyland-inc/mcpgatewayd/pkg/config"
	"github.com/tinyland-inc/mcpgatewayd/pkg/confirm"
)

// ConfirmationParamKey is the params field a client attaches to a resubmitted
// tools/call once it holds an approved confirmation id.
const ConfirmationParamKey = "_mcpgw_confirmation_id"

// ErrConfirmationRejected is returned by Evaluate when the attached
// confirmation id resolved to a rejection.
var ErrConfirmationRejected = errors.New("confirmation rejected")

// Outcome is what the dispatcher should do with a tools/call after gating.
type Outcome int

const (
	// Direct means dispatch the call unmodified.
	Direct Outcome = iota
	// Pending means a confirmation ticket now exists (or still exists) and
	// the call must not reach the backend; the caller should return the
	// ticket to the client instead.
	Pending
	// Rejected means an attached confirmation id resolved to a rejection.
	Rejected
)

// requiresConfirmation reports whether method is the kind of call Medium
// risk gates at all; only tools/call can cause side effects worth confirming.
func requiresConfirmation(method string) bool {
	return method == "tools/call"
}

// Evaluate classifies one dispatch attempt against sc's risk level. rawParams
// is the request's raw JSON params object.
func Evaluate(store *confirm.Store, serverID string, sc config.ServerConfig, method string, rawParams []byte) (Outcome, *confirm.Ticket, error) {
	if sc.RiskLevel != config.Medium || !requiresConfirmation(method) {
		return Direct, nil, nil
	}

	confirmationID := gjson.GetBytes(rawParams, ConfirmationParamKey).String()
	if confirmationID == "" {
		toolName := gjson.GetBytes(rawParams, "name").String()
		ticket := store.Create(serverID, method, toolName, sc.RiskLevel, rawParams)
		return Pending, ticket, nil
	}

	ticket, err := store.Get(confirmationID)
	if err != nil {
		return Rejected, nil, err
	}
	if !ticket.Resolved() {
		return Pending, ticket, nil
	}
	if !ticket.Approved() {
		return Rejected, ticket, ErrConfirmationRejected
	}
	return Direct, ticket, nil
}

// Annotate merges an execution_environment field into a High risk server's
// raw JSON-RPC result, describing the container it actually ran in. Low,
// Medium, and Unset results pass through unchanged.
func Annotate(sc config.ServerConfig, originalCommand string, resultJSON []byte) ([]byte, error) {
	if sc.RiskLevel != config.High || sc.Docker == nil {
		return resultJSON, nil
	}
	return sjson.SetBytes(resultJSON, "execution_environment", map[string]any{
		"risk_level":       config.High.String(),
		"risk_description": config.High.Description(),
		"docker":           true,
		"docker_image":     sc.Docker.Image,
		"original_command": originalCommand,
	})
}
