package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/tinyland-inc/mcpgatewayd/pkg/jsonrpc"
	"github.com/tinyland-inc/mcpgatewayd/pkg/logger"
)

// InitState is the Initialization FSM's state (spec §3/§4.2).
type InitState string

const (
	Starting    InitState = "starting"
	Initialized InitState = "initialized"
	TimedOut    InitState = "timeout"
	Errored     InitState = "error"
)

const (
	// handshakeID is the literal integer id the spec requires for the
	// initialize request.
	handshakeID = 1
	// ProtocolVersion is the MCP protocol version this gateway speaks.
	ProtocolVersion = "2025-03-26"
	// SettleDelay is the heuristic pause before sending initialize, giving
	// the child time to start reading its stdin. See DESIGN.md's Open
	// Question decision: not replaced by a readiness probe, since MCP has no
	// pre-initialize readiness signal to poll.
	SettleDelay = time.Second
	// HandshakeTimeout bounds how long Starting may persist.
	HandshakeTimeout = 30 * time.Second
)

// ClientInfo identifies this gateway to backends during the handshake.
type ClientInfo struct {
	Name    string
	Version string
}

// Handshake drives a single backend through the Initialization FSM: it
// installs a temporary handler, waits for the settling delay, sends
// `initialize`, and waits for a matching reply. On success it sends
// `notifications/initialized` and installs steadyState as the handle's
// handler before returning Initialized. On failure (timeout, context
// cancellation, or write error) it returns TimedOut or Errored and leaves no
// handler installed that will ever call steadyState.
func Handshake(ctx context.Context, h *Handle, client ClientInfo, timeout time.Duration, steadyState jsonrpc.LineHandler) (InitState, error) {
	if timeout <= 0 {
		timeout = HandshakeTimeout
	}
	replies := make(chan jsonrpc.Frame, 4)
	h.SetHandler(func(f jsonrpc.Frame) {
		select {
		case replies <- f:
		default:
			// Temp handler buffer full; a backend flooding us before
			// initialize even lands is unusual. Drop rather than block the
			// sole stdout reader.
		}
	})

	select {
	case <-time.After(SettleDelay):
	case <-h.Exited():
		return Errored, &ErrExited{ServerID: h.ServerID, Cause: h.ExitErr()}
	case <-ctx.Done():
		return Errored, ctx.Err()
	}

	req := jsonrpc.NewRequest(handshakeID, "initialize", map[string]any{
		"protocolVersion": ProtocolVersion,
		"clientInfo": map[string]any{
			"name":    client.Name,
			"version": client.Version,
		},
		"capabilities": map[string]any{},
	})
	if err := h.Send(req); err != nil {
		return Errored, fmt.Errorf("send initialize: %w", err)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case f := <-replies:
			if f.ID() != "1" || !f.Get("result.protocolVersion").Exists() {
				logger.DebugCF("backend", "ignoring frame during handshake", map[string]any{
					"server_id": h.ServerID,
					"method":    f.Method(),
				})
				continue
			}
			if err := h.Send(jsonrpc.NewNotification("notifications/initialized", nil)); err != nil {
				return Errored, fmt.Errorf("send notifications/initialized: %w", err)
			}
			h.SetHandler(steadyState)
			return Initialized, nil

		case <-deadline.C:
			h.SetHandler(func(jsonrpc.Frame) {})
			return TimedOut, fmt.Errorf("handshake timed out after %s", timeout)

		case <-h.Exited():
			return Errored, &ErrExited{ServerID: h.ServerID, Cause: h.ExitErr()}

		case <-ctx.Done():
			return Errored, ctx.Err()
		}
	}
}
