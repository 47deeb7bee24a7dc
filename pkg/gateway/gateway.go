// Package gateway is the facade composing the registry, dispatcher, risk
// gate, and confirmation store into the operations the REST API and CLI
// expose: list, start, stop, call, and confirm.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/mcpgatewayd/pkg/backend"
	"github.com/tinyland-inc/mcpgatewayd/pkg/config"
	"github.com/tinyland-inc/mcpgatewayd/pkg/confirm"
	"github.com/tinyland-inc/mcpgatewayd/pkg/dispatch"
	"github.com/tinyland-inc/mcpgatewayd/pkg/logger"
	"github.com/tinyland-inc/mcpgatewayd/pkg/registry"
	"github.com/tinyland-inc/mcpgatewayd/pkg/riskgate"
)

var (
	ErrNotFound       = errors.New("server not found")
	ErrAlreadyRunning = errors.New("server already running")
)

// ClientName/ClientVersion identify this gateway during every backend's MCP
// handshake.
const (
	ClientName    = "mcpgatewayd"
	ClientVersion = "0.1.0"
)

// Gateway owns every moving part needed to supervise and talk to a set of
// MCP backends.
type Gateway struct {
	registry       *registry.Registry
	dispatcher     *dispatch.Dispatcher
	confirms       *confirm.Store
	requestTimeout time.Duration
	handshakeTO    time.Duration
}

func New(gw config.GatewayConfig) *Gateway {
	return &Gateway{
		registry:       registry.New(),
		dispatcher:     dispatch.New(),
		confirms:       confirm.New(time.Duration(gw.ConfirmationTTLSeconds) * time.Second),
		requestTimeout: time.Duration(gw.RequestTimeoutSeconds) * time.Second,
		handshakeTO:    time.Duration(gw.HandshakeTimeoutSeconds) * time.Second,
	}
}

// ServerInfo is the read-only view of a running server exposed to API/CLI
// callers.
type ServerInfo struct {
	ID              string    `json:"id"`
	Command         string    `json:"command"`
	RiskLevel       string    `json:"risk_level"`
	Pid             int       `json:"pid"`
	StartedAt       time.Time `json:"started_at"`
	OriginalCommand string    `json:"original_command,omitempty"`
}

// ListServers returns every currently running backend.
func (g *Gateway) ListServers() []ServerInfo {
	entries := g.registry.List()
	out := make([]ServerInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, ServerInfo{
			ID:              e.ID,
			Command:         e.Config.Command,
			RiskLevel:       e.Config.RiskLevel.String(),
			Pid:             e.Backend.Pid,
			StartedAt:       e.StartedAt,
			OriginalCommand: e.OriginalCommand,
		})
	}
	return out
}

// StartServer spawns id's backend, rewriting its command for High risk per
// riskgate.SpawnCommand, drives it through the Initialization FSM, and
// registers it. The registry conflict check runs before the process is
// spawned so a duplicate start never leaks an unregistered child.
func (g *Gateway) StartServer(ctx context.Context, id string, sc config.ServerConfig) error {
	if _, exists := g.registry.Get(id); exists {
		return ErrAlreadyRunning
	}

	command, args, originalCommand, err := riskgate.SpawnCommand(sc)
	if err != nil {
		return fmt.Errorf("spawn %s: %w", id, err)
	}

	// For High risk, sc.Env was already turned into -e flags inside the
	// docker run argv above; the docker CLI process itself only needs the
	// host environment to find its own binary and socket, not the backend's
	// configured vars. Everything else spawns directly, so its env
	// overrides apply to the process's own environment as usual.
	var env []string
	if sc.RiskLevel != config.High || sc.Docker == nil {
		env = mergeEnv(sc.Env)
	}

	h, err := backend.Spawn(ctx, id, command, args, env)
	if err != nil {
		return fmt.Errorf("spawn %s: %w", id, err)
	}

	state, err := backend.Handshake(ctx, h, backend.ClientInfo{Name: ClientName, Version: ClientVersion}, g.handshakeTO, g.dispatcher.HandlerFor(id))
	if err != nil || state != backend.Initialized {
		_ = h.Stop()
		return fmt.Errorf("handshake %s: %w", id, err)
	}

	entry := &registry.Entry{
		ID:              id,
		Config:          sc,
		Backend:         h,
		StartedAt:       time.Now(),
		OriginalCommand: originalCommand,
	}
	if err := g.registry.Insert(id, entry); err != nil {
		_ = h.Stop()
		return err
	}

	logger.InfoCF("gateway", "server started", map[string]any{"server_id": id, "pid": h.Pid})
	return nil
}

// StopServer terminates id's backend and forgets it.
func (g *Gateway) StopServer(id string) error {
	entry, ok := g.registry.Remove(id)
	if !ok {
		return ErrNotFound
	}
	g.dispatcher.RemoveServer(id)
	if err := entry.Backend.Stop(); err != nil {
		return fmt.Errorf("stop %s: %w", id, err)
	}
	logger.InfoCF("gateway", "server stopped", map[string]any{"server_id": id})
	return nil
}

// CallResult is what Call returns to the REST/CLI layer: either a completed
// backend result (with the approving ticket when one was attached), or a
// pending confirmation ticket in place of one. A rejected confirmation is
// returned as an error, not as a CallResult.
type CallResult struct {
	Result []byte
	Ticket *confirm.Ticket
}

// Call dispatches method/rawParams to id's backend, first running it through
// the risk gate. A Medium risk tools/call with no attached approval returns
// a Pending ticket instead of reaching the backend; a High risk call's
// result is annotated with the container it executed in.
func (g *Gateway) Call(ctx context.Context, id, method string, rawParams []byte) (*CallResult, error) {
	entry, ok := g.registry.Get(id)
	if !ok {
		return nil, ErrNotFound
	}

	outcome, ticket, err := riskgate.Evaluate(g.confirms, id, entry.Config, method, rawParams)
	switch outcome {
	case riskgate.Pending:
		return &CallResult{Ticket: ticket}, nil
	case riskgate.Rejected:
		return nil, err
	}

	frame, err := g.dispatcher.Call(ctx, entry.Backend, id, method, json.RawMessage(rawParams), g.requestTimeout)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, id, err)
	}
	if frame.HasError() {
		return nil, fmt.Errorf("backend %s returned error: %s", id, frame.ErrorMessage())
	}

	annotated, err := riskgate.Annotate(entry.Config, entry.OriginalCommand, frame.Result())
	if err != nil {
		return nil, fmt.Errorf("annotate result: %w", err)
	}
	return &CallResult{Result: annotated, Ticket: ticket}, nil
}

// Confirm resolves a pending ticket.
func (g *Gateway) Confirm(id string, approve bool) (*confirm.Ticket, error) {
	return g.confirms.Resolve(id, approve)
}

// PendingConfirmations lists every ticket still awaiting a human decision.
func (g *Gateway) PendingConfirmations() []*confirm.Ticket {
	return g.confirms.Pending()
}

// Shutdown stops every running backend concurrently. A single backend's
// failure to stop cleanly is logged, not propagated, so one stuck process
// never blocks the rest of the fleet from being torn down.
func (g *Gateway) Shutdown(ctx context.Context) error {
	entries := g.registry.List()
	eg, _ := errgroup.WithContext(ctx)
	for _, e := range entries {
		e := e
		eg.Go(func() error {
			g.registry.Remove(e.ID)
			g.dispatcher.RemoveServer(e.ID)
			if err := e.Backend.Stop(); err != nil {
				logger.ErrorCF("gateway", "error stopping server during shutdown", map[string]any{
					"server_id": e.ID,
					"error":     err.Error(),
				})
			}
			return nil
		})
	}
	return eg.Wait()
}

// mergeEnv overlays sc.Env on top of the gateway process's own environment
// so backends inherit PATH and friends unless explicitly overridden.
func mergeEnv(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}
	env := os.Environ()
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}
