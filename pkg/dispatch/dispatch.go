// Package dispatch correlates outbound JSON-RPC requests with their
// responses across a shared stdio pipe, one pending-waiter table per
// backend.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/mcpgatewayd/pkg/backend"
	"github.com/tinyland-inc/mcpgatewayd/pkg/jsonrpc"
	"github.com/tinyland-inc/mcpgatewayd/pkg/logger"
)

// ErrTimeout is returned when a call's deadline elapses with no response.
var ErrTimeout = errors.New("dispatch: request timed out")

// DefaultTimeout is used when Dispatcher.Call is not given one explicitly.
const DefaultTimeout = 10 * time.Second

// Dispatcher multiplexes correlation-id-tagged requests and responses over
// any number of backends' stdio pipes. One Dispatcher serves every running
// server; waiter tables are keyed first by server id so two backends can
// reuse the same correlation id concurrently without collision.
type Dispatcher struct {
	mu      sync.Mutex
	waiters map[string]map[string]chan jsonrpc.Frame
}

func New() *Dispatcher {
	return &Dispatcher{waiters: make(map[string]map[string]chan jsonrpc.Frame)}
}

// HandlerFor returns the steady-state LineHandler to install on serverID's
// backend.Handle once its handshake completes. Frames with no id (server
// notifications) and frames whose id matches no in-flight waiter are
// dropped; the latter can happen if a call already timed out, and is logged
// at debug level.
func (d *Dispatcher) HandlerFor(serverID string) jsonrpc.LineHandler {
	return func(f jsonrpc.Frame) {
		if !f.HasID() {
			return
		}
		id := f.ID()

		d.mu.Lock()
		table := d.waiters[serverID]
		ch, ok := table[id]
		if ok {
			delete(table, id)
		}
		d.mu.Unlock()

		if !ok {
			logger.DebugCF("dispatch", "dropping response for unknown or expired id", map[string]any{
				"server_id": serverID,
				"id":        id,
			})
			return
		}
		// Buffered by exactly 1; this never blocks.
		ch <- f
	}
}

// Call sends method/params to h under serverID's waiter table and blocks
// until a matching response arrives, the backend exits, timeout elapses, or
// ctx is cancelled — whichever happens first. Delivery is at-most-once: the
// waiter entry is removed the moment HandlerFor consumes it or Call gives up
// on it, whichever comes first.
func (d *Dispatcher) Call(ctx context.Context, h *backend.Handle, serverID, method string, params any, timeout time.Duration) (jsonrpc.Frame, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	id := uuid.NewString()
	ch := make(chan jsonrpc.Frame, 1)

	d.mu.Lock()
	table, ok := d.waiters[serverID]
	if !ok {
		table = make(map[string]chan jsonrpc.Frame)
		d.waiters[serverID] = table
	}
	table[id] = ch
	d.mu.Unlock()

	cleanup := func() {
		d.mu.Lock()
		delete(d.waiters[serverID], id)
		d.mu.Unlock()
	}

	if err := h.Send(jsonrpc.NewRequest(id, method, params)); err != nil {
		cleanup()
		return jsonrpc.Frame{}, fmt.Errorf("dispatch %s: %w", method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-ch:
		return f, nil
	case <-timer.C:
		cleanup()
		return jsonrpc.Frame{}, ErrTimeout
	case <-h.Exited():
		cleanup()
		return jsonrpc.Frame{}, &backend.ErrExited{ServerID: serverID, Cause: h.ExitErr()}
	case <-ctx.Done():
		cleanup()
		return jsonrpc.Frame{}, ctx.Err()
	}
}

// RemoveServer drops serverID's whole waiter table, used when a backend is
// stopped so any still-registered ids can't leak.
func (d *Dispatcher) RemoveServer(serverID string) {
	d.mu.Lock()
	delete(d.waiters, serverID)
	d.mu.Unlock()
}
