package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/mcpgatewayd/pkg/jsonrpc"
)

// fakeInitializingServer reads one line (the initialize request), answers it
// with a matching id-1 result, and then echoes everything else, simulating a
// cooperative MCP backend closely enough to exercise the handshake FSM.
const fakeInitializingServer = `read _; printf '{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2025-03-26"}}\n'; cat`

func TestHandshakeSucceeds(t *testing.T) {
	h, err := Spawn(context.Background(), "srv-init", "sh", []string{"-c", fakeInitializingServer}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Stop() })

	steady := make(chan jsonrpc.Frame, 1)
	state, err := Handshake(context.Background(), h, ClientInfo{Name: "mcpgatewayd", Version: "test"}, 0, func(f jsonrpc.Frame) {
		steady <- f
	})
	require.NoError(t, err)
	assert.Equal(t, Initialized, state)

	// The steady-state handler should now be receiving frames, not the
	// handshake's temporary one.
	require.NoError(t, h.Send(jsonrpc.NewRequest("later-1", "tools/list", nil)))
	select {
	case f := <-steady:
		assert.Equal(t, "tools/list", f.Method())
	case <-time.After(2 * time.Second):
		t.Fatal("steady-state handler never received a frame after handshake")
	}
}

func TestHandshakeTimesOutOnSilentBackend(t *testing.T) {
	h, err := Spawn(context.Background(), "srv-silent", "sleep", []string{"5"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Stop() })

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	state, err := Handshake(ctx, h, ClientInfo{Name: "mcpgatewayd", Version: "test"}, 0, func(jsonrpc.Frame) {})
	require.Error(t, err)
	assert.Equal(t, Errored, state) // ctx deadline fires before the 30s handshake timeout
}
