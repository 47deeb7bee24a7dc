package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/mcpgatewayd/pkg/config"
)

// fakeMCPServer handshakes once and then echoes an {"ok":true} result for
// every subsequent request, preserving whatever id it was sent.
const fakeMCPServer = `
read _
printf '{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2025-03-26"}}\n'
read _
while IFS= read -r line; do
  id=$(printf '%s' "$line" | sed -n 's/.*"id":"\{0,1\}\([a-zA-Z0-9-]*\)"\{0,1\}.*/\1/p')
  printf '{"jsonrpc":"2.0","id":"%s","result":{"ok":true}}\n' "$id"
done
`

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		RequestTimeoutSeconds:   5,
		ConfirmationTTLSeconds:  600,
		HandshakeTimeoutSeconds: 5,
	}
}

func TestStartCallStopLowRisk(t *testing.T) {
	g := New(testGatewayConfig())
	sc := config.ServerConfig{Command: "sh", Args: []string{"-c", fakeMCPServer}}

	ctx := context.Background()
	require.NoError(t, g.StartServer(ctx, "srv-1", sc))

	list := g.ListServers()
	require.Len(t, list, 1)
	assert.Equal(t, "srv-1", list[0].ID)

	result, err := g.Call(ctx, "srv-1", "tools/call", []byte(`{"name":"echo"}`))
	require.NoError(t, err)
	assert.Contains(t, string(result.Result), `"ok":true`)

	require.NoError(t, g.StopServer("srv-1"))
	assert.Empty(t, g.ListServers())
}

func TestStartServerConflict(t *testing.T) {
	g := New(testGatewayConfig())
	sc := config.ServerConfig{Command: "sh", Args: []string{"-c", fakeMCPServer}}
	ctx := context.Background()

	require.NoError(t, g.StartServer(ctx, "dup", sc))
	t.Cleanup(func() { _ = g.StopServer("dup") })

	err := g.StartServer(ctx, "dup", sc)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestMediumRiskRequiresConfirmation(t *testing.T) {
	g := New(testGatewayConfig())
	sc := config.ServerConfig{Command: "sh", Args: []string{"-c", fakeMCPServer}, RiskLevel: config.Medium}
	ctx := context.Background()

	require.NoError(t, g.StartServer(ctx, "srv-medium", sc))
	t.Cleanup(func() { _ = g.StopServer("srv-medium") })

	result, err := g.Call(ctx, "srv-medium", "tools/call", []byte(`{"name":"delete_file"}`))
	require.NoError(t, err)
	require.NotNil(t, result.Ticket)
	assert.Nil(t, result.Result)

	_, err = g.Confirm(result.Ticket.ID, true)
	require.NoError(t, err)

	params := []byte(`{"name":"delete_file","_mcpgw_confirmation_id":"` + result.Ticket.ID + `"}`)
	approved, err := g.Call(ctx, "srv-medium", "tools/call", params)
	require.NoError(t, err)
	assert.Contains(t, string(approved.Result), `"ok":true`)
}

func TestCallUnknownServer(t *testing.T) {
	g := New(testGatewayConfig())
	_, err := g.Call(context.Background(), "nope", "tools/call", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShutdownStopsAllServers(t *testing.T) {
	g := New(testGatewayConfig())
	sc := config.ServerConfig{Command: "sh", Args: []string{"-c", fakeMCPServer}}
	ctx := context.Background()

	require.NoError(t, g.StartServer(ctx, "a", sc))
	require.NoError(t, g.StartServer(ctx, "b", sc))

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, g.Shutdown(shutdownCtx))

	assert.Empty(t, g.ListServers())
}
