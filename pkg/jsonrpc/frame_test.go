package jsonrpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameRejectsNonObject(t *testing.T) {
	_, ok := ParseFrame([]byte(`[1,2,3]`))
	assert.False(t, ok)

	_, ok = ParseFrame([]byte(`not json`))
	assert.False(t, ok)
}

func TestFrameIDNormalizesNumberAndString(t *testing.T) {
	numeric, ok := ParseFrame([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	require.True(t, ok)
	assert.Equal(t, "1", numeric.ID())

	stringy, ok := ParseFrame([]byte(`{"jsonrpc":"2.0","id":"abc-123","result":{}}`))
	require.True(t, ok)
	assert.Equal(t, "abc-123", stringy.ID())
}

func TestFrameHasIDDistinguishesNotifications(t *testing.T) {
	notification, ok := ParseFrame([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.True(t, ok)
	assert.False(t, notification.HasID())
	assert.Equal(t, "notifications/initialized", notification.Method())
}

func TestFrameErrorFields(t *testing.T) {
	f, ok := ParseFrame([]byte(`{"jsonrpc":"2.0","id":"1","error":{"code":-32000,"message":"boom"}}`))
	require.True(t, ok)
	assert.True(t, f.HasError())
	assert.Equal(t, "boom", f.ErrorMessage())
}

func TestFrameResultAndGet(t *testing.T) {
	f, ok := ParseFrame([]byte(`{"jsonrpc":"2.0","id":"1","result":{"protocolVersion":"2025-03-26"}}`))
	require.True(t, ok)
	assert.JSONEq(t, `{"protocolVersion":"2025-03-26"}`, string(f.Result()))
	assert.Equal(t, "2025-03-26", f.Get("result.protocolVersion").String())
}
