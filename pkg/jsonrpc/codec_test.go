package jsonrpc

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMessageAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteMessage(NewRequest("1", "ping", nil)))
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Contains(t, buf.String(), `"method":"ping"`)
}

func TestReadLoopSplitsOnNewline(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":"1","result":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":"2","result":{}}` + "\n"

	var got []string
	err := ReadLoop(strings.NewReader(input), func(f Frame) {
		got = append(got, f.ID())
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestReadLoopReportsMalformedLines(t *testing.T) {
	input := "not json\n" + `{"jsonrpc":"2.0","id":"1","result":{}}` + "\n"

	var malformed []string
	var ids []string
	err := ReadLoop(strings.NewReader(input), func(f Frame) {
		ids = append(ids, f.ID())
	}, func(line string) {
		malformed = append(malformed, line)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"not json"}, malformed)
	assert.Equal(t, []string{"1"}, ids)
}

func TestReadLoopHandlesObjectWithNoTrailingNewline(t *testing.T) {
	r, w := io.Pipe()
	go func() {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"only"}`))
		w.Close()
	}()

	var got string
	err := ReadLoop(r, func(f Frame) { got = f.ID() }, nil)
	require.NoError(t, err)
	assert.Equal(t, "only", got)
}
