// Package jsonrpc defines the wire types and line-framed codec used to talk
// to MCP backends over stdio.
package jsonrpc

import "github.com/bytedance/sonic"

// Version is the JSON-RPC protocol version string every message carries.
const Version = "2.0"

// Request is an outbound JSON-RPC 2.0 request or notification. A Notification
// has a nil ID and expects no response. ID is `any` rather than `string`
// because the handshake's id is the literal JSON integer 1 (per spec), while
// every other request carries a minted UUID string.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewRequest builds a request with a correlation id. id is `any` to allow
// both the handshake's literal integer 1 and every other call's minted UUID
// string.
func NewRequest(id any, method string, params any) Request {
	return Request{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// NewNotification builds a notification (no id, no response expected).
func NewNotification(method string, params any) Request {
	return Request{JSONRPC: Version, Method: method, Params: params}
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Marshal encodes v using the fast JSON encoder (every outbound frame passes
// through it; inbound lines are read with gjson, see Frame).
func Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// Unmarshal decodes data using the fast JSON decoder.
func Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}
