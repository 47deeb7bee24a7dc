package jsonrpc

import "github.com/tidwall/gjson"

// Frame is a single parsed inbound JSON object, read lazily via gjson so the
// hot path (scanning id/method on every line) never pays for a full struct
// unmarshal of payloads the Dispatcher or handshake don't care about.
type Frame struct {
	Raw []byte
}

// ParseFrame validates that raw is a JSON object and wraps it. It does not
// interpret the object's shape — callers ask Frame for the fields they need.
func ParseFrame(raw []byte) (Frame, bool) {
	if !gjson.ValidBytes(raw) {
		return Frame{}, false
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return Frame{}, false
	}
	return Frame{Raw: raw}, true
}

// ID returns the JSON-RPC id field as a string regardless of whether the
// wire value was a JSON number (e.g. the handshake's literal 1) or a string
// (every minted correlation id). Empty string means no id field is present.
func (f Frame) ID() string {
	return gjson.GetBytes(f.Raw, "id").String()
}

// HasID reports whether the frame carries an id field at all, distinguishing
// a response for id "" (which cannot happen, ids are never minted empty)
// from a notification that has no id field.
func (f Frame) HasID() bool {
	return gjson.GetBytes(f.Raw, "id").Exists()
}

// Method returns the method field, empty if absent (true for responses).
func (f Frame) Method() string {
	return gjson.GetBytes(f.Raw, "method").String()
}

// HasError reports whether the frame carries a JSON-RPC error object.
func (f Frame) HasError() bool {
	return gjson.GetBytes(f.Raw, "error").Exists()
}

// ErrorMessage returns the error object's message field.
func (f Frame) ErrorMessage() string {
	return gjson.GetBytes(f.Raw, "error.message").String()
}

// Result returns the raw JSON of the result field (object, array, or
// scalar), or nil if absent.
func (f Frame) Result() []byte {
	r := gjson.GetBytes(f.Raw, "result")
	if !r.Exists() {
		return nil
	}
	return []byte(r.Raw)
}

// Get extracts an arbitrary dotted path from the frame, e.g.
// "result.protocolVersion" or "params.name".
func (f Frame) Get(path string) gjson.Result {
	return gjson.GetBytes(f.Raw, path)
}
