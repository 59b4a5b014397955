package fakecore

import (
	"encoding/json"
	"fmt"
)

// Request is a request received from a plugin.
type Request struct {
	// Class is "do" or "get"
	Class string
	// Verb is the requested operation, e.g. "join"
	Verb string
	// Params holds the decoded parameters
	Params []any
	// Scope is nil when the request carried no scope
	Scope []any
	// Raw is the payload as received
	Raw json.RawMessage
}

// Param returns parameter i as a string, or "" when it is missing or not a string.
func (r Request) Param(i int) string {
	if i < 0 || i >= len(r.Params) {
		return ""
	}
	s, _ := r.Params[i].(string)
	return s
}

func (r Request) boolParam(i int) bool {
	if i < 0 || i >= len(r.Params) {
		return false
	}
	b, _ := r.Params[i].(bool)
	return b
}

// ParseRequest decodes a request payload.
func ParseRequest(payload []byte) (Request, error) {
	var wire struct {
		Do     *string `json:"do"`
		Get    *string `json:"get"`
		Params []any   `json:"params"`
		Scope  []any   `json:"scope"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Request{}, err
	}

	req := Request{Params: wire.Params, Scope: wire.Scope, Raw: append(json.RawMessage(nil), payload...)}
	switch {
	case wire.Do != nil && wire.Get == nil:
		req.Class, req.Verb = "do", *wire.Do
	case wire.Get != nil && wire.Do == nil:
		req.Class, req.Verb = "get", *wire.Get
	default:
		return Request{}, fmt.Errorf("request needs exactly one of do and get: %s", payload)
	}
	return req, nil
}

// Event is an event sent to plugins.
type Event struct {
	Name   string `json:"event"`
	Params []any  `json:"params"`
}

// NewEvent builds an event with string parameters.
func NewEvent(name string, params ...string) Event {
	evt := Event{Name: name, Params: make([]any, len(params))}
	for i, p := range params {
		evt.Params[i] = p
	}
	return evt
}

// Reply is the answer of a Handler. Response is sent first, then Events in order.
type Reply struct {
	Response any
	Events   []Event
}

// Success is the generic successful response.
func Success() map[string]any {
	return map[string]any{"success": true}
}

// Failure is the generic failed response.
func Failure(reason string) map[string]any {
	return map[string]any{"success": false, "error": reason}
}
