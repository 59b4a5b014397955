package dazeus

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Response is a reply from the core, or a locally synthesized success or failure.
type Response struct {
	raw  []byte
	data any
}

// ResponseForSuccess returns a synthetic {"success": true} response.
func ResponseForSuccess() *Response {
	return mustResponse(map[string]any{"success": true})
}

// ResponseForFailure returns a synthetic {"success": false, "reason": reason} response.
func ResponseForFailure(reason string) *Response {
	return mustResponse(map[string]any{"success": false, "reason": reason})
}

func mustResponse(v map[string]any) *Response {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &Response{raw: raw, data: v}
}

func newResponse(raw []byte, data any) *Response {
	return &Response{raw: raw, data: data}
}

// Get returns the value of a top level field.
func (r *Response) Get(key string) (any, bool) {
	obj, ok := r.data.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[key]
	return v, ok
}

// Has reports whether the response has a top level field named key.
func (r *Response) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// GetString returns a top level string field.
func (r *Response) GetString(key string) (string, bool) {
	v, _ := r.Get(key)
	s, ok := v.(string)
	return s, ok
}

// GetStringOr returns a top level string field, or def when it is missing or not a string.
func (r *Response) GetStringOr(key, def string) string {
	if s, ok := r.GetString(key); ok {
		return s
	}
	return def
}

// Strings returns the string elements of a top level array field.
func (r *Response) Strings(key string) []string {
	v, _ := r.Get(key)
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Success reports whether the response has "success": true.
func (r *Response) Success() bool {
	v, _ := r.Get("success")
	b, ok := v.(bool)
	return ok && b
}

// Reason returns the failure reason, if any.
func (r *Response) Reason() string {
	return r.GetStringOr("reason", "")
}

// Lookup evaluates a gjson path such as "value.0" or "user.name" against the response.
func (r *Response) Lookup(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

// Decode unmarshals the response into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.raw, v)
}

// Raw returns the JSON document of the response.
func (r *Response) Raw() []byte {
	return bytes.Clone(r.raw)
}

func (r *Response) String() string {
	return string(r.raw)
}
