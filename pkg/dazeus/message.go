package dazeus

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// message is a classified frame: exactly one of event and response is set.
type message struct {
	event    *Event
	response *Response
}

// classify decodes a frame payload. Objects with an "event" key are events, everything else is
// a response.
func classify(payload []byte) (message, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return message{}, wrapError(CodeDecode, "malformed frame", err)
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return message{response: newResponse(payload, doc)}, nil
	}
	if _, isEvent := obj["event"]; !isEvent {
		return message{response: newResponse(payload, doc)}, nil
	}

	evt, err := parseEvent(obj)
	if err != nil {
		return message{}, err
	}
	return message{event: &evt}, nil
}

func parseEvent(obj map[string]any) (Event, error) {
	name, ok := obj["event"].(string)
	if !ok {
		return Event{}, invalidPayload("event name is not a string")
	}
	rawParams, ok := obj["params"].([]any)
	if !ok {
		return Event{}, invalidPayload(fmt.Sprintf("event %s has no params array", name))
	}

	var t EventType
	if name == commandKind {
		if len(rawParams) < 4 {
			return Event{}, invalidPayload("COMMAND event has fewer than 4 params")
		}
		cmd, ok := rawParams[3].(string)
		if !ok {
			return Event{}, invalidPayload("COMMAND event name is not a string")
		}
		t = CommandEvent(cmd)
	} else if t, ok = parseKnownKind(name); !ok {
		return Event{}, invalidPayload(fmt.Sprintf("unknown event %q", name))
	}

	params := make([]string, 0, len(rawParams))
	for _, p := range rawParams {
		if s, ok := p.(string); ok {
			params = append(params, s)
		}
	}
	return Event{Type: t, Params: params}, nil
}
