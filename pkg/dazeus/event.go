package dazeus

import (
	"fmt"
	"strings"
)

// EventType identifies a kind of event. It is comparable, so it can be used as a map key or
// with ==. Command events carry the name of the command.
type EventType struct {
	kind    string
	command string
}

const commandKind = "COMMAND"

// Event types that the core can send.
var (
	EventAction     = EventType{kind: "ACTION"}
	EventActionMe   = EventType{kind: "ACTION_ME"}
	EventConnect    = EventType{kind: "CONNECT"}
	EventCtcp       = EventType{kind: "CTCP"}
	EventCtcpMe     = EventType{kind: "CTCP_ME"}
	EventCtcpReply  = EventType{kind: "CTCP_REP"}
	EventDisconnect = EventType{kind: "DISCONNECT"}
	EventInvite     = EventType{kind: "INVITE"}
	EventJoin       = EventType{kind: "JOIN"}
	EventKick       = EventType{kind: "KICK"}
	EventMode       = EventType{kind: "MODE"}
	EventNames      = EventType{kind: "NAMES"}
	EventNick       = EventType{kind: "NICK"}
	EventNotice     = EventType{kind: "NOTICE"}
	EventNumeric    = EventType{kind: "NUMERIC"}
	EventPart       = EventType{kind: "PART"}
	EventPong       = EventType{kind: "PONG"}
	EventPrivMsg    = EventType{kind: "PRIVMSG"}
	EventPrivMsgMe  = EventType{kind: "PRIVMSG_ME"}
	EventQuit       = EventType{kind: "QUIT"}
	EventTopic      = EventType{kind: "TOPIC"}
	EventUnknown    = EventType{kind: "UNKNOWN"}
	EventWhois      = EventType{kind: "WHOIS"}
)

var knownKinds = map[string]EventType{}

func init() {
	for _, t := range []EventType{
		EventAction, EventActionMe, EventConnect, EventCtcp, EventCtcpMe, EventCtcpReply,
		EventDisconnect, EventInvite, EventJoin, EventKick, EventMode, EventNames, EventNick,
		EventNotice, EventNumeric, EventPart, EventPong, EventPrivMsg, EventPrivMsgMe, EventQuit,
		EventTopic, EventUnknown, EventWhois,
	} {
		knownKinds[t.kind] = t
	}
}

// CommandEvent returns the event type for the command with the given name.
func CommandEvent(name string) EventType {
	return EventType{kind: commandKind, command: name}
}

// IsCommand reports whether t is a command event type.
func (t EventType) IsCommand() bool {
	return t.kind == commandKind
}

// CommandName returns the command of a command event type, or "".
func (t EventType) CommandName() string {
	return t.command
}

// IsZero reports whether t is the zero EventType.
func (t EventType) IsZero() bool {
	return t.kind == ""
}

// String renders t the way the core names it, e.g. JOIN or COMMAND_greet.
func (t EventType) String() string {
	if t.IsCommand() {
		return commandKind + "_" + t.command
	}
	return t.kind
}

// ParseEventType is the inverse of EventType.String. Names are matched case-insensitively; the
// command name of a COMMAND_name type is kept as given.
func ParseEventType(s string) (EventType, error) {
	if t, ok := parseKnownKind(s); ok {
		return t, nil
	}
	if len(s) > len(commandKind)+1 && strings.EqualFold(s[:len(commandKind)+1], commandKind+"_") {
		return CommandEvent(s[len(commandKind)+1:]), nil
	}
	return EventType{}, fmt.Errorf("unknown event type %q", s)
}

func parseKnownKind(s string) (EventType, bool) {
	t, ok := knownKinds[strings.ToUpper(s)]
	return t, ok
}

// Event is an unsolicited notification from the core.
type Event struct {
	Type   EventType
	Params []string
}

// Param returns the i-th parameter, or "" when the event has fewer parameters.
func (e Event) Param(i int) string {
	if i < 0 || i >= len(e.Params) {
		return ""
	}
	return e.Params[i]
}

// Network returns the network the event originated from.
func (e Event) Network() string {
	return e.Param(0)
}

// Command returns the name of the invoked command for command events.
func (e Event) Command() string {
	return e.Type.CommandName()
}

// Clone returns a copy of e that shares no memory with it.
func (e Event) Clone() Event {
	return Event{Type: e.Type, Params: append([]string(nil), e.Params...)}
}

func (e Event) String() string {
	return fmt.Sprintf("%s%q", e.Type, e.Params)
}
