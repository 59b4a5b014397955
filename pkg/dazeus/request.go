package dazeus

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProtocolVersion is the plugin protocol version these bindings speak.
const ProtocolVersion = "1"

// ConfigGroup selects which section of the core configuration a config request reads.
type ConfigGroup int

const (
	// ConfigPlugin reads from the settings of the plugin that completed the handshake.
	ConfigPlugin ConfigGroup = iota
	// ConfigCore reads from the core settings.
	ConfigCore
)

func (g ConfigGroup) String() string {
	switch g {
	case ConfigCore:
		return "core"
	default:
		return "plugin"
	}
}

// ParseConfigGroup parses "plugin" or "core", case-insensitively.
func ParseConfigGroup(s string) (ConfigGroup, error) {
	switch strings.ToLower(s) {
	case "plugin":
		return ConfigPlugin, nil
	case "core":
		return ConfigCore, nil
	default:
		return ConfigPlugin, fmt.Errorf("unknown config group %q", s)
	}
}

const (
	classDo  = "do"
	classGet = "get"
)

// Request is an operation to send to the core. Requests are immutable and are built with the
// constructor functions of this package.
type Request struct {
	class  string
	verb   string
	params []any
	scope  Scope
}

func newRequest(verb string, params ...any) Request {
	return Request{class: classDo, verb: verb, params: params}
}

func newGetRequest(verb string, params ...any) Request {
	return Request{class: classGet, verb: verb, params: params}
}

func (r Request) withScope(scope Scope) Request {
	r.scope = scope
	return r
}

// Verb returns the operation name, e.g. "join".
func (r Request) Verb() string {
	return r.verb
}

// Class returns "get" for queries and "do" for everything else.
func (r Request) Class() string {
	return r.class
}

// Params returns a copy of the request parameters.
func (r Request) Params() []any {
	return append([]any(nil), r.params...)
}

// Scope returns the scope of a property or permission request.
func (r Request) Scope() Scope {
	return r.scope
}

type wireRequest struct {
	Do     string `json:"do,omitempty"`
	Get    string `json:"get,omitempty"`
	Params []any  `json:"params,omitempty"`
	Scope  *Scope `json:"scope,omitempty"`
}

// MarshalJSON encodes the request as {"do"|"get": verb, "params": [...], "scope": [...]}.
func (r Request) MarshalJSON() ([]byte, error) {
	if r.verb == "" {
		return nil, fmt.Errorf("dazeus: zero Request")
	}
	w := wireRequest{Params: r.params}
	if r.class == classGet {
		w.Get = r.verb
	} else {
		w.Do = r.verb
	}
	if !r.scope.IsAny() {
		scope := r.scope
		w.Scope = &scope
	}
	return json.Marshal(w)
}

func (r Request) String() string {
	data, err := r.MarshalJSON()
	if err != nil {
		return "<invalid request>"
	}
	return string(data)
}

// Subscribe subscribes to events of type t. For command types this is SubscribeCommand.
func Subscribe(t EventType) Request {
	if t.IsCommand() {
		return SubscribeCommand(t.CommandName())
	}
	return newRequest("subscribe", t.String())
}

// unsubscribe stops the core from sending events of type t. The core cannot unsubscribe
// commands, so callers never pass a command type.
func unsubscribe(t EventType) Request {
	if t.IsCommand() {
		panic("dazeus: commands cannot be unsubscribed")
	}
	return newRequest("unsubscribe", t.String())
}

// SubscribeCommand registers a command on all networks.
func SubscribeCommand(command string) Request {
	return newRequest("command", command)
}

// SubscribeCommandOn registers a command on a single network.
func SubscribeCommandOn(command, network string) Request {
	return newRequest("command", command, network)
}

// Networks requests the networks the core is connected to.
func Networks() Request {
	return newGetRequest("networks")
}

// Channels requests the channels joined on a network.
func Channels(network string) Request {
	return newGetRequest("channels", network)
}

// Message sends a PRIVMSG.
func Message(network, target, message string) Request {
	return newRequest("message", network, target, message)
}

// Notice sends a NOTICE.
func Notice(network, target, message string) Request {
	return newRequest("notice", network, target, message)
}

// Ctcp sends a CTCP request.
func Ctcp(network, target, message string) Request {
	return newRequest("ctcp", network, target, message)
}

// CtcpReply sends a CTCP reply.
func CtcpReply(network, target, message string) Request {
	return newRequest("ctcp_rep", network, target, message)
}

// Action sends a CTCP ACTION (/me).
func Action(network, target, message string) Request {
	return newRequest("action", network, target, message)
}

// Names asks for the nicks in a channel. The answer arrives as a NAMES event.
func Names(network, channel string) Request {
	return newRequest("names", network, channel)
}

// Whois asks for information on a nick. The answer arrives as a WHOIS event.
func Whois(network, nick string) Request {
	return newRequest("whois", network, nick)
}

// Join joins a channel.
func Join(network, channel string) Request {
	return newRequest("join", network, channel)
}

// Part leaves a channel.
func Part(network, channel string) Request {
	return newRequest("part", network, channel)
}

// Nick requests the nick of the bot on a network.
func Nick(network string) Request {
	return newGetRequest("nick", network)
}

// Handshake identifies the plugin to the core. configName selects the config section of the
// plugin and defaults to name when empty.
func Handshake(name, version, configName string) Request {
	if configName == "" {
		configName = name
	}
	return newRequest("handshake", name, version, ProtocolVersion, configName)
}

// Config reads a configuration value.
func Config(key string, group ConfigGroup) Request {
	return newGetRequest("config", group.String(), key)
}

// GetProperty reads a property from the core database.
func GetProperty(name string, scope Scope) Request {
	return newRequest("property", "get", name).withScope(scope)
}

// SetProperty stores a property in the core database.
func SetProperty(name, value string, scope Scope) Request {
	return newRequest("property", "set", name, value).withScope(scope)
}

// UnsetProperty removes a property from the core database.
func UnsetProperty(name string, scope Scope) Request {
	return newRequest("property", "unset", name).withScope(scope)
}

// PropertyKeys lists the property keys starting with prefix.
func PropertyKeys(prefix string, scope Scope) Request {
	return newRequest("property", "keys", prefix).withScope(scope)
}

// SetPermission allows or denies a permission.
func SetPermission(permission string, allow bool, scope Scope) Request {
	return newRequest("permission", "set", permission, allow).withScope(scope)
}

// HasPermission checks a permission; the core answers def when it was never set.
func HasPermission(permission string, def bool, scope Scope) Request {
	return newRequest("permission", "get", permission, def).withScope(scope)
}

// UnsetPermission removes a permission.
func UnsetPermission(permission string, scope Scope) Request {
	return newRequest("permission", "unset", permission).withScope(scope)
}
