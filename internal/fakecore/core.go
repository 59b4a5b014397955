package fakecore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ServerName is reported as the IRC server in WHOIS and NAMES events.
const ServerName = "irc.fake.local"

// Core is the in-memory state a Server answers requests from. It is safe for concurrent use.
type Core struct {
	mu sync.Mutex

	// network -> bot nick
	nicks map[string]string
	// network -> joined channels
	channels map[string][]string
	// channel key -> nicks present
	names map[string][]string
	// "plugin" and "core" config groups
	config map[string]map[string]string
	// scope key -> value
	properties  map[string]string
	permissions map[string]bool
	// plugin name -> handshake parameters
	handshakes map[string][]any
}

// NewCore returns a core connected to no networks.
func NewCore() *Core {
	return &Core{
		nicks:       make(map[string]string),
		channels:    make(map[string][]string),
		names:       make(map[string][]string),
		config:      map[string]map[string]string{"plugin": {}, "core": {}},
		properties:  make(map[string]string),
		permissions: make(map[string]bool),
		handshakes:  make(map[string][]any),
	}
}

// AddNetwork connects the core to network with the bot using nick.
func (c *Core) AddNetwork(network, nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nicks[network] = nick
	if _, ok := c.channels[network]; !ok {
		c.channels[network] = []string{}
	}
}

// SetNick renames the bot on network.
func (c *Core) SetNick(network, nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nicks[network] = nick
}

// SetNames sets the nicks NAMES reports for a channel.
func (c *Core) SetNames(network, channel string, nicks ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[network+"\x00"+channel] = nicks
}

// SetConfig stores a config value in group "plugin" or "core".
func (c *Core) SetConfig(group, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config[group] == nil {
		c.config[group] = make(map[string]string)
	}
	c.config[group][key] = value
}

// Channels returns the channels joined on network.
func (c *Core) Channels(network string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.channels[network]...)
}

// Handshake returns the handshake parameters a plugin sent.
func (c *Core) Handshake(name string) ([]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	params, ok := c.handshakes[name]
	return params, ok
}

// answer produces the default reply to req.
func (c *Core) answer(client *Client, req Request) Reply {
	switch req.Verb {
	case "subscribe":
		added := 0
		for i := range req.Params {
			if name := req.Param(i); name != "" && client.subscribe(strings.ToUpper(name)) {
				added++
			}
		}
		return Reply{Response: map[string]any{"success": true, "added": added}}
	case "unsubscribe":
		removed := 0
		for i := range req.Params {
			if name := req.Param(i); name != "" && client.unsubscribe(strings.ToUpper(name)) {
				removed++
			}
		}
		return Reply{Response: map[string]any{"success": true, "removed": removed}}
	case "command":
		if req.Param(0) == "" {
			return Reply{Response: Failure("Missing command name")}
		}
		client.registerCommand(req.Param(0))
		return Reply{Response: Success()}
	case "handshake":
		return c.handshake(req)
	case "networks":
		return Reply{Response: map[string]any{"success": true, "networks": c.networkList()}}
	}

	if req.Verb == "config" {
		return c.getConfig(req)
	}
	if req.Verb == "property" {
		return c.property(req)
	}
	if req.Verb == "permission" {
		return c.permission(req)
	}

	// Everything else acts on a network.
	network := req.Param(0)
	c.mu.Lock()
	nick, connected := c.nicks[network]
	c.mu.Unlock()
	if !connected {
		return Reply{Response: Failure(fmt.Sprintf("Not on network %q", network))}
	}

	switch req.Verb {
	case "channels":
		return Reply{Response: map[string]any{"success": true, "network": network, "channels": c.Channels(network)}}
	case "nick":
		return Reply{Response: map[string]any{"success": true, "network": network, "nick": nick}}
	case "join":
		c.join(network, req.Param(1))
		return Reply{Response: Success()}
	case "part":
		if !c.part(network, req.Param(1)) {
			return Reply{Response: Failure("Not in channel " + req.Param(1))}
		}
		return Reply{Response: Success()}
	case "message", "notice", "ctcp", "ctcp_rep", "action":
		if req.Param(1) == "" {
			return Reply{Response: Failure("Missing target")}
		}
		return Reply{Response: Success()}
	case "whois":
		return c.whois(client, network, req.Param(1))
	case "names":
		return c.namesOf(client, network, req.Param(1))
	default:
		return Reply{Response: Failure("Unknown request " + req.Verb)}
	}
}

func (c *Core) handshake(req Request) Reply {
	if len(req.Params) < 4 {
		return Reply{Response: Failure("Handshake needs name, version, protocol and config name")}
	}
	if req.Param(2) != "1" {
		return Reply{Response: Failure("Unsupported protocol version " + req.Param(2))}
	}
	c.mu.Lock()
	c.handshakes[req.Param(0)] = req.Params
	c.mu.Unlock()
	return Reply{Response: Success()}
}

func (c *Core) networkList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	networks := make([]string, 0, len(c.nicks))
	for n := range c.nicks {
		networks = append(networks, n)
	}
	sort.Strings(networks)
	return networks
}

func (c *Core) join(network, channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.channels[network] {
		if strings.EqualFold(ch, channel) {
			return
		}
	}
	c.channels[network] = append(c.channels[network], channel)
}

func (c *Core) part(network, channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	chans := c.channels[network]
	for i, ch := range chans {
		if strings.EqualFold(ch, channel) {
			c.channels[network] = append(chans[:i], chans[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Core) whois(client *Client, network, nick string) Reply {
	reply := Reply{Response: Success()}
	evt := NewEvent("WHOIS", network, ServerName, nick, "~"+strings.ToLower(nick), "fake.host")
	if client.Subscribed(evt) {
		reply.Events = append(reply.Events, evt)
	}
	return reply
}

func (c *Core) namesOf(client *Client, network, channel string) Reply {
	c.mu.Lock()
	nicks := append([]string{c.nicks[network]}, c.names[network+"\x00"+channel]...)
	c.mu.Unlock()

	reply := Reply{Response: Success()}
	evt := NewEvent("NAMES", append([]string{network, ServerName, channel}, nicks...)...)
	if client.Subscribed(evt) {
		reply.Events = append(reply.Events, evt)
	}
	return reply
}

func (c *Core) getConfig(req Request) Reply {
	c.mu.Lock()
	defer c.mu.Unlock()

	group, ok := c.config[req.Param(0)]
	if !ok {
		return Reply{Response: Failure("Unknown config group " + req.Param(0))}
	}
	value, ok := group[req.Param(1)]
	if !ok {
		return Reply{Response: map[string]any{"success": true, "value": nil}}
	}
	return Reply{Response: map[string]any{"success": true, "value": value}}
}

// scopeKey renders a wire scope so that equal scopes produce equal keys.
func scopeKey(scope []any) string {
	parts := make([]string, 3)
	for i := range parts {
		if i < len(scope) {
			if s, ok := scope[i].(string); ok {
				parts[i] = s
			}
		}
	}
	return strings.Join(parts, "\x00")
}

func (c *Core) property(req Request) Reply {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := scopeKey(req.Scope) + "\x00"
	name := req.Param(1)
	switch req.Param(0) {
	case "get":
		value, ok := c.properties[prefix+name]
		if !ok {
			return Reply{Response: map[string]any{"success": true, "variable": name, "value": nil}}
		}
		return Reply{Response: map[string]any{"success": true, "variable": name, "value": value}}
	case "set":
		if len(req.Params) < 3 {
			return Reply{Response: Failure("Missing property value")}
		}
		c.properties[prefix+name] = req.Param(2)
		return Reply{Response: Success()}
	case "unset":
		delete(c.properties, prefix+name)
		return Reply{Response: Success()}
	case "keys":
		keys := []string{}
		for k := range c.properties {
			if rest, ok := strings.CutPrefix(k, prefix); ok && strings.HasPrefix(rest, name) {
				keys = append(keys, rest)
			}
		}
		sort.Strings(keys)
		return Reply{Response: map[string]any{"success": true, "keys": keys}}
	default:
		return Reply{Response: Failure("Unknown property action " + req.Param(0))}
	}
}

func (c *Core) permission(req Request) Reply {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := scopeKey(req.Scope) + "\x00" + req.Param(1)
	switch req.Param(0) {
	case "get":
		has, ok := c.permissions[key]
		if !ok {
			has = req.boolParam(2)
		}
		return Reply{Response: map[string]any{"success": true, "has_permission": has}}
	case "set":
		c.permissions[key] = req.boolParam(2)
		return Reply{Response: Success()}
	case "unset":
		delete(c.permissions, key)
		return Reply{Response: Success()}
	default:
		return Reply{Response: Failure("Unknown permission action " + req.Param(0))}
	}
}
