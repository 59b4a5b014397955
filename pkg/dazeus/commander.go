package dazeus

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// cleanupTimeout bounds the unsubscribe sent after a blocking Whois or Names was cancelled.
const cleanupTimeout = 5 * time.Second

// Networks retrieves the networks the core is connected to.
func (s *Session) Networks(ctx context.Context) (*Response, error) {
	return s.Send(ctx, Networks())
}

// Channels retrieves the channels joined on a network.
func (s *Session) Channels(ctx context.Context, network string) (*Response, error) {
	return s.Send(ctx, Channels(network))
}

// Message sends a PRIVMSG to target.
func (s *Session) Message(ctx context.Context, network, target, message string) (*Response, error) {
	return s.Send(ctx, Message(network, target, message))
}

// Notice sends a NOTICE to target.
func (s *Session) Notice(ctx context.Context, network, target, message string) (*Response, error) {
	return s.Send(ctx, Notice(network, target, message))
}

// Ctcp sends a CTCP request to target.
func (s *Session) Ctcp(ctx context.Context, network, target, message string) (*Response, error) {
	return s.Send(ctx, Ctcp(network, target, message))
}

// CtcpReply sends a CTCP reply to target.
func (s *Session) CtcpReply(ctx context.Context, network, target, message string) (*Response, error) {
	return s.Send(ctx, CtcpReply(network, target, message))
}

// Action sends a CTCP ACTION to target.
func (s *Session) Action(ctx context.Context, network, target, message string) (*Response, error) {
	return s.Send(ctx, Action(network, target, message))
}

// SendNames asks for the nicks in a channel. The response only confirms the request; the
// nicks arrive later as a NAMES event.
func (s *Session) SendNames(ctx context.Context, network, channel string) (*Response, error) {
	return s.Send(ctx, Names(network, channel))
}

// SendWhois asks for a whois on nick. The response only confirms the request; the result
// arrives later as a WHOIS event.
func (s *Session) SendWhois(ctx context.Context, network, nick string) (*Response, error) {
	return s.Send(ctx, Whois(network, nick))
}

// Join joins a channel.
func (s *Session) Join(ctx context.Context, network, channel string) (*Response, error) {
	return s.Send(ctx, Join(network, channel))
}

// Part leaves a channel.
func (s *Session) Part(ctx context.Context, network, channel string) (*Response, error) {
	return s.Send(ctx, Part(network, channel))
}

// Nick retrieves the nick of the bot on a network.
func (s *Session) Nick(ctx context.Context, network string) (*Response, error) {
	return s.Send(ctx, Nick(network))
}

// Handshake identifies the plugin to the core. It is required before reading plugin config.
func (s *Session) Handshake(ctx context.Context, name, version, configName string) (*Response, error) {
	return s.Send(ctx, Handshake(name, version, configName))
}

// GetConfig reads a configuration value.
func (s *Session) GetConfig(ctx context.Context, key string, group ConfigGroup) (*Response, error) {
	return s.Send(ctx, Config(key, group))
}

// GetHighlightChar reads the character users prefix commands with.
func (s *Session) GetHighlightChar(ctx context.Context) (*Response, error) {
	return s.GetConfig(ctx, "highlight", ConfigCore)
}

// GetProperty reads a property.
func (s *Session) GetProperty(ctx context.Context, name string, scope Scope) (*Response, error) {
	return s.Send(ctx, GetProperty(name, scope))
}

// SetProperty stores a property.
func (s *Session) SetProperty(ctx context.Context, name, value string, scope Scope) (*Response, error) {
	return s.Send(ctx, SetProperty(name, value, scope))
}

// UnsetProperty removes a property.
func (s *Session) UnsetProperty(ctx context.Context, name string, scope Scope) (*Response, error) {
	return s.Send(ctx, UnsetProperty(name, scope))
}

// GetPropertyKeys lists the property keys starting with prefix.
func (s *Session) GetPropertyKeys(ctx context.Context, prefix string, scope Scope) (*Response, error) {
	return s.Send(ctx, PropertyKeys(prefix, scope))
}

// SetPermission allows or denies a permission.
func (s *Session) SetPermission(ctx context.Context, permission string, allow bool, scope Scope) (*Response, error) {
	return s.Send(ctx, SetPermission(permission, allow, scope))
}

// HasPermission checks a permission, answering def when it was never set.
func (s *Session) HasPermission(ctx context.Context, permission string, def bool, scope Scope) (*Response, error) {
	return s.Send(ctx, HasPermission(permission, def, scope))
}

// UnsetPermission removes a permission.
func (s *Session) UnsetPermission(ctx context.Context, permission string, scope Scope) (*Response, error) {
	return s.Send(ctx, UnsetPermission(permission, scope))
}

// Whois sends a whois request and waits for the WHOIS event answering it. Events received in
// the meantime are handled as by NextEvent. The IRC server may never answer; use ctx to bound
// the wait.
func (s *Session) Whois(ctx context.Context, network, nick string) (Event, error) {
	return s.awaitAnswer(ctx, EventWhois, Whois(network, nick), network, nick)
}

// Names sends a names request and waits for the NAMES event answering it. Events received in
// the meantime are handled as by NextEvent. The IRC server may never answer; use ctx to bound
// the wait.
func (s *Session) Names(ctx context.Context, network, channel string) (Event, error) {
	return s.awaitAnswer(ctx, EventNames, Names(network, channel), network, channel)
}

// awaitAnswer subscribes to t unless someone already listens, sends req, and pumps events until
// one of type t for network and target arrives.
func (s *Session) awaitAnswer(ctx context.Context, t EventType, req Request, network, target string) (Event, error) {
	if !s.HasAnySubscription(t) {
		if _, err := s.Send(ctx, Subscribe(t)); err != nil {
			return Event{}, err
		}
	}
	if _, err := s.Send(ctx, req); err != nil {
		s.dropTemporarySubscription(ctx, t)
		return Event{}, err
	}

	for {
		evt, err := s.NextEvent(ctx)
		if err != nil {
			s.dropTemporarySubscription(ctx, t)
			return Event{}, err
		}
		if evt.Type == t && evt.Param(0) == network && evt.Param(2) == target {
			s.dropTemporarySubscription(ctx, t)
			return evt, nil
		}
	}
}

func (s *Session) dropTemporarySubscription(ctx context.Context, t EventType) {
	if s.HasAnySubscription(t) || s.State() == StateClosed {
		return
	}
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
	}
	if _, err := s.Send(ctx, unsubscribe(t)); err != nil {
		s.log.Warn("failed to drop temporary subscription", "event", t.String(), "error", err)
	}
}

// replyTargets returns network, channel and user for events that can be replied to.
func replyTargets(evt Event) (network, channel, user string, ok bool) {
	switch evt.Type {
	case EventJoin, EventPrivMsg, EventNotice, EventCtcp, EventAction:
	default:
		return "", "", "", false
	}
	if len(evt.Params) < 3 {
		return "", "", "", false
	}
	return evt.Params[0], evt.Params[2], evt.Params[1], true
}

// replyTarget decides where a reply goes: to the user directly when the event was a private
// message to the bot, otherwise to the channel.
func (s *Session) replyTarget(ctx context.Context, evt Event) (network, target, user string, private bool, err error) {
	network, channel, user, ok := replyTargets(evt)
	if !ok {
		return "", "", "", false, nil
	}
	nick, err := s.botNick(ctx, network)
	if err != nil {
		return "", "", "", false, err
	}
	if channel == nick {
		return network, user, user, true, nil
	}
	return network, channel, user, false, nil
}

// Reply answers evt with a PRIVMSG. In a channel the message is prefixed with "user: " when
// highlight is set. Events that cannot be replied to yield a failure response.
func (s *Session) Reply(ctx context.Context, evt Event, message string, highlight bool) (*Response, error) {
	network, target, user, private, err := s.replyTarget(ctx, evt)
	if err != nil {
		return nil, err
	}
	if network == "" && target == "" {
		return ResponseForFailure("Not an event to reply to"), nil
	}
	if highlight && !private {
		message = user + ": " + message
	}
	return s.Message(ctx, network, target, message)
}

// ReplyWithNotice answers evt with a NOTICE.
func (s *Session) ReplyWithNotice(ctx context.Context, evt Event, message string) (*Response, error) {
	network, target, _, _, err := s.replyTarget(ctx, evt)
	if err != nil {
		return nil, err
	}
	if network == "" && target == "" {
		return ResponseForFailure("Not an event to reply to"), nil
	}
	return s.Notice(ctx, network, target, message)
}

// ReplyWithAction answers evt with a CTCP ACTION.
func (s *Session) ReplyWithAction(ctx context.Context, evt Event, message string) (*Response, error) {
	network, target, _, _, err := s.replyTarget(ctx, evt)
	if err != nil {
		return nil, err
	}
	if network == "" && target == "" {
		return ResponseForFailure("Not an event to reply to"), nil
	}
	return s.Action(ctx, network, target, message)
}

// botNick returns the nick of the bot on network, from the cache when enabled.
func (s *Session) botNick(ctx context.Context, network string) (string, error) {
	if s.nicks != nil {
		if nick, ok := s.nicks.get(network); ok {
			return nick, nil
		}
	}
	resp, err := s.Nick(ctx, network)
	if err != nil {
		return "", err
	}
	nick := resp.GetStringOr("nick", "")
	if s.nicks != nil && nick != "" {
		s.nicks.set(network, nick)
	}
	return nick, nil
}

// nickCache remembers the bot nick per network.
type nickCache struct {
	cache *ttlcache.Cache[string, string]
}

func newNickCache(ttl time.Duration) *nickCache {
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()
	return &nickCache{cache: c}
}

func (c *nickCache) get(network string) (string, bool) {
	item := c.cache.Get(network)
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

func (c *nickCache) set(network, nick string) {
	c.cache.Set(network, nick, ttlcache.DefaultTTL)
}

func (c *nickCache) forget(network string) {
	c.cache.Delete(network)
}

func (c *nickCache) close() {
	c.cache.Stop()
}
