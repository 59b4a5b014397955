package dazeus

import (
	"log/slog"
	"time"

	"github.com/codefionn/dazeus/internal/frame"
	"github.com/codefionn/dazeus/internal/logger"
)

type options struct {
	log            *slog.Logger
	requestTimeout time.Duration
	maxFrameSize   int
	nickCacheTTL   time.Duration
}

func defaultOptions() options {
	return options{
		log:          logger.Slog(nil),
		maxFrameSize: frame.DefaultMaxSize,
	}
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger the session writes to. By default sessions log through the
// global logger of internal/logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRequestTimeout bounds how long Send waits for a response. Zero, the default, waits until
// the response arrives, the context is done, or the session closes.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		o.requestTimeout = d
	}
}

// WithMaxFrameSize limits the size of incoming frames. Larger frames close the session.
func WithMaxFrameSize(n int) Option {
	return func(o *options) {
		o.maxFrameSize = n
	}
}

// WithNickCache caches the bot nick per network for ttl, saving a round trip on every reply.
// Zero disables the cache.
func WithNickCache(ttl time.Duration) Option {
	return func(o *options) {
		o.nickCacheTTL = ttl
	}
}
