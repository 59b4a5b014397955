package dazeus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codefionn/dazeus/internal/frame"
)

// State represents the lifecycle state of a session
type State int32

const (
	// StateCreated indicates no I/O has happened yet
	StateCreated State = iota
	// StateActive indicates the reader, writer and dispatcher are running
	StateActive
	// StateClosed indicates the session is closed; all operations fail with ErrClosed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// outgoingBuffer is the number of encoded requests that may wait for the writer.
const outgoingBuffer = 64

// call is one request waiting for its response.
type call struct {
	req       Request
	wire      []byte
	resp      chan *Response
	abandoned atomic.Bool
}

// Session is a connection to the DaZeus core.
//
// The connection is driven by three goroutines started on first use: a reader that decodes and
// classifies frames, a writer that writes encoded requests, and a dispatcher that matches
// responses to requests in submission order and queues events until NextEvent picks them up.
// Listeners run on the goroutine that calls NextEvent, TryNextEvent or Listen.
type Session struct {
	id       string
	conn     io.ReadWriteCloser
	log      *slog.Logger
	opts     options
	registry *registry
	nicks    *nickCache

	state     atomic.Int32
	startOnce sync.Once
	closeOnce sync.Once
	closing   atomic.Bool
	cancel    context.CancelFunc

	requests chan *call
	events   chan Event
	done     chan struct{}

	errMu sync.Mutex
	err   error
}

// New creates a session over conn. No I/O happens until the session is first used.
func New(conn io.ReadWriteCloser, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New().String()
	s := &Session{
		id:       id,
		conn:     conn,
		log:      o.log.With("session", id),
		opts:     o,
		registry: newRegistry(),
		requests: make(chan *call),
		events:   make(chan Event),
		done:     make(chan struct{}),
	}
	if o.nickCacheTTL > 0 {
		s.nicks = newNickCache(o.nickCacheTTL)
	}
	s.state.Store(int32(StateCreated))
	return s
}

// ID returns the identifier the session logs with.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Err returns the failure that closed the session, or nil while it is open or after Close.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) closedErr() error {
	return closedError(s.Err())
}

func (s *Session) checkOpen() error {
	if s.State() == StateClosed {
		return s.closedErr()
	}
	return nil
}

// start launches the session goroutines once.
func (s *Session) start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel

		inbound := make(chan message)
		outgoing := make(chan []byte, outgoingBuffer)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.readPump(gctx, inbound) })
		g.Go(func() error { return s.writePump(gctx, outgoing) })
		g.Go(func() error { return s.dispatch(gctx, inbound, outgoing) })
		g.Go(func() error {
			<-gctx.Done()
			return s.conn.Close()
		})

		s.state.CompareAndSwap(int32(StateCreated), int32(StateActive))
		s.log.Debug("session started")

		go func() {
			s.finish(g.Wait())
		}()
	})
}

// finish records the terminal error and marks the session closed.
func (s *Session) finish(err error) {
	if s.closing.Load() {
		err = nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
	s.state.Store(int32(StateClosed))
	if s.nicks != nil {
		s.nicks.close()
	}

	if err != nil {
		s.log.Error("session closed", "error", err)
	} else {
		s.log.Debug("session closed")
	}
	close(s.done)
}

// Close shuts the session down and closes the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		started := true
		s.startOnce.Do(func() { started = false })
		if started {
			s.cancel()
			return
		}
		s.conn.Close()
		s.finish(nil)
	})
	<-s.done
	return nil
}

// Done returns a channel that is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// readPump is the only reader of the connection.
func (s *Session) readPump(ctx context.Context, inbound chan<- message) error {
	dec := frame.NewDecoder(s.conn)
	dec.SetMaxSize(s.opts.maxFrameSize)

	for {
		payload, err := dec.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return readError(err)
		}
		s.log.Debug("received frame", "payload", string(payload))

		msg, err := classify(payload)
		if err != nil {
			return err
		}

		select {
		case inbound <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func readError(err error) error {
	switch {
	case errors.Is(err, frame.ErrInvalidUTF8), errors.Is(err, frame.ErrInvalidJSON),
		errors.Is(err, frame.ErrMalformedPrefix), errors.Is(err, frame.ErrFrameTooLarge):
		return wrapError(CodeDecode, "malformed frame", err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return wrapError(CodeTransport, "connection closed by core", err)
	default:
		return wrapError(CodeTransport, "read failed", err)
	}
}

// writePump is the only writer of the connection.
func (s *Session) writePump(ctx context.Context, outgoing <-chan []byte) error {
	for {
		select {
		case wire := <-outgoing:
			if _, err := s.conn.Write(wire); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return wrapError(CodeTransport, "write failed", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// dispatch owns the pending response queue and the undelivered events.
func (s *Session) dispatch(ctx context.Context, inbound <-chan message, outgoing chan<- []byte) error {
	var pending []*call
	var queue []Event

	for {
		// Only offer an event when one is queued; a nil channel never becomes ready.
		var events chan<- Event
		var next Event
		if len(queue) > 0 {
			events = s.events
			next = queue[0]
		}

		select {
		case c := <-s.requests:
			pending = append(pending, c)
			s.log.Debug("sending request", "request", c.req.String(), "pending", len(pending))
			select {
			case outgoing <- c.wire:
			case <-ctx.Done():
				return nil
			}

		case msg := <-inbound:
			if msg.event != nil {
				queue = append(queue, *msg.event)
				continue
			}
			if len(pending) == 0 {
				return NewSocketError(CodeProtocolViolation, "protocol violation", "response without a pending request: "+msg.response.String())
			}
			c := pending[0]
			pending[0] = nil
			pending = pending[1:]
			if c.abandoned.Load() {
				s.log.Warn("discarding response for abandoned request", "request", c.req.String(), "response", msg.response.String())
				continue
			}
			c.resp <- msg.response

		case events <- next:
			queue = queue[1:]

		case <-ctx.Done():
			return nil
		}
	}
}

// Send writes req and waits for its response. Responses are matched to requests in the order
// the requests were sent. If ctx is done first the request keeps its place and its response is
// discarded when it arrives.
func (s *Session) Send(ctx context.Context, req Request) (*Response, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	wire, err := frame.Marshal(req)
	if err != nil {
		return nil, err
	}

	s.start()

	if s.opts.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.requestTimeout)
		defer cancel()
	}

	c := &call{req: req, wire: wire, resp: make(chan *Response, 1)}
	select {
	case s.requests <- c:
	case <-s.done:
		return nil, s.closedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-c.resp:
		return resp, nil
	case <-s.done:
		select {
		case resp := <-c.resp:
			return resp, nil
		default:
		}
		return nil, s.closedErr()
	case <-ctx.Done():
		c.abandoned.Store(true)
		select {
		case resp := <-c.resp:
			return resp, nil
		default:
		}
		return nil, ctx.Err()
	}
}

// NextEvent waits for the next event, calls the listeners registered for its type, and
// returns it.
func (s *Session) NextEvent(ctx context.Context) (Event, error) {
	if err := s.checkOpen(); err != nil {
		return Event{}, err
	}
	s.start()

	select {
	case evt := <-s.events:
		s.handle(evt)
		return evt, nil
	case <-s.done:
		return Event{}, s.closedErr()
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// TryNextEvent is the non-blocking variant of NextEvent. It reports false when no event is
// waiting.
func (s *Session) TryNextEvent() (Event, bool, error) {
	if err := s.checkOpen(); err != nil {
		return Event{}, false, err
	}
	s.start()

	select {
	case evt := <-s.events:
		s.handle(evt)
		return evt, true, nil
	case <-s.done:
		return Event{}, false, s.closedErr()
	default:
		return Event{}, false, nil
	}
}

func (s *Session) handle(evt Event) {
	// The bot may have been renamed.
	if evt.Type == EventNick && s.nicks != nil {
		s.nicks.forget(evt.Network())
	}
	s.registry.dispatch(evt, s)
}

// Listen handles events until ctx is done or the session closes.
func (s *Session) Listen(ctx context.Context) error {
	for {
		if _, err := s.NextEvent(ctx); err != nil {
			return err
		}
	}
}
