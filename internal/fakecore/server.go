// Package fakecore is an in-process stand-in for the DaZeus core. It accepts plugin connections
// over unix and TCP sockets, net.Pipe style streams and WebSocket bridges, answers requests from
// a small in-memory model of networks, channels, config, properties and permissions, and
// broadcasts events to subscribed plugins.
package fakecore

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/codefionn/dazeus/internal/logger"
	"github.com/codefionn/dazeus/internal/wsconn"
)

// Handler answers one request. Returning false falls back to the default behaviour.
type Handler func(c *Client, req Request) (Reply, bool)

// Server represents a fake core
type Server struct {
	core     *Core
	listener net.Listener
	sockPath string

	// Per-verb overrides
	handlersMu sync.RWMutex
	handlers   map[string]Handler

	// Connection tracking
	connMu  sync.RWMutex
	clients map[string]*Client

	// Received requests in order
	reqMu    sync.Mutex
	requests []Request

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewServer creates a server with the given core state. A nil core uses NewCore().
func NewServer(core *Core) *Server {
	if core == nil {
		core = NewCore()
	}
	return &Server{
		core:     core,
		handlers: make(map[string]Handler),
		clients:  make(map[string]*Client),
		stopChan: make(chan struct{}),
	}
}

// Core returns the state the server answers from.
func (s *Server) Core() *Core {
	return s.core
}

// ListenUnix accepts plugins on a unix socket at path, replacing a stale socket file.
func (s *Server) ListenUnix(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing socket file: %w", err)
	}

	listener, err := net.Listen("unix", absPath)
	if err != nil {
		return fmt.Errorf("failed to listen on Unix socket %s: %w", absPath, err)
	}
	s.sockPath = absPath
	s.startListener(listener)
	return nil
}

// ListenTCP accepts plugins on a random loopback port.
func (s *Server) ListenTCP() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen on TCP: %w", err)
	}
	s.startListener(listener)
	return nil
}

func (s *Server) startListener(listener net.Listener) {
	s.listener = listener
	go s.acceptLoop()
	logger.Info("fakecore: listening on %s", s.Address())
}

// Address returns the address plugins dial, such as "unix:/tmp/x.sock" or "tcp:127.0.0.1:4000".
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	if s.sockPath != "" {
		return "unix:" + s.sockPath
	}
	return "tcp:" + s.listener.Addr().String()
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
				return
			default:
			}
			logger.Error("fakecore: error accepting connection: %v", err)
			return
		}
		s.Serve(conn)
	}
}

// Serve starts speaking the protocol on conn, for example one end of net.Pipe.
func (s *Server) Serve(conn io.ReadWriteCloser) *Client {
	client := newClient(conn, s)
	s.trackClient(client)
	client.start()
	logger.Info("fakecore: client %s connected", client.ID)
	return client
}

// ServeHTTP upgrades the request to a WebSocket and serves the plugin on it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := wsconn.Upgrader().Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("fakecore: websocket upgrade failed: %v", err)
		return
	}
	s.Serve(wsconn.New(ws))
}

// Stop closes the listener and every client.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)

		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Error("fakecore: error closing listener: %v", err)
			}
		}
		for _, c := range s.Clients() {
			c.Stop()
		}
		if s.sockPath != "" {
			if err := os.Remove(s.sockPath); err != nil && !os.IsNotExist(err) {
				logger.Warn("fakecore: failed to remove socket file %s: %v", s.sockPath, err)
			}
		}
		logger.Info("fakecore: stopped")
	})
}

func (s *Server) trackClient(c *Client) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.clients[c.ID] = c
}

func (s *Server) untrackClient(id string) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.clients, id)
}

// Clients returns the connected clients.
func (s *Server) Clients() []*Client {
	s.connMu.RLock()
	defer s.connMu.RUnlock()

	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}

// Handle overrides the answer to verb.
func (s *Server) Handle(verb string, h Handler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[verb] = h
}

func (s *Server) handle(c *Client, req Request) Reply {
	s.handlersMu.RLock()
	h := s.handlers[req.Verb]
	s.handlersMu.RUnlock()

	if h != nil {
		if reply, ok := h(c, req); ok {
			return reply
		}
	}
	return s.core.answer(c, req)
}

func (s *Server) record(c *Client, req Request) {
	logger.Debug("fakecore: client %s sent %s %s", c.ID, req.Class, req.Verb)

	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	s.requests = append(s.requests, req)
}

// Requests returns the requests received so far, in order.
func (s *Server) Requests() []Request {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountVerb returns how many requests named verb were received.
func (s *Server) CountVerb(verb string) int {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	n := 0
	for _, r := range s.requests {
		if r.Verb == verb {
			n++
		}
	}
	return n
}

// Broadcast sends an event to every client subscribed to it and returns how many received it.
func (s *Server) Broadcast(evt Event) int {
	n := 0
	for _, c := range s.Clients() {
		if c.Subscribed(evt) {
			c.SendEvent(evt)
			n++
		}
	}
	return n
}
