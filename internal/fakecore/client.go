package fakecore

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/codefionn/dazeus/internal/frame"
	"github.com/codefionn/dazeus/internal/logger"
)

// Client represents a connected plugin
type Client struct {
	// Connection identifier
	ID string

	conn   io.ReadWriteCloser
	server *Server

	// Outbound frames
	send chan []byte

	// Subscribed event names and command names
	mu            sync.Mutex
	subscriptions map[string]bool
	commands      map[string]bool
	closed        bool

	stopOnce sync.Once
	stopChan chan struct{}
}

func newClient(conn io.ReadWriteCloser, server *Server) *Client {
	return &Client{
		ID:            uuid.New().String(),
		conn:          conn,
		server:        server,
		send:          make(chan []byte, 256),
		subscriptions: make(map[string]bool),
		commands:      make(map[string]bool),
		stopChan:      make(chan struct{}),
	}
}

// start begins reading from and writing to the plugin connection
func (c *Client) start() {
	go c.readPump()
	go c.writePump()
	logger.Debug("fakecore: client %s started", c.ID)
}

// Stop closes the connection
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)

		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.server.untrackClient(c.ID)
		c.conn.Close()
		logger.Debug("fakecore: client %s stopped", c.ID)
	})
}

// Done returns a channel that is closed when the client stops.
func (c *Client) Done() <-chan struct{} {
	return c.stopChan
}

// readPump reads framed requests from the plugin
func (c *Client) readPump() {
	defer c.Stop()

	dec := frame.NewDecoder(c.conn)
	for {
		payload, err := dec.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				logger.Debug("fakecore: client %s disconnected", c.ID)
			} else {
				logger.Error("fakecore: error reading from client %s: %v", c.ID, err)
			}
			return
		}

		req, err := ParseRequest(payload)
		if err != nil {
			logger.Error("fakecore: invalid request from client %s: %v", c.ID, err)
			c.SendResponse(Failure(err.Error()))
			continue
		}

		c.server.record(c, req)
		reply := c.server.handle(c, req)
		c.SendResponse(reply.Response)
		for _, evt := range reply.Events {
			c.SendEvent(evt)
		}
	}
}

// writePump writes queued frames to the plugin
func (c *Client) writePump() {
	defer c.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case data := <-c.send:
			if _, err := c.conn.Write(data); err != nil {
				logger.Error("fakecore: failed to write to client %s: %v", c.ID, err)
				return
			}
		}
	}
}

// SendResponse sends a response document. A nil document is sent as {"success":true}.
func (c *Client) SendResponse(doc any) {
	if doc == nil {
		doc = Success()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		logger.Error("fakecore: failed to marshal response: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendEvent sends an event regardless of the client's subscriptions.
func (c *Client) SendEvent(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		logger.Error("fakecore: failed to marshal event: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw frames payload as is and queues it.
func (c *Client) SendRaw(payload []byte) {
	c.SendFrame(frame.Encode(payload))
}

// SendFrame queues bytes that are written unchanged, for sending malformed frames.
func (c *Client) SendFrame(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		logger.Warn("fakecore: attempted to send to closed client %s", c.ID)
		return
	}

	select {
	case c.send <- data:
	default:
		logger.Warn("fakecore: send buffer full for client %s, frame dropped", c.ID)
	}
}

// Subscribed reports whether the client would receive evt from Broadcast.
func (c *Client) Subscribed(evt Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if evt.Name == "COMMAND" {
		if len(evt.Params) < 4 {
			return false
		}
		cmd, _ := evt.Params[3].(string)
		return c.commands[cmd]
	}
	return c.subscriptions[evt.Name]
}

func (c *Client) subscribe(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := !c.subscriptions[name]
	c.subscriptions[name] = true
	return added
}

func (c *Client) unsubscribe(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.subscriptions[name]
	delete(c.subscriptions, name)
	return removed
}

func (c *Client) registerCommand(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[name] = true
}
