package dazeus

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/dazeus/internal/fakecore"
	"github.com/codefionn/dazeus/internal/frame"
)

const testTimeout = 5 * time.Second

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

// scriptedCore is the far end of a session whose every byte the test controls.
type scriptedCore struct {
	t    *testing.T
	conn net.Conn
	dec  *frame.Decoder
}

func newScripted(t *testing.T, opts ...Option) (*Session, *scriptedCore) {
	t.Helper()
	local, remote := net.Pipe()
	s := New(local, opts...)
	t.Cleanup(func() {
		s.Close()
		remote.Close()
	})
	return s, &scriptedCore{t: t, conn: remote, dec: frame.NewDecoder(remote)}
}

// readRequest reads and decodes the next request the session wrote.
func (c *scriptedCore) readRequest() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(testTimeout)))
	payload, err := c.dec.ReadFrame()
	require.NoError(c.t, err)

	var doc map[string]any
	require.NoError(c.t, json.Unmarshal(payload, &doc))
	return doc
}

// readBytes reads exactly n raw bytes.
func (c *scriptedCore) readBytes(n int) string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(testTimeout)))
	buf := make([]byte, n)
	_, err := io.ReadFull(c.conn, buf)
	require.NoError(c.t, err)
	return string(buf)
}

// write frames payload and writes it.
func (c *scriptedCore) write(payload string) {
	c.t.Helper()
	c.writeRaw(string(frame.Encode([]byte(payload))))
}

// writeRaw writes data unframed.
func (c *scriptedCore) writeRaw(data string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetWriteDeadline(time.Now().Add(testTimeout)))
	_, err := c.conn.Write([]byte(data))
	require.NoError(c.t, err)
}

type result struct {
	resp *Response
	err  error
}

func sendAsync(ctx context.Context, s *Session, req Request) <-chan result {
	ch := make(chan result, 1)
	go func() {
		resp, err := s.Send(ctx, req)
		ch <- result{resp, err}
	}()
	return ch
}

func await(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(testTimeout):
		t.Fatal("request did not complete")
		return result{}
	}
}

func waitClosed(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(testTimeout):
		t.Fatal("session did not close")
	}
	assert.Equal(t, StateClosed, s.State())
}

// connectFake returns a session talking to an in-process core that knows network "oftc", where
// the bot is called "zeus".
func connectFake(t *testing.T, opts ...Option) (*Session, *fakecore.Server, *fakecore.Client) {
	t.Helper()
	srv := fakecore.NewServer(nil)
	srv.Core().AddNetwork("oftc", "zeus")

	local, remote := net.Pipe()
	client := srv.Serve(remote)
	s := New(local, opts...)
	t.Cleanup(func() {
		s.Close()
		srv.Stop()
	})
	return s, srv, client
}

// lastRequest returns the parameters of the most recent request with verb.
func lastRequest(t *testing.T, srv *fakecore.Server, verb string) []any {
	t.Helper()
	reqs := srv.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Verb == verb {
			return reqs[i].Params
		}
	}
	t.Fatalf("no %s request received", verb)
	return nil
}

// recordingConn never delivers data and counts the I/O performed on it.
type recordingConn struct {
	reads, writes atomic.Int32
	closed        atomic.Bool
	unblock       chan struct{}
}

func newRecordingConn() *recordingConn {
	return &recordingConn{unblock: make(chan struct{})}
}

func (c *recordingConn) Read([]byte) (int, error) {
	c.reads.Add(1)
	<-c.unblock
	return 0, io.EOF
}

func (c *recordingConn) Write(p []byte) (int, error) {
	c.writes.Add(1)
	return len(p), nil
}

func (c *recordingConn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.unblock)
	}
	return nil
}
