package fakecore

import (
	"encoding/json"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/dazeus/internal/frame"
	"github.com/codefionn/dazeus/internal/wsconn"
)

// plugin is the test side of a connection: it writes raw requests and reads decoded frames.
type plugin struct {
	t    *testing.T
	conn net.Conn
	dec  *frame.Decoder
}

func pipe(t *testing.T, srv *Server) *plugin {
	t.Helper()
	local, remote := net.Pipe()
	srv.Serve(remote)
	t.Cleanup(func() { local.Close() })
	return &plugin{t: t, conn: local, dec: frame.NewDecoder(local)}
}

func (p *plugin) send(payload string) {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := p.conn.Write(frame.Encode([]byte(payload)))
	require.NoError(p.t, err)
}

func (p *plugin) read() map[string]any {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	payload, err := p.dec.ReadFrame()
	require.NoError(p.t, err)

	var doc map[string]any
	require.NoError(p.t, json.Unmarshal(payload, &doc))
	return doc
}

func (p *plugin) call(payload string) map[string]any {
	p.t.Helper()
	p.send(payload)
	return p.read()
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(nil)
	srv.Core().AddNetwork("oftc", "zeus")
	t.Cleanup(srv.Stop)
	return srv
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"do":"join","params":["net","#chan"]}`))
	require.NoError(t, err)
	assert.Equal(t, "do", req.Class)
	assert.Equal(t, "join", req.Verb)
	assert.Equal(t, "#chan", req.Param(1))
	assert.Equal(t, "", req.Param(5))
	assert.Nil(t, req.Scope)

	req, err = ParseRequest([]byte(`{"get":"networks"}`))
	require.NoError(t, err)
	assert.Equal(t, "get", req.Class)
	assert.Empty(t, req.Params)

	_, err = ParseRequest([]byte(`{"params":[]}`))
	assert.Error(t, err)
	_, err = ParseRequest([]byte(`{"do":"a","get":"b"}`))
	assert.Error(t, err)
}

func TestNetworksAndChannels(t *testing.T) {
	srv := newTestServer(t)
	srv.Core().AddNetwork("freenode", "zeus")
	p := pipe(t, srv)

	resp := p.call(`{"get":"networks"}`)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, []any{"freenode", "oftc"}, resp["networks"])

	assert.Equal(t, true, p.call(`{"do":"join","params":["oftc","#dazeus"]}`)["success"])
	assert.Equal(t, true, p.call(`{"do":"join","params":["oftc","#DaZeus"]}`)["success"])

	resp = p.call(`{"get":"channels","params":["oftc"]}`)
	assert.Equal(t, []any{"#dazeus"}, resp["channels"])

	resp = p.call(`{"do":"part","params":["oftc","#other"]}`)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "#other")

	resp = p.call(`{"get":"channels","params":["efnet"]}`)
	assert.Equal(t, false, resp["success"])

	assert.Equal(t, 2, srv.CountVerb("join"))
	assert.Len(t, srv.Requests(), 6)
}

func TestNick(t *testing.T) {
	srv := newTestServer(t)
	p := pipe(t, srv)

	assert.Equal(t, "zeus", p.call(`{"get":"nick","params":["oftc"]}`)["nick"])
	srv.Core().SetNick("oftc", "zeus2")
	assert.Equal(t, "zeus2", p.call(`{"get":"nick","params":["oftc"]}`)["nick"])
}

func TestHandshake(t *testing.T) {
	srv := newTestServer(t)
	p := pipe(t, srv)

	resp := p.call(`{"do":"handshake","params":["echo","1.0","1","echo"]}`)
	assert.Equal(t, true, resp["success"])
	params, ok := srv.Core().Handshake("echo")
	require.True(t, ok)
	assert.Equal(t, []any{"echo", "1.0", "1", "echo"}, params)

	resp = p.call(`{"do":"handshake","params":["echo","1.0","2","echo"]}`)
	assert.Equal(t, false, resp["success"])
	resp = p.call(`{"do":"handshake","params":["echo"]}`)
	assert.Equal(t, false, resp["success"])
}

func TestConfig(t *testing.T) {
	srv := newTestServer(t)
	srv.Core().SetConfig("core", "highlight", "}")
	p := pipe(t, srv)

	assert.Equal(t, "}", p.call(`{"get":"config","params":["core","highlight"]}`)["value"])

	resp := p.call(`{"get":"config","params":["plugin","missing"]}`)
	assert.Equal(t, true, resp["success"])
	assert.Nil(t, resp["value"])

	assert.Equal(t, false, p.call(`{"get":"config","params":["other","x"]}`)["success"])
}

func TestProperties(t *testing.T) {
	srv := newTestServer(t)
	p := pipe(t, srv)

	p.call(`{"do":"property","params":["set","greeting.en","hello"],"scope":["oftc",null,null]}`)
	p.call(`{"do":"property","params":["set","greeting.nl","hallo"],"scope":["oftc",null,null]}`)
	p.call(`{"do":"property","params":["set","greeting.en","global"]}`)

	resp := p.call(`{"do":"property","params":["get","greeting.en"],"scope":["oftc",null,null]}`)
	assert.Equal(t, "hello", resp["value"])
	resp = p.call(`{"do":"property","params":["get","greeting.en"]}`)
	assert.Equal(t, "global", resp["value"])

	resp = p.call(`{"do":"property","params":["keys","greeting."],"scope":["oftc",null,null]}`)
	assert.Equal(t, []any{"greeting.en", "greeting.nl"}, resp["keys"])

	p.call(`{"do":"property","params":["unset","greeting.en"],"scope":["oftc",null,null]}`)
	resp = p.call(`{"do":"property","params":["get","greeting.en"],"scope":["oftc",null,null]}`)
	assert.Equal(t, true, resp["success"])
	assert.Nil(t, resp["value"])

	assert.Equal(t, false, p.call(`{"do":"property","params":["set","x"]}`)["success"])
}

func TestPermissions(t *testing.T) {
	srv := newTestServer(t)
	p := pipe(t, srv)

	resp := p.call(`{"do":"permission","params":["get","op",true],"scope":["oftc","alice",null]}`)
	assert.Equal(t, true, resp["has_permission"])

	p.call(`{"do":"permission","params":["set","op",false],"scope":["oftc","alice",null]}`)
	resp = p.call(`{"do":"permission","params":["get","op",true],"scope":["oftc","alice",null]}`)
	assert.Equal(t, false, resp["has_permission"])

	p.call(`{"do":"permission","params":["unset","op"],"scope":["oftc","alice",null]}`)
	resp = p.call(`{"do":"permission","params":["get","op",false],"scope":["oftc","alice",null]}`)
	assert.Equal(t, false, resp["has_permission"])
}

func TestSubscriptionsAndBroadcast(t *testing.T) {
	srv := newTestServer(t)
	p := pipe(t, srv)

	resp := p.call(`{"do":"subscribe","params":["PRIVMSG","join"]}`)
	assert.Equal(t, float64(2), resp["added"])
	resp = p.call(`{"do":"subscribe","params":["PRIVMSG"]}`)
	assert.Equal(t, float64(0), resp["added"])
	p.call(`{"do":"command","params":["greet"]}`)

	assert.Equal(t, 0, srv.Broadcast(NewEvent("PART", "oftc", "bob", "#chan")))
	assert.Equal(t, 0, srv.Broadcast(NewEvent("COMMAND", "oftc", "bob", "#chan", "other")))
	assert.Equal(t, 1, srv.Broadcast(NewEvent("COMMAND", "oftc", "bob", "#chan", "greet", "hi")))

	evt := p.read()
	assert.Equal(t, "COMMAND", evt["event"])
	assert.Equal(t, []any{"oftc", "bob", "#chan", "greet", "hi"}, evt["params"])

	resp = p.call(`{"do":"unsubscribe","params":["JOIN"]}`)
	assert.Equal(t, float64(1), resp["removed"])
	assert.Equal(t, 0, srv.Broadcast(NewEvent("JOIN", "oftc", "bob", "#chan")))
}

func TestWhoisAnsweredWithEvent(t *testing.T) {
	srv := newTestServer(t)
	p := pipe(t, srv)

	// Without a subscription only the response arrives.
	assert.Equal(t, true, p.call(`{"do":"whois","params":["oftc","alice"]}`)["success"])

	p.call(`{"do":"subscribe","params":["WHOIS"]}`)
	assert.Equal(t, true, p.call(`{"do":"whois","params":["oftc","alice"]}`)["success"])
	evt := p.read()
	assert.Equal(t, "WHOIS", evt["event"])
	params := evt["params"].([]any)
	assert.Equal(t, "oftc", params[0])
	assert.Equal(t, "alice", params[2])
}

func TestNamesAnsweredWithEvent(t *testing.T) {
	srv := newTestServer(t)
	srv.Core().SetNames("oftc", "#chan", "alice", "bob")
	p := pipe(t, srv)

	p.call(`{"do":"subscribe","params":["NAMES"]}`)
	p.call(`{"do":"names","params":["oftc","#chan"]}`)
	evt := p.read()
	assert.Equal(t, []any{"oftc", ServerName, "#chan", "zeus", "alice", "bob"}, evt["params"])
}

func TestHandlerOverride(t *testing.T) {
	srv := newTestServer(t)
	srv.Handle("join", func(c *Client, req Request) (Reply, bool) {
		if req.Param(1) != "#private" {
			return Reply{}, false
		}
		return Reply{Response: Failure("banned")}, true
	})
	p := pipe(t, srv)

	assert.Equal(t, "banned", p.call(`{"do":"join","params":["oftc","#private"]}`)["error"])
	assert.Equal(t, true, p.call(`{"do":"join","params":["oftc","#public"]}`)["success"])
}

func TestInvalidRequest(t *testing.T) {
	srv := newTestServer(t)
	p := pipe(t, srv)

	resp := p.call(`{"foo":1}`)
	assert.Equal(t, false, resp["success"])
	assert.Empty(t, srv.Requests())
}

func TestUnixListener(t *testing.T) {
	// Unix socket paths are limited in length, so stay out of the long test temp dir.
	dir, err := os.MkdirTemp("", "fakecore")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	srv := newTestServer(t)
	require.NoError(t, srv.ListenUnix(filepath.Join(dir, "core.sock")))
	assert.True(t, strings.HasPrefix(srv.Address(), "unix:"))

	conn, err := net.Dial("unix", strings.TrimPrefix(srv.Address(), "unix:"))
	require.NoError(t, err)
	p := &plugin{t: t, conn: conn, dec: frame.NewDecoder(conn)}
	defer conn.Close()

	assert.Equal(t, true, p.call(`{"get":"networks"}`)["success"])
}

func TestTCPListener(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.ListenTCP())
	require.True(t, strings.HasPrefix(srv.Address(), "tcp:127.0.0.1:"))

	conn, err := net.Dial("tcp", strings.TrimPrefix(srv.Address(), "tcp:"))
	require.NoError(t, err)
	defer conn.Close()
	p := &plugin{t: t, conn: conn, dec: frame.NewDecoder(conn)}

	assert.Equal(t, "zeus", p.call(`{"get":"nick","params":["oftc"]}`)["nick"])
}

func TestWebSocketBridge(t *testing.T) {
	srv := newTestServer(t)
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	conn, err := wsconn.Dial(t.Context(), "ws"+strings.TrimPrefix(httpSrv.URL, "http"))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(frame.Encode([]byte(`{"get":"networks"}`)))
	require.NoError(t, err)

	payload, err := frame.NewDecoder(conn).ReadFrame()
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"networks":["oftc"]}`, string(payload))
}

func TestStopClosesClients(t *testing.T) {
	srv := NewServer(nil)
	_, remote := net.Pipe()
	client := srv.Serve(remote)
	require.Len(t, srv.Clients(), 1)

	srv.Stop()
	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client was not stopped")
	}
	assert.Empty(t, srv.Clients())
}
