package dazeus

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/codefionn/dazeus/internal/socketutil"
	"github.com/codefionn/dazeus/internal/wsconn"
)

// Dial opens a connection to the core at address. Supported forms are "unix:PATH",
// "tcp:HOST:PORT" and "ws://" or "wss://" URLs of a WebSocket bridge. Other forms fail with an
// error matching ErrUnknownAddress.
func Dial(ctx context.Context, address string) (io.ReadWriteCloser, error) {
	addr, err := socketutil.ParseAddress(address)
	if err != nil {
		if errors.Is(err, socketutil.ErrUnknownAddress) {
			return nil, NewSocketError(CodeUnknownAddress, "unknown address type", address)
		}
		return nil, err
	}

	switch addr.Network {
	case socketutil.NetworkWebSocket:
		conn, err := wsconn.Dial(ctx, addr.Target)
		if err != nil {
			return nil, wrapError(CodeTransport, "failed to connect to "+addr.String(), err)
		}
		return conn, nil
	default:
		var d net.Dialer
		conn, err := d.DialContext(ctx, addr.Network, addr.Target)
		if err != nil {
			return nil, wrapError(CodeTransport, "failed to connect to "+addr.String(), err)
		}
		return conn, nil
	}
}

// Connect dials address and returns a session over the connection.
func Connect(ctx context.Context, address string, opts ...Option) (*Session, error) {
	conn, err := Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	return New(conn, opts...), nil
}
