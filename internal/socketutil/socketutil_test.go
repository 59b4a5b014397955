package socketutil

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		input   string
		network string
		target  string
	}{
		{"unix:/tmp/dazeus.sock", NetworkUnix, "/tmp/dazeus.sock"},
		{"tcp:localhost:1234", NetworkTCP, "localhost:1234"},
		{"tcp:[::1]:1234", NetworkTCP, "[::1]:1234"},
		{" ws://localhost:8080/core ", NetworkWebSocket, "ws://localhost:8080/core"},
		{"wss://bridge.example.org/", NetworkWebSocket, "wss://bridge.example.org/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			addr, err := ParseAddress(tt.input)
			if err != nil {
				t.Fatalf("ParseAddress(%q) failed: %v", tt.input, err)
			}
			if addr.Network != tt.network || addr.Target != tt.target {
				t.Errorf("ParseAddress(%q) = %+v, want %s %s", tt.input, addr, tt.network, tt.target)
			}
		})
	}
}

func TestParseAddressErrors(t *testing.T) {
	for _, input := range []string{"", "/tmp/dazeus.sock", "udp:localhost:1", "unix:", "http://example.org"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseAddress(input)
			if !errors.Is(err, ErrUnknownAddress) {
				t.Errorf("ParseAddress(%q) error = %v, want ErrUnknownAddress", input, err)
			}
		})
	}
}

func TestParseAddressExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	addr, err := ParseAddress("unix:~/dazeus.sock")
	if err != nil {
		t.Fatal(err)
	}
	if addr.Target != filepath.Join(home, "dazeus.sock") {
		t.Errorf("Expected expanded path, got %q", addr.Target)
	}
}

func TestAddressString(t *testing.T) {
	for _, input := range []string{"unix:/tmp/x.sock", "tcp:localhost:1", "ws://localhost/x"} {
		addr, err := ParseAddress(input)
		if err != nil {
			t.Fatal(err)
		}
		if addr.String() != input {
			t.Errorf("String() = %q, want %q", addr.String(), input)
		}
	}
}

// shortSocketPath returns a socket path short enough for sun_path limits.
func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "dz")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "core.sock")
}

func TestDetectCore(t *testing.T) {
	path := shortSocketPath(t)
	addr := Address{Network: NetworkUnix, Target: path}

	if DetectCore(addr) {
		t.Fatal("Expected no core before the socket exists")
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	if !DetectCore(addr) {
		t.Error("Expected core to be detected")
	}
}

func TestDetectCoreTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := Address{Network: NetworkTCP, Target: ln.Addr().String()}
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	if !DetectCore(addr) {
		t.Error("Expected TCP core to be detected")
	}
	ln.Close()
}

func TestDetectCoreRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-socket")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if DetectCore(Address{Network: NetworkUnix, Target: path}) {
		t.Error("Regular file must not be detected as a core")
	}
}

func TestWaitForSocket(t *testing.T) {
	path := shortSocketPath(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- WaitForSocket(ctx, path)
	}()

	time.Sleep(50 * time.Millisecond)
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()

	if err := <-result; err != nil {
		t.Fatalf("WaitForSocket failed: %v", err)
	}
}

func TestWaitForSocketAlreadyPresent(t *testing.T) {
	path := shortSocketPath(t)
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()

	if err := WaitForSocket(context.Background(), path); err != nil {
		t.Fatalf("WaitForSocket failed: %v", err)
	}
}

func TestWaitForSocketCancelled(t *testing.T) {
	path := shortSocketPath(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := WaitForSocket(ctx, path); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
