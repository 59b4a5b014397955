// Package socketutil provides shared utilities for locating and probing the DaZeus core socket.
package socketutil

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codefionn/dazeus/internal/logger"
)

// SocketDetectionTimeout is how long to wait for socket detection
const SocketDetectionTimeout = 1 * time.Second

// Address flavors understood by ParseAddress.
const (
	NetworkUnix      = "unix"
	NetworkTCP       = "tcp"
	NetworkWebSocket = "ws"
)

// ErrUnknownAddress is returned for addresses without a known flavor prefix.
var ErrUnknownAddress = errors.New("unknown address type")

// Address is a parsed core address.
type Address struct {
	// Network is NetworkUnix, NetworkTCP or NetworkWebSocket
	Network string
	// Target is the socket path, the host:port, or the full ws:// or wss:// URL
	Target string
}

func (a Address) String() string {
	if a.Network == NetworkWebSocket {
		return a.Target
	}
	return a.Network + ":" + a.Target
}

// ParseAddress parses "unix:PATH", "tcp:HOST:PORT", "ws://..." and "wss://..." addresses.
// A leading ~ in a unix path is expanded to the home directory.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "ws://"), strings.HasPrefix(s, "wss://"):
		return Address{Network: NetworkWebSocket, Target: s}, nil
	}

	flavor, target, ok := strings.Cut(s, ":")
	if !ok || target == "" {
		return Address{}, fmt.Errorf("%w: %q", ErrUnknownAddress, s)
	}
	switch flavor {
	case NetworkUnix:
		return Address{Network: NetworkUnix, Target: ExpandPath(target)}, nil
	case NetworkTCP:
		return Address{Network: NetworkTCP, Target: target}, nil
	default:
		return Address{}, fmt.Errorf("%w: %q", ErrUnknownAddress, s)
	}
}

// ExpandPath expands ~ to the home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}

// DetectCore checks whether a core is listening at addr.
// For unix addresses it performs the following checks:
//  1. Checks if socket file exists
//  2. Verifies the file is actually a socket
//  3. Attempts an actual connection to verify the core is responding
//
// TCP addresses are probed with a connection attempt. WebSocket bridges are not probed and
// always report false. On platforms without unix sockets unix addresses report false.
func DetectCore(addr Address) bool {
	switch addr.Network {
	case NetworkUnix:
		return detectUnixSocket(addr.Target)
	case NetworkTCP:
		return probe(NetworkTCP, addr.Target)
	default:
		return false
	}
}

// GetSocketDetectionInfo returns a human-readable description of the address and whether a
// core was detected there.
func GetSocketDetectionInfo(address string) string {
	info := fmt.Sprintf("Core address: %s", address)

	addr, err := ParseAddress(address)
	if err != nil {
		return info + " (invalid)"
	}

	if addr.Network == NetworkUnix {
		if _, err := os.Stat(addr.Target); err != nil {
			if os.IsNotExist(err) {
				return info + " (not found)"
			}
			return info + fmt.Sprintf(" (error: %v)", err)
		}
	}

	switch {
	case addr.Network == NetworkWebSocket:
		info += " (websocket bridge, not probed)"
	case DetectCore(addr):
		info += " (active core detected)"
	case addr.Network == NetworkUnix:
		info += " (exists but core not responding)"
	default:
		info += " (core not responding)"
	}
	return info
}

// probe attempts a connection and closes it again.
func probe(network, target string) bool {
	conn, err := net.DialTimeout(network, target, SocketDetectionTimeout)
	if err != nil {
		logger.Debug("Core at %s:%s not responding: %v", network, target, err)
		return false
	}
	conn.Close()
	return true
}
