//go:build !linux && !darwin

package socketutil

import (
	"github.com/codefionn/dazeus/internal/logger"
)

// detectUnixSocket is the platform-specific implementation for non-Unix systems.
// Unix sockets are not supported, so this always returns false.
func detectUnixSocket(socketPath string) bool {
	logger.Debug("Socket detection skipped: Unix sockets not supported on this platform")
	return false
}
