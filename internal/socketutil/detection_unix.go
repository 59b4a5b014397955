//go:build linux || darwin

package socketutil

import (
	"os"

	"github.com/codefionn/dazeus/internal/logger"
)

// detectUnixSocket performs socket detection on Unix-like systems.
func detectUnixSocket(socketPath string) bool {
	if socketPath == "" {
		logger.Debug("No socket path configured, skipping detection")
		return false
	}

	// Check if socket file exists
	stat, err := os.Stat(socketPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Socket file does not exist: %s", socketPath)
		} else {
			logger.Debug("Error checking socket file: %v", err)
		}
		return false
	}

	// Check if it's a socket
	if stat.Mode()&os.ModeSocket == 0 {
		logger.Debug("File exists but is not a socket: %s", socketPath)
		return false
	}

	// Try to connect to verify the core is actually running
	if !probe(NetworkUnix, socketPath) {
		return false
	}

	logger.Info("Detected active core at: %s", socketPath)
	return true
}
