package socketutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/codefionn/dazeus/internal/logger"
)

// WaitForSocket blocks until a unix socket exists at path or ctx is done. Plugins started
// together with the core use it to wait for the core to create its socket.
func WaitForSocket(ctx context.Context, path string) error {
	path = ExpandPath(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create socket watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// The socket may have appeared before the watch was added.
	if isSocket(path) {
		return nil
	}
	logger.Info("Waiting for core socket at %s", path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("socket watcher closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Has(fsnotify.Create) && isSocket(path) {
				logger.Debug("Core socket appeared at %s", path)
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("socket watcher closed")
			}
			logger.Warn("Socket watcher error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isSocket(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.Mode()&os.ModeSocket != 0
}
