// Package pidfile keeps a long-running plugin from being started twice against the same core.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrRunning is returned by Acquire when a live process already holds the PID file.
var ErrRunning = errors.New("another instance is running")

// Pidfile is a PID file owned by the current process once acquired.
type Pidfile struct {
	path string
}

// Acquire writes the current PID to path. A PID file left behind by a process that no longer
// exists is replaced; one held by a live process yields ErrRunning.
func Acquire(path string) (*Pidfile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create pidfile directory: %w", err)
	}

	if pid, err := readPID(path); err == nil && pid != os.Getpid() && alive(pid) {
		return nil, fmt.Errorf("%w (pid %d, %s)", ErrRunning, pid, path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to write pidfile: %w", err)
	}
	return &Pidfile{path: path}, nil
}

// Release removes the PID file if it still names the current process.
func (p *Pidfile) Release() error {
	pid, err := readPID(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pidfile: %w", err)
	}
	return nil
}

// Path returns the PID file path
func (p *Pidfile) Path() string {
	return p.path
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in pidfile: %w", err)
	}
	return pid, nil
}

// alive reports whether a process with pid exists. Signal 0 performs the existence check
// without delivering anything.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, os.ErrPermission)
}
