// Command zeusctl talks to a running DaZeus core: it issues one-shot requests, prints events, and
// can run a small echo plugin.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codefionn/dazeus/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if closeErr := logger.Global().Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
