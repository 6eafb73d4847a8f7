package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/vitrine/internal/probe"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := probe.NewCommand().ExecuteContext(ctx); err != nil {
		_, _ = os.Stderr.WriteString("feed-probe: " + err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}
