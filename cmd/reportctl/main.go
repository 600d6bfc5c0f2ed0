// Command reportctl scores match report files and load-tests the service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/matchreport/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
