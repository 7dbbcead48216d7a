// cmd/scrumbot/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"scrumbot/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
