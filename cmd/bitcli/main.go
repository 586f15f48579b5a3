package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitcli/bitcli/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := app.NewRunner()
	code := runner.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
