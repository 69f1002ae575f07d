// Package main is the operator CLI of the token wizard:
// validate and quote draft files, deploy them, or run the interactive wizard.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	logger := log.New(os.Stderr, "[tokenctl] ", log.LstdFlags)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(logger).ExecuteContext(ctx); err != nil {
		stop()
		logger.Fatal(err)
	}
}
