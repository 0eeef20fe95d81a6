// Package main starts the Keepsake outbox worker.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	workercmd "github.com/keepsakehq/keepsake/internal/cmd/worker"
)

func main() {
	cfg, err := workercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[WORKER] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := workercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to run worker: %v", err)
	}
}
