// Package main is the entry point for the searchstack CLI.
//
// searchstack provisions a single-node search service on AWS Fargate with
// persistent EFS storage, an application load balancer and a Cloudflare DNS
// record, and reconciles it idempotently on every apply.
//
// Commands: init, preview, apply, destroy, outputs, version.
//
// For detailed usage information, run:
//
//	searchstack --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/searchstack/cmd/searchstack/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
