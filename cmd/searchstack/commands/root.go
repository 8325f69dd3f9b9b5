// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/imamik/searchstack/cmd/searchstack/handlers"
	"github.com/imamik/searchstack/internal/ui/render"
)

// global holds the persistent flags shared by every stack command.
var global handlers.Options

// plain disables the live dashboard.
var plain bool

// isTerminal is replaced in tests.
var isTerminal = func() bool { return render.IsTerminal(os.Stdout) }

// Root returns the root command for the searchstack CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "searchstack",
		Short:         "Provision a search service on AWS with Cloudflare DNS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&global.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&global.JSONLogs, "json-logs", false, "Write logs as JSON lines")
	cmd.PersistentFlags().StringVar(&global.MetricsFile, "metrics-file", "", "Write run metrics to this Prometheus textfile")
	cmd.PersistentFlags().BoolVar(&plain, "plain", false, "Print log lines instead of the live dashboard")

	cmd.AddCommand(Init())
	cmd.AddCommand(Preview())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Outputs())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// stackOptions merges the persistent flags with per-command values.
func stackOptions(configPath string, refresh, verbose bool) handlers.Options {
	opts := global
	opts.ConfigPath = configPath
	opts.Refresh = refresh
	opts.Verbose = verbose
	opts.Interactive = !plain && !opts.JSONLogs && isTerminal()
	return opts
}
