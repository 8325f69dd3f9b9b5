package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/searchstack/cmd/searchstack/handlers"
)

// Preview returns the command that prints the plan without applying it.
func Preview() *cobra.Command {
	var (
		configPath string
		refresh    bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the changes apply would make",
		Long: `Show the changes apply would make without touching any resource.

Values that only exist after creation, such as the load balancer
hostname, are reported as known after apply.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Preview(cmd.Context(), stackOptions(configPath, refresh, verbose))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: searchstack.yaml)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Read recorded resources before planning")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also list unchanged resources")

	return cmd
}
