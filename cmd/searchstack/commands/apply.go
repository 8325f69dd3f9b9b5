package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/searchstack/cmd/searchstack/handlers"
)

// Apply returns the command that creates or updates the stack.
//
// Optional flags:
//
//	--config, -c: Path to the configuration file (default: searchstack.yaml)
//	--refresh: Read recorded resources from the cloud before planning
//	--verbose, -v: Also list unchanged resources
//
// Environment variables:
//
//	SEARCHSTACK_ADMIN_API_KEY: Admin key, literal or awssm://<secret-id>
//	CLOUDFLARE_API_TOKEN: Token with DNS edit permission on the zone
func Apply() *cobra.Command {
	var (
		configPath string
		refresh    bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the stack",
		Long: `Create or update the search stack.

Provisions the network, the encrypted file system, the load balancer,
the Fargate service and the public DNS record. Resources that already
match the configuration are left untouched, and a run interrupted
halfway resumes where it stopped.

Examples:
  # Apply using searchstack.yaml in the current directory
  searchstack apply

  # Apply a specific stack file and detect drift first
  searchstack apply -c production.yaml --refresh`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), stackOptions(configPath, refresh, verbose))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: searchstack.yaml)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Read recorded resources before planning")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also list unchanged resources")

	return cmd
}
