package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/searchstack/cmd/searchstack/handlers"
)

// Init returns the command for interactively creating a stack configuration.
//
// Flags:
//
//	--output, -o: Path to output file (default "searchstack.yaml")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a stack configuration",
		Long: `Interactively create a stack configuration file.

The wizard asks about:

  - Project, stack and AWS region
  - Public hostname and Cloudflare zone
  - Container image, task size and IAM roles

Secrets are never written to the file. Provide them through
SEARCHSTACK_ADMIN_API_KEY and CLOUDFLARE_API_TOKEN instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "searchstack.yaml", "Output file path")

	return cmd
}
