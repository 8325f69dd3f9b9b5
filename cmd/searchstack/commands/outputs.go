package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/searchstack/cmd/searchstack/handlers"
)

// Outputs returns the command that prints the stack endpoints.
func Outputs() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Print the endpoints of the deployed stack",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Outputs(cmd.Context(), stackOptions(configPath, false, false), asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: searchstack.yaml)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print outputs as JSON")

	return cmd
}
