package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/searchstack/cmd/searchstack/handlers"
)

// Destroy returns the destroy command.
//
// Resources are deleted dependents first: the DNS record and service before
// the load balancer, the access point and mount targets before the file
// system, and the network last.
func Destroy() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy the stack and all associated resources",
		Long: `Destroy removes every resource recorded for the stack.

This includes:
  - The DNS record
  - The Fargate service, task definition and cluster
  - The load balancer, target group and listener
  - The file system with its mount targets and access point
  - The VPC, subnets, routes and security group

Example:
  searchstack destroy -c searchstack.yaml

WARNING: This operation is irreversible. All indexed data will be lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), stackOptions(configPath, false, false))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to stack configuration file (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
