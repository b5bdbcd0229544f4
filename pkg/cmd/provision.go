package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProvisionCmd() *cobra.Command {
	provisionCmd := &cobra.Command{
		Use:   "provision",
		Short: "Install and register MCP servers",
		Long:  "Installs the packages of the described MCP servers and records them in the editor's server registry.",
		Args:  cobra.NoArgs,
		RunE:  runProvision,
	}

	provisionCmd.Flags().String("servers", "", "MCP server descriptor as a JSON object or array")
	provisionCmd.Flags().BoolP("yes", "y", false, "accept every install and registration without asking")
	provisionCmd.MarkFlagRequired("servers")

	return provisionCmd
}

func runProvision(cmd *cobra.Command, args []string) error {
	servers, _ := cmd.Flags().GetString("servers")
	yes, _ := cmd.Flags().GetBool("yes")

	r, err := newRunner(cmd, yes)
	if err != nil {
		return err
	}
	if err := r.Provision(cmd.Context(), servers); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Servers are ready in %s\n", Cfg.RegistryPath)
	return nil
}
