package cmd

import (
	"github.com/agentpkg/promptrun/pkg/runner"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <address>",
		Short: "Resolve a prompt and send it to the chat surface",
		Long: `Resolves the prompt at address and prints the chat command that runs it.

Addresses:
  gh:owner/repo/path/to/prompt          GitHub repository file
  ado:org/project/repo/path/to/prompt   Azure DevOps repository file
  https://host/path/prompt.prompt.md    direct URL
  /abs/path/prompt.prompt.md            local file
  mcp.<server>.<prompt>                 prompt rendered by an MCP server
  name                                  prompt already installed

Servers listed with --servers are installed and registered first.`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}

	runCmd.Flags().String("args", "", "arguments: text after the slash command, or a JSON object for mcp.* prompts")
	runCmd.Flags().String("servers", "", "MCP server descriptor as a JSON object or array")
	runCmd.Flags().String("workspace", "", `workspace directive: "select" or "select:<urlencoded message>"`)
	runCmd.Flags().BoolP("yes", "y", false, "accept every install and registration without asking")

	return runCmd
}

func runRun(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	arguments, _ := flags.GetString("args")
	servers, _ := flags.GetString("servers")
	directive, _ := flags.GetString("workspace")
	yes, _ := flags.GetBool("yes")

	r, err := newRunner(cmd, yes)
	if err != nil {
		return err
	}

	return r.Run(cmd.Context(), runner.Request{
		Address:   args[0],
		Arguments: arguments,
		Servers:   servers,
		Workspace: directive,
	})
}
