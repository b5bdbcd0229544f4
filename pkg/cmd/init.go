package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentpkg/promptrun/pkg/config"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a global prun configuration file",
		Long:  "Creates ~/.prun/config.toml with the default settings so they can be edited.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
		// init writes the config file; skip resolving it in the root PersistentPreRunE.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	return initCmd
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	home, err := os.UserHomeDir()
	if err != nil {
		return errors.Wrap(err, "determining home directory")
	}
	dir, err := config.GlobalConfigDir()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if err := config.WriteFile(path, config.FileDefaults(home), force); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	return nil
}
