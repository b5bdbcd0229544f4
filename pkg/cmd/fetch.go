package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <address>",
		Short: "Retrieve a prompt into storage without running it",
		Args:  cobra.ExactArgs(1),
		RunE:  runFetch,
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	r, err := newRunner(cmd, false)
	if err != nil {
		return err
	}

	fetched, err := r.Fetch(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if fetched.Path == "" {
		fmt.Fprintf(out, "Prompt %q is already installed\n", fetched.Name)
		return nil
	}

	fmt.Fprintf(out, "Stored %q at %s\n", fetched.Name, fetched.Path)
	if fetched.Digest != "" {
		fmt.Fprintf(out, "Digest: %s\n", fetched.Digest)
	}
	if fetched.Metadata.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", fetched.Metadata.Description)
	}
	return nil
}
