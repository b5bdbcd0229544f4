package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentpkg/promptrun/pkg/config"
	"github.com/agentpkg/promptrun/pkg/interact"
	"github.com/agentpkg/promptrun/pkg/logging"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagVerbose  bool
	flagJSONLogs bool
	flagTimeout  time.Duration

	// Cfg holds the resolved configuration, available to all subcommands
	// after PersistentPreRunE completes.
	Cfg *config.Config
	// Log is built from the global logging flags in PersistentPreRunE.
	Log = zap.NewNop().Sugar()
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "prun",
		Short: "Prompt runner",
		Long:  "prun resolves a prompt address, provisions the MCP servers it needs and hands the prompt to the chat surface.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			Log = logging.New(cmd.ErrOrStderr(), flagVerbose, flagJSONLogs)

			overrides := map[string]any{}
			if cmd.Flags().Changed("timeout") {
				overrides["timeout"] = flagTimeout
			}
			cfg, err := config.Load(overrides)
			if err != nil {
				return err
			}
			Cfg = cfg
			Log.Debugw("Loaded configuration", "storage_root", cfg.StorageRoot, "registry_path", cfg.RegistryPath, "timeout", cfg.Timeout)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug detail to stderr")
	root.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "log as JSON")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "timeout for each network request and external command (default from config, 60s)")

	root.AddCommand(newInitCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newProvisionCmd())

	return root
}

// Execute runs the command line and exits with status 1 on failure. A
// cancellation by the user is not a failure and is not reported.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	defer Log.Sync()

	switch {
	case err == nil:
		return 0
	case errors.Is(err, interact.ErrUserCancelled):
		Log.Debugw("Request cancelled")
		return 0
	default:
		interact.NewPtermNotifier(stderr).Error(err)
		return 1
	}
}
