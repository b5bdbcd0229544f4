package cmd

import (
	"os"

	"github.com/agentpkg/promptrun/pkg/config"
	"github.com/agentpkg/promptrun/pkg/credential"
	"github.com/agentpkg/promptrun/pkg/dispatch"
	"github.com/agentpkg/promptrun/pkg/fetch"
	"github.com/agentpkg/promptrun/pkg/installer"
	"github.com/agentpkg/promptrun/pkg/interact"
	"github.com/agentpkg/promptrun/pkg/runner"
	"github.com/agentpkg/promptrun/pkg/session"
	"github.com/agentpkg/promptrun/pkg/source"
	"github.com/agentpkg/promptrun/pkg/store"
	"github.com/spf13/cobra"
)

// newRunner wires a Runner from the resolved configuration. yes answers every
// confirmation without asking.
func newRunner(cmd *cobra.Command, yes bool) (*runner.Runner, error) {
	settings, err := config.OpenSettings(Cfg.SettingsPath)
	if err != nil {
		return nil, err
	}

	notifier := interact.NewPtermNotifier(cmd.ErrOrStderr())
	client := fetch.New(fetch.WithTimeout(Cfg.Timeout))
	broker := credential.New(Cfg.Auth.Token, Cfg.Auth.TokenCommand, Cfg.Timeout)

	var confirmer interact.Confirmer = interact.HuhConfirmer{}
	if yes {
		confirmer = interact.AutoConfirmer{Answer: true}
	}

	return &runner.Runner{
		Sources: source.Deps{
			HTTP:   client,
			Broker: broker,
			Log:    Log,
			Branch: Cfg.Branch,
			Scopes: Cfg.Auth.Scopes,
		},
		Prompts: store.NewPrompts(Cfg.PromptDir(), settings, notifier, Log),
		Provisioner: &installer.Installer{
			RegistryPath: Cfg.RegistryPath,
			Packages:     &installer.DotnetTool{Command: Cfg.PackageManager, Timeout: Cfg.Timeout, Log: Log},
			Confirmer:    confirmer,
			Log:          Log,
		},
		Renderer: &session.Session{
			HTTP:              client,
			Broker:            broker,
			Scopes:            Cfg.Auth.Scopes,
			IdentityProviders: Cfg.Auth.IdentityProviders,
			Timeout:           Cfg.Timeout,
			Log:               Log,
		},
		Picker:     interact.HuhPicker{},
		Dispatcher: &dispatch.WriterDispatcher{Out: cmd.OutOrStdout()},
		Chdir:      os.Chdir,
		Log:        Log,
	}, nil
}
