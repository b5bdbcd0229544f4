package store

import (
	"path/filepath"
	"slices"

	"github.com/agentpkg/promptrun/pkg/address"
	"github.com/agentpkg/promptrun/pkg/config"
	"github.com/agentpkg/promptrun/pkg/interact"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Prompts is the local prompt storage directory. Stored prompts are named
// <name>.prompt.md and the last write wins.
type Prompts struct {
	fs       Store
	settings config.Settings
	notifier interact.Notifier
	log      *zap.SugaredLogger
}

func NewPrompts(dir string, settings config.Settings, notifier interact.Notifier, log *zap.SugaredLogger) *Prompts {
	return &Prompts{
		fs:       New(dir),
		settings: settings,
		notifier: notifier,
		log:      log,
	}
}

// Dir is the storage directory.
func (p *Prompts) Dir() string {
	return p.fs.Path()
}

// PathFor is where the prompt called name is stored.
func (p *Prompts) PathFor(name string) string {
	return p.fs.Path(fileName(name))
}

// Save writes data as the prompt called name and returns the stored path.
func (p *Prompts) Save(name string, data []byte) (string, error) {
	if err := p.ensure(); err != nil {
		return "", err
	}
	if err := p.fs.WriteFile(data, fileName(name)); err != nil {
		return "", errors.Wrapf(err, "storing prompt %q", name)
	}
	p.log.Debugw("Stored prompt", "name", name, "path", p.PathFor(name))
	return p.PathFor(name), nil
}

// CopyFile copies src into storage as the prompt called name and returns the
// stored path.
func (p *Prompts) CopyFile(name, src string) (string, error) {
	if err := p.ensure(); err != nil {
		return "", err
	}
	if err := p.fs.CopyFile(src, fileName(name)); err != nil {
		return "", errors.Wrapf(err, "storing prompt %q", name)
	}
	p.log.Debugw("Copied prompt", "name", name, "source", src, "path", p.PathFor(name))
	return p.PathFor(name), nil
}

// Digest is the sha256 digest of the stored prompt called name.
func (p *Prompts) Digest(name string) (string, error) {
	return p.fs.HashFile(fileName(name))
}

// ensure creates the storage directory and adds it to the prompt locations
// the chat surface scans unless it is listed there already.
func (p *Prompts) ensure() error {
	created, err := p.fs.EnsureDir()
	if err != nil {
		return errors.Wrapf(err, "creating prompt storage %s", p.Dir())
	}
	if created {
		p.log.Debugw("Created prompt storage", "dir", p.Dir())
	}

	locations := config.StringSlice(p.settings, config.PromptLocationsKey)
	if slices.Contains(locations, p.Dir()) {
		return nil
	}
	if err := p.settings.Set(config.PromptLocationsKey, append(locations, p.Dir())); err != nil {
		return errors.Wrap(err, "registering prompt storage")
	}
	p.notifier.Info("Registered " + p.Dir() + " as a prompt location")
	return nil
}

func fileName(name string) string {
	return filepath.Base(name) + address.DefaultExtension
}
