package installer

import (
	"context"
	"fmt"

	"github.com/agentpkg/promptrun/pkg/interact"
	"github.com/agentpkg/promptrun/pkg/mcp"
	"github.com/agentpkg/promptrun/pkg/registry"
	"github.com/agentpkg/promptrun/pkg/version"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrPackageInstallFailed is returned when the package manager fails to
// install a server package. The registry is left untouched.
var ErrPackageInstallFailed = errors.New("package install failed")

type Outcome int

const (
	Accepted Outcome = iota
	Cancelled
)

func (o Outcome) String() string {
	if o == Cancelled {
		return "cancelled"
	}
	return "accepted"
}

// InstallRequest is one package manager installation.
type InstallRequest struct {
	Package    string
	Version    string
	Feed       string
	Prerelease bool
}

type PackageManager interface {
	// InstalledVersion reports the installed version of pkg, if any.
	InstalledVersion(ctx context.Context, pkg string) (string, bool, error)
	Install(ctx context.Context, req InstallRequest) error
}

// Installer provisions the MCP servers a prompt declares: it installs their
// packages and records them in the server registry.
type Installer struct {
	RegistryPath string
	Packages     PackageManager
	Confirmer    interact.Confirmer
	Log          *zap.SugaredLogger
}

// Provision processes descs in order. The registry is accumulated in memory
// and written once at the end, only if something changed. A declined
// confirmation stops the batch before later descriptors are looked at and
// returns Cancelled without writing. The Outcome is only meaningful when the
// error is nil.
func (inst *Installer) Provision(ctx context.Context, descs []mcp.Descriptor) (Outcome, error) {
	if len(descs) == 0 {
		return Accepted, nil
	}

	reg, err := registry.Load(inst.RegistryPath)
	if err != nil {
		return Accepted, errors.Wrap(err, "loading server registry")
	}

	changed := false
	for _, d := range descs {
		var (
			result step
			err    error
		)
		if d.HasPackage() {
			result, err = inst.provisionPackage(ctx, d)
		} else {
			result, err = inst.provisionConfig(ctx, reg, d)
		}
		if err != nil {
			return Accepted, err
		}

		switch result {
		case stepCancel:
			inst.Log.Infow("Provisioning cancelled", "server", d.Name)
			return Cancelled, nil
		case stepRecord:
			reg.Set(d.Name, d.TransportConfig())
			changed = true
		}
	}

	if !changed {
		return Accepted, nil
	}
	if err := reg.Save(); err != nil {
		return Accepted, errors.Wrap(err, "saving server registry")
	}
	inst.Log.Infow("Updated server registry", "path", reg.Path(), "servers", reg.Servers())

	return Accepted, nil
}

type step int

const (
	stepSkip step = iota
	stepRecord
	stepCancel
)

// provisionPackage installs the package behind d unless a sufficient version
// is already installed.
func (inst *Installer) provisionPackage(ctx context.Context, d mcp.Descriptor) (step, error) {
	if d.Version != "" {
		installed, ok, err := inst.Packages.InstalledVersion(ctx, d.Package)
		if err != nil {
			inst.Log.Debugw("Could not query installed package", "package", d.Package, "error", err)
		}
		if ok && version.IsSufficient(installed, d.Version) {
			inst.Log.Debugw("Package already installed", "package", d.Package, "installed", installed, "required", d.Version)
			return stepSkip, nil
		}
	}

	accepted, err := inst.Confirmer.Confirm(ctx, interact.ConfirmRequest{
		Title:  fmt.Sprintf("Install MCP server %q?", d.Name),
		Detail: d.Summary(),
		Accept: "Install",
	})
	if err != nil {
		return stepCancel, err
	}
	if !accepted {
		return stepCancel, nil
	}

	inst.Log.Infow("Installing package", "package", d.Package, "version", d.Version)
	err = inst.Packages.Install(ctx, InstallRequest{
		Package:    d.Package,
		Version:    d.Version,
		Feed:       d.Feed,
		Prerelease: d.Prerelease,
	})
	if err != nil {
		return stepCancel, errors.Mark(errors.Wrapf(err, "installing %s for server %q", d.Package, d.Name), ErrPackageInstallFailed)
	}
	return stepRecord, nil
}

// provisionConfig confirms registration of a server without a package. A
// server that is already registered is not asked about again.
func (inst *Installer) provisionConfig(ctx context.Context, reg *registry.Registry, d mcp.Descriptor) (step, error) {
	if reg.Has(d.Name) {
		inst.Log.Debugw("Server already registered", "server", d.Name)
		return stepSkip, nil
	}

	accepted, err := inst.Confirmer.Confirm(ctx, interact.ConfirmRequest{
		Title:  fmt.Sprintf("Register MCP server %q?", d.Name),
		Detail: d.Summary(),
		Accept: "Register",
	})
	if err != nil {
		return stepCancel, err
	}
	if !accepted {
		return stepCancel, nil
	}
	return stepRecord, nil
}
