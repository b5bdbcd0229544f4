// Package runner carries one prompt request from its address to the chat
// surface: it provisions the servers the request names, retrieves or renders
// the prompt, and dispatches it.
package runner

import (
	"context"
	"os"

	"github.com/agentpkg/promptrun/pkg/address"
	"github.com/agentpkg/promptrun/pkg/dispatch"
	"github.com/agentpkg/promptrun/pkg/installer"
	"github.com/agentpkg/promptrun/pkg/interact"
	"github.com/agentpkg/promptrun/pkg/mcp"
	"github.com/agentpkg/promptrun/pkg/prompt"
	"github.com/agentpkg/promptrun/pkg/session"
	"github.com/agentpkg/promptrun/pkg/source"
	"github.com/agentpkg/promptrun/pkg/store"
	"github.com/agentpkg/promptrun/pkg/workspace"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type Provisioner interface {
	Provision(ctx context.Context, descs []mcp.Descriptor) (installer.Outcome, error)
}

type Renderer interface {
	Render(ctx context.Context, serviceID, promptID string, args map[string]string, descs []mcp.Descriptor) (string, error)
}

// Request is one invocation. Only Address is required.
type Request struct {
	Address string
	// Arguments follow the slash command of a stored prompt, or are the JSON
	// object of arguments for a server-rendered prompt.
	Arguments string
	// Servers is a JSON descriptor object or array.
	Servers   string
	Workspace string
}

// Fetched is a prompt retrieved into storage.
type Fetched struct {
	source.Resolved
	// Metadata is zero for installed prompts and prompts whose front matter
	// cannot be read.
	Metadata prompt.Metadata
	Digest   string
}

type Runner struct {
	Sources     source.Deps
	Prompts     *store.Prompts
	Provisioner Provisioner
	Renderer    Renderer
	Picker      interact.Picker
	Dispatcher  dispatch.Dispatcher
	// Chdir switches to the picked workspace folder.
	Chdir func(dir string) error
	Log   *zap.SugaredLogger
}

// Run resolves req and dispatches the result. Every input is parsed before
// anything is fetched, installed or asked. A declined confirmation or a
// dismissed picker returns interact.ErrUserCancelled.
func (r *Runner) Run(ctx context.Context, req Request) error {
	addr, err := address.Parse(req.Address)
	if err != nil {
		return err
	}
	dir, err := workspace.Parse(req.Workspace)
	if err != nil {
		return err
	}
	descs, err := mcp.ParseDescriptors(req.Servers)
	if err != nil {
		return errors.Wrap(err, "reading server descriptors")
	}

	sp, rendered := addr.(*address.ServicePrompt)
	var args map[string]string
	if rendered {
		if _, err := session.Lookup(descs, sp.ServiceID); err != nil {
			return err
		}
		if args, err = session.ParseArguments(req.Arguments); err != nil {
			return err
		}
	}

	r.Log.Debugw("Running prompt", "address", req.Address, "kind", addr.Kind(), "name", addr.Name(), "servers", len(descs))

	if dir.Select {
		if err := r.selectWorkspace(ctx, dir.Message); err != nil {
			return err
		}
	}

	if err := r.provision(ctx, descs); err != nil {
		return err
	}

	if rendered {
		text, err := r.Renderer.Render(ctx, sp.ServiceID, sp.PromptID, args, descs)
		if err != nil {
			return errors.Wrapf(err, "rendering %q", req.Address)
		}
		return r.dispatch(ctx, text)
	}

	fetched, err := r.fetch(ctx, addr)
	if err != nil {
		return err
	}
	return r.dispatch(ctx, dispatch.Command(fetched.Name, req.Arguments))
}

// Fetch retrieves the prompt at raw into storage without running it.
func (r *Runner) Fetch(ctx context.Context, raw string) (*Fetched, error) {
	addr, err := address.Parse(raw)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, addr)
}

// Provision installs and registers the servers in payload.
func (r *Runner) Provision(ctx context.Context, payload string) error {
	descs, err := mcp.ParseDescriptors(payload)
	if err != nil {
		return errors.Wrap(err, "reading server descriptors")
	}
	return r.provision(ctx, descs)
}

func (r *Runner) provision(ctx context.Context, descs []mcp.Descriptor) error {
	if len(descs) == 0 {
		return nil
	}
	outcome, err := r.Provisioner.Provision(ctx, descs)
	if err != nil {
		return errors.Wrap(err, "provisioning servers")
	}
	if outcome == installer.Cancelled {
		return interact.ErrUserCancelled
	}
	return nil
}

func (r *Runner) selectWorkspace(ctx context.Context, message string) error {
	dir, err := r.Picker.Pick(ctx, message)
	if err != nil {
		return err
	}

	chdir := r.Chdir
	if chdir == nil {
		chdir = os.Chdir
	}
	if err := chdir(dir); err != nil {
		return errors.Wrapf(err, "opening workspace %s", dir)
	}
	r.Log.Infow("Switched workspace", "dir", dir)
	return nil
}

func (r *Runner) fetch(ctx context.Context, addr address.Address) (*Fetched, error) {
	src, err := source.FromAddress(addr, r.Sources)
	if err != nil {
		return nil, err
	}

	resolved, err := src.Fetch(ctx, r.Prompts)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving prompt %q", addr.Name())
	}

	fetched := &Fetched{Resolved: *resolved}
	if resolved.Path == "" {
		return fetched, nil
	}

	if fetched.Digest, err = r.Prompts.Digest(resolved.Name); err != nil {
		r.Log.Warnw("Failed to hash stored prompt", "path", resolved.Path, "error", err)
	}
	p, err := prompt.Load(resolved.Path)
	if err != nil {
		r.Log.Warnw("Ignoring unreadable front matter", "path", resolved.Path, "error", err)
		return fetched, nil
	}
	if err := p.Validate(); err != nil {
		r.Log.Warnw("Prompt front matter has problems", "path", resolved.Path, "error", err)
	}
	fetched.Metadata = p.Metadata
	return fetched, nil
}

func (r *Runner) dispatch(ctx context.Context, text string) error {
	if err := r.Dispatcher.Dispatch(ctx, text); err != nil {
		return errors.Wrap(err, "dispatching prompt")
	}
	return nil
}
