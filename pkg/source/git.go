package source

import (
	"context"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// CloneOptions describes a shallow clone.
type CloneOptions struct {
	URL  string
	Dest string
	// Ref is a branch name or a full commit hash. Empty clones the remote's
	// default branch.
	Ref string
	// Token, when set, is sent as a bearer Authorization header.
	Token string
}

// Cloner makes a depth-1 copy of a repository.
type Cloner interface {
	Clone(ctx context.Context, opts CloneOptions) error
}

// DefaultCloner uses the git executable when it is on PATH.
func DefaultCloner() Cloner {
	if _, err := exec.LookPath("git"); err == nil {
		return ExecCloner{}
	}
	return GoGitCloner{}
}

// ExecCloner runs the git executable.
type ExecCloner struct{}

var _ Cloner = ExecCloner{}

func (c ExecCloner) Clone(ctx context.Context, opts CloneOptions) error {
	if isCommitHash(opts.Ref) {
		return c.cloneCommit(ctx, opts)
	}

	args := []string{"clone", "--depth", "1"}
	if opts.Ref != "" {
		args = append(args, "--branch", opts.Ref)
	}
	args = append(args, opts.URL, opts.Dest)

	return c.git(ctx, opts.Token, args...)
}

// cloneCommit fetches a single commit by SHA. Requires the server to support
// uploadpack.allowReachableSHA1InWant (GitHub and Azure DevOps do).
func (c ExecCloner) cloneCommit(ctx context.Context, opts CloneOptions) error {
	for _, args := range [][]string{
		{"init", opts.Dest},
		{"-C", opts.Dest, "remote", "add", "origin", opts.URL},
		{"-C", opts.Dest, "fetch", "--depth", "1", "origin", opts.Ref},
		{"-C", opts.Dest, "checkout", "FETCH_HEAD"},
	} {
		if err := c.git(ctx, opts.Token, args...); err != nil {
			return err
		}
	}
	return nil
}

// git runs one git command. The token is passed as transient config so it
// is never written to the clone's .git/config.
func (ExecCloner) git(ctx context.Context, token string, args ...string) error {
	if token != "" {
		args = append([]string{"-c", "http.extraHeader=Authorization: Bearer " + token}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	if _, err := cmd.Output(); err != nil {
		return execError(err)
	}
	return nil
}

// GoGitCloner clones in-process with go-git, for hosts without git.
type GoGitCloner struct{}

var _ Cloner = GoGitCloner{}

func (GoGitCloner) Clone(ctx context.Context, opts CloneOptions) error {
	cloneOpts := &git.CloneOptions{
		URL:   opts.URL,
		Depth: 1,
	}
	if opts.Token != "" {
		cloneOpts.Auth = &githttp.TokenAuth{Token: opts.Token}
	}

	if isCommitHash(opts.Ref) {
		repo, err := git.PlainCloneContext(ctx, opts.Dest, false, &git.CloneOptions{
			URL:        opts.URL,
			Auth:       cloneOpts.Auth,
			NoCheckout: true,
		})
		if err != nil {
			return errors.Wrap(err, "go-git clone")
		}
		wt, err := repo.Worktree()
		if err != nil {
			return errors.Wrap(err, "opening worktree")
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(opts.Ref)}); err != nil {
			return errors.Wrapf(err, "checking out %s", opts.Ref)
		}
		return nil
	}

	if opts.Ref != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Ref)
		cloneOpts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, opts.Dest, false, cloneOpts); err != nil {
		return errors.Wrap(err, "go-git clone")
	}
	return nil
}

// isCommitHash reports whether s is a full 40-character hex SHA-1 hash.
func isCommitHash(s string) bool {
	return len(s) == 40 && isHexString(s)
}

// isHexString reports whether s is non-empty and contains only hexadecimal characters.
func isHexString(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func execError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return errors.Wrapf(err, "%s", strings.TrimSpace(string(exitErr.Stderr)))
	}
	return err
}
