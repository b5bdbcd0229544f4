package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentpkg/promptrun/pkg/credential"
	"github.com/agentpkg/promptrun/pkg/fetch"
	"github.com/agentpkg/promptrun/pkg/store"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// RepoSource retrieves a prompt from a hosted repository. It tries the raw
// file URL first and falls back to a shallow clone.
type RepoSource struct {
	Name         string
	RawURL       string
	CloneURL     string
	RelativePath string
	// Ref is handed to the cloner; empty clones the remote default branch.
	Ref string

	// Authenticated repositories obtain a bearer token from Broker before
	// the raw request and reuse it for the clone.
	Authenticated bool
	Broker        credential.Broker
	Scopes        []string

	HTTP   *fetch.Client
	Cloner Cloner
	Log    *zap.SugaredLogger

	// TempRoot is where clone directories are created; defaults to
	// os.TempDir().
	TempRoot string
}

var _ Source = &RepoSource{}

func (r *RepoSource) Fetch(ctx context.Context, prompts *store.Prompts) (*Resolved, error) {
	token := r.token(ctx)

	path, err := r.fetchRaw(ctx, prompts, token)
	if err == nil {
		return &Resolved{Name: r.Name, Path: path}, nil
	}
	r.Log.Debugw("Raw fetch failed, falling back to clone", "url", r.RawURL, "error", err)

	path, err = r.fetchClone(ctx, prompts, token)
	if err != nil {
		return nil, err
	}
	return &Resolved{Name: r.Name, Path: path}, nil
}

func (r *RepoSource) token(ctx context.Context) string {
	if !r.Authenticated || r.Broker == nil {
		return ""
	}
	token, err := r.Broker.Token(ctx, r.Scopes)
	if err != nil {
		r.Log.Debugw("No credential for repository", "url", r.CloneURL, "error", err)
		return ""
	}
	return token
}

func (r *RepoSource) fetchRaw(ctx context.Context, prompts *store.Prompts, token string) (string, error) {
	if r.Authenticated && token == "" {
		return "", errors.Wrap(credential.ErrAuthenticationFailed, "raw fetch needs a token")
	}

	var headers map[string]string
	if token != "" {
		headers = map[string]string{"Authorization": "Bearer " + token}
	}

	body, err := r.HTTP.Get(ctx, r.RawURL, headers)
	if err != nil {
		return "", err
	}
	// Hosts answer unauthorized raw requests with a sign-in page and 200.
	if fetch.IsHTMLInterstitial(body) {
		return "", errors.Newf("%s returned an HTML page", r.RawURL)
	}

	return prompts.Save(r.Name, body)
}

func (r *RepoSource) fetchClone(ctx context.Context, prompts *store.Prompts, token string) (string, error) {
	root := r.TempRoot
	if root == "" {
		root = os.TempDir()
	}
	dest := filepath.Join(root, fmt.Sprintf("prun-clone-%d", time.Now().UnixNano()))
	defer func() {
		if err := os.RemoveAll(dest); err != nil {
			r.Log.Warnw("Failed to remove clone directory", "dir", dest, "error", err)
		}
	}()

	r.Log.Debugw("Cloning repository", "url", r.CloneURL, "ref", r.Ref, "dest", dest)

	cloneCtx, cancel := context.WithTimeout(ctx, r.HTTP.Timeout())
	defer cancel()

	err := r.Cloner.Clone(cloneCtx, CloneOptions{
		URL:   r.CloneURL,
		Dest:  dest,
		Ref:   r.Ref,
		Token: token,
	})
	if err != nil {
		return "", errors.WithHint(
			errors.Wrapf(err, "cloning %s", r.CloneURL),
			"check that the repository exists and that you have access to it",
		)
	}

	rel := filepath.FromSlash(r.RelativePath)
	if !filepath.IsLocal(rel) {
		return "", errors.Wrapf(ErrSourceNotFound, "%s is outside %s", r.RelativePath, r.CloneURL)
	}
	src := filepath.Join(dest, rel)
	info, err := os.Stat(src)
	if err != nil || info.IsDir() {
		return "", errors.Wrapf(ErrSourceNotFound, "%s in %s", r.RelativePath, r.CloneURL)
	}

	return prompts.CopyFile(r.Name, src)
}
