package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/agentpkg/promptrun/pkg/address"
	"github.com/agentpkg/promptrun/pkg/credential"
	"github.com/agentpkg/promptrun/pkg/fetch"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultBranch is the branch raw files are requested from unless
// configured otherwise.
const DefaultBranch = "main"

// Hosts are the base URLs repository addresses expand against.
type Hosts struct {
	GitHubRaw   string
	GitHub      string
	AzureDevOps string
}

var DefaultHosts = Hosts{
	GitHubRaw:   "https://raw.githubusercontent.com",
	GitHub:      "https://github.com",
	AzureDevOps: "https://dev.azure.com",
}

// Deps are the collaborators sources are built with.
type Deps struct {
	HTTP   *fetch.Client
	Broker credential.Broker
	Cloner Cloner
	Log    *zap.SugaredLogger

	Branch string
	Scopes []string
	Hosts  Hosts
	// TempRoot overrides where clone directories are created.
	TempRoot string
}

// FromAddress builds the Source that retrieves addr.
func FromAddress(addr address.Address, deps Deps) (Source, error) {
	deps = withDefaults(deps)
	name := addr.Name()

	switch a := addr.(type) {
	case *address.Installed:
		return &InstalledSource{Name: name}, nil
	case *address.Local:
		return &LocalSource{Name: name, Path: a.FilesystemPath}, nil
	case *address.URL:
		return &URLSource{Name: name, URL: a.AbsoluteURL, HTTP: deps.HTTP}, nil
	case *address.GitHub:
		src := repoSource(name, a.RelativePath, deps)
		src.RawURL = fmt.Sprintf("%s/%s/%s/%s/%s",
			deps.Hosts.GitHubRaw, escape(a.Owner), escape(a.Repository), escape(deps.Branch), escapePath(a.RelativePath))
		src.CloneURL = fmt.Sprintf("%s/%s/%s.git", deps.Hosts.GitHub, escape(a.Owner), escape(a.Repository))
		return src, nil
	case *address.AzureDevOps:
		src := repoSource(name, a.RelativePath, deps)
		src.RawURL = fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s/items?path=/%s&versionDescriptor.version=%s&includeContent=true&api-version=7.1",
			deps.Hosts.AzureDevOps, escape(a.Organization), escape(a.Project), escape(a.Repository),
			escapeQueryPath(a.RelativePath), url.QueryEscape(deps.Branch))
		src.CloneURL = fmt.Sprintf("%s/%s/%s/_git/%s",
			deps.Hosts.AzureDevOps, escape(a.Organization), escape(a.Project), escape(a.Repository))
		src.Authenticated = true
		return src, nil
	case *address.ServicePrompt:
		return nil, errors.Wrapf(ErrNotRetrievable, "%s is rendered by server %q", a.Name(), a.ServiceID)
	default:
		return nil, errors.Newf("unhandled address kind %s", addr.Kind())
	}
}

func repoSource(name, relativePath string, deps Deps) *RepoSource {
	src := &RepoSource{
		Name:         name,
		RelativePath: relativePath,
		Broker:       deps.Broker,
		Scopes:       deps.Scopes,
		HTTP:         deps.HTTP,
		Cloner:       deps.Cloner,
		Log:          deps.Log,
		TempRoot:     deps.TempRoot,
	}
	// A clone of the remote default branch also covers repositories whose
	// default is not main.
	if deps.Branch != DefaultBranch {
		src.Ref = deps.Branch
	}
	return src
}

func withDefaults(deps Deps) Deps {
	if deps.HTTP == nil {
		deps.HTTP = fetch.New()
	}
	if deps.Broker == nil {
		deps.Broker = credential.NoBroker{}
	}
	if deps.Cloner == nil {
		deps.Cloner = DefaultCloner()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if deps.Branch == "" {
		deps.Branch = DefaultBranch
	}
	if deps.Hosts.GitHubRaw == "" {
		deps.Hosts.GitHubRaw = DefaultHosts.GitHubRaw
	}
	if deps.Hosts.GitHub == "" {
		deps.Hosts.GitHub = DefaultHosts.GitHub
	}
	if deps.Hosts.AzureDevOps == "" {
		deps.Hosts.AzureDevOps = DefaultHosts.AzureDevOps
	}
	return deps
}

func escape(segment string) string {
	return url.PathEscape(segment)
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// escapeQueryPath escapes each segment of p for use as a query value. The
// separators stay literal.
func escapeQueryPath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.QueryEscape(s)
	}
	return strings.Join(segments, "/")
}
