package address

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// ServicePromptPrefix marks an address that names a prompt served by a
	// configured MCP server: mcp.<serverId>.<promptId>.
	ServicePromptPrefix = "mcp."

	SchemeGitHub      = "gh"
	SchemeAzureDevOps = "ado"
)

var (
	ErrMalformedAddress  = errors.New("malformed address")
	ErrUnsupportedScheme = errors.New("unsupported scheme")

	windowsPathRegex = regexp.MustCompile(`^[A-Za-z]:\\`)
)

// Kind identifies which variant an Address is.
type Kind int

const (
	KindGitHub Kind = iota
	KindAzureDevOps
	KindURL
	KindLocal
	KindInstalled
	KindServicePrompt
)

func (k Kind) String() string {
	switch k {
	case KindGitHub:
		return "github"
	case KindAzureDevOps:
		return "azure-devops"
	case KindURL:
		return "url"
	case KindLocal:
		return "local"
	case KindInstalled:
		return "installed"
	case KindServicePrompt:
		return "service-prompt"
	}
	return "unknown"
}

// Address is a parsed prompt reference. The set of implementations is closed:
// only the types in this package satisfy it.
type Address interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Name returns the canonical prompt name used as the stored file stem
	// and as the chat command name.
	Name() string

	sealed()
}

// GitHub addresses a file in a GitHub repository: gh:owner/repo/path.
type GitHub struct {
	CanonicalName string
	Owner         string
	Repository    string
	RelativePath  string
}

// AzureDevOps addresses a file in an Azure DevOps repository:
// ado:org/project/repo/path.
type AzureDevOps struct {
	CanonicalName string
	Organization  string
	Project       string
	Repository    string
	RelativePath  string
}

// URL addresses a prompt by absolute http(s) URL.
type URL struct {
	CanonicalName string
	AbsoluteURL   string
}

// Local addresses a prompt file by absolute filesystem path.
type Local struct {
	CanonicalName  string
	FilesystemPath string
}

// Installed references a prompt already known to the chat surface by name.
type Installed struct {
	CanonicalName string
}

// ServicePrompt references a prompt rendered by an MCP server.
type ServicePrompt struct {
	CanonicalName string
	ServiceID     string
	PromptID      string
}

func (a *GitHub) Kind() Kind        { return KindGitHub }
func (a *AzureDevOps) Kind() Kind   { return KindAzureDevOps }
func (a *URL) Kind() Kind           { return KindURL }
func (a *Local) Kind() Kind         { return KindLocal }
func (a *Installed) Kind() Kind     { return KindInstalled }
func (a *ServicePrompt) Kind() Kind { return KindServicePrompt }

func (a *GitHub) Name() string        { return a.CanonicalName }
func (a *AzureDevOps) Name() string   { return a.CanonicalName }
func (a *URL) Name() string           { return a.CanonicalName }
func (a *Local) Name() string         { return a.CanonicalName }
func (a *Installed) Name() string     { return a.CanonicalName }
func (a *ServicePrompt) Name() string { return a.CanonicalName }

func (*GitHub) sealed()        {}
func (*AzureDevOps) sealed()   {}
func (*URL) sealed()           {}
func (*Local) sealed()         {}
func (*Installed) sealed()     {}
func (*ServicePrompt) sealed() {}

var (
	_ Address = &GitHub{}
	_ Address = &AzureDevOps{}
	_ Address = &URL{}
	_ Address = &Local{}
	_ Address = &Installed{}
	_ Address = &ServicePrompt{}
)

// Parse classifies a raw address string. The checks run in a fixed order
// because several forms contain ':' (drive letters, URLs, schemes).
//
//	mcp.<server>.<prompt>        service prompt
//	http(s)://...                direct URL
//	/abs/path or C:\abs\path     local file
//	gh:owner/repo/path           GitHub repository file
//	ado:org/project/repo/path    Azure DevOps repository file
//	anything else                installed prompt name
func Parse(raw string) (Address, error) {
	if strings.HasPrefix(raw, ServicePromptPrefix) {
		return parseServicePrompt(raw)
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return &URL{
			CanonicalName: PromptName(raw),
			AbsoluteURL:   AddDefaultExtension(raw),
		}, nil
	}

	if isAbsolutePath(raw) {
		return &Local{
			CanonicalName:  PromptName(raw),
			FilesystemPath: AddDefaultExtension(raw),
		}, nil
	}

	if idx := strings.Index(raw, ":"); idx >= 0 {
		return parseScheme(raw, raw[:idx], raw[idx+1:])
	}

	return &Installed{CanonicalName: PromptName(raw)}, nil
}

func parseServicePrompt(raw string) (Address, error) {
	segments := strings.Split(strings.TrimPrefix(raw, ServicePromptPrefix), ".")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return nil, errors.WithHint(
			errors.Wrapf(ErrMalformedAddress, "service prompt %q has %d segment(s) after %q, want 2", raw, len(segments), ServicePromptPrefix),
			"use the form mcp.<server>.<prompt>",
		)
	}

	return &ServicePrompt{
		CanonicalName: raw,
		ServiceID:     segments[0],
		PromptID:      segments[1],
	}, nil
}

func parseScheme(raw, scheme, remainder string) (Address, error) {
	segments := strings.Split(remainder, "/")

	switch scheme {
	case SchemeAzureDevOps:
		if len(segments) < 4 || hasInvalidSegment(segments) {
			return nil, errors.WithHint(
				errors.Wrapf(ErrMalformedAddress, "invalid Azure DevOps address %q", raw),
				"use the form ado:<organization>/<project>/<repository>/<path>",
			)
		}
		return &AzureDevOps{
			CanonicalName: PromptName(raw),
			Organization:  segments[0],
			Project:       segments[1],
			Repository:    segments[2],
			RelativePath:  AddDefaultExtension(strings.Join(segments[3:], "/")),
		}, nil

	case SchemeGitHub:
		if len(segments) < 3 || hasInvalidSegment(segments) {
			return nil, errors.WithHint(
				errors.Wrapf(ErrMalformedAddress, "invalid GitHub address %q", raw),
				"use the form gh:<owner>/<repository>/<path>",
			)
		}
		return &GitHub{
			CanonicalName: PromptName(raw),
			Owner:         segments[0],
			Repository:    segments[1],
			RelativePath:  AddDefaultExtension(strings.Join(segments[2:], "/")),
		}, nil
	}

	return nil, errors.WithHintf(
		errors.Wrapf(ErrUnsupportedScheme, "scheme %q in %q", scheme, raw),
		"supported schemes are %q and %q", SchemeGitHub, SchemeAzureDevOps,
	)
}

// isAbsolutePath reports whether raw is an absolute path in either POSIX or
// Windows drive-letter form, independent of the host platform.
func isAbsolutePath(raw string) bool {
	return strings.HasPrefix(raw, "/") || windowsPathRegex.MatchString(raw)
}

// hasInvalidSegment reports an empty, "." or ".." path segment.
func hasInvalidSegment(segments []string) bool {
	for _, s := range segments {
		if s == "" || s == "." || s == ".." {
			return true
		}
	}
	return false
}
