// Package credential obtains bearer tokens from the host's session broker.
// prun never runs an OAuth flow itself; it either reuses a token handed to it
// or asks an external command (for example the Azure CLI) for one.
package credential

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
	"golang.org/x/oauth2"
)

// ErrAuthenticationFailed is returned whenever a token cannot be produced.
var ErrAuthenticationFailed = errors.New("authentication failed")

// ScopesPlaceholder is replaced in a token command by the requested scopes,
// space separated, as a single argument.
const ScopesPlaceholder = "{scopes}"

type Broker interface {
	// Token returns a bearer token valid for the requested scopes.
	Token(ctx context.Context, scopes []string) (string, error)
}

// StaticBroker serves tokens from an oauth2.TokenSource, ignoring scopes.
type StaticBroker struct {
	Source oauth2.TokenSource
}

var _ Broker = &StaticBroker{}

// NewStaticBroker returns a broker that always hands out token.
func NewStaticBroker(token string) *StaticBroker {
	return &StaticBroker{Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})}
}

func (b *StaticBroker) Token(ctx context.Context, scopes []string) (string, error) {
	if b.Source == nil {
		return "", errors.Wrap(ErrAuthenticationFailed, "no token source configured")
	}
	tok, err := b.Source.Token()
	if err != nil {
		return "", errors.Wrap(errors.Mark(err, ErrAuthenticationFailed), "reading token")
	}
	if !tok.Valid() {
		return "", errors.Wrap(ErrAuthenticationFailed, "token is empty or expired")
	}
	return tok.AccessToken, nil
}

// CommandBroker runs an external command and uses its trimmed stdout as the
// token, e.g.
//
//	az account get-access-token --scope {scopes} --query accessToken -o tsv
type CommandBroker struct {
	Command string
	Timeout time.Duration
}

var _ Broker = &CommandBroker{}

func (b *CommandBroker) Token(ctx context.Context, scopes []string) (string, error) {
	argv, err := shellquote.Split(b.Command)
	if err != nil {
		return "", errors.Wrap(errors.Mark(err, ErrAuthenticationFailed), "parsing token command")
	}
	if len(argv) == 0 {
		return "", errors.Wrap(ErrAuthenticationFailed, "token command is empty")
	}

	joined := strings.Join(scopes, " ")
	for i, arg := range argv {
		argv[i] = strings.ReplaceAll(arg, ScopesPlaceholder, joined)
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrapf(errors.Mark(execError(err), ErrAuthenticationFailed), "running %s", argv[0])
	}

	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", errors.Wrapf(ErrAuthenticationFailed, "%s printed no token", argv[0])
	}
	return token, nil
}

// NoBroker fails every request; it is used when no credential source is
// configured so callers get one clear error instead of a nil broker.
type NoBroker struct{}

var _ Broker = NoBroker{}

func (NoBroker) Token(ctx context.Context, scopes []string) (string, error) {
	return "", errors.WithHint(
		errors.Wrap(ErrAuthenticationFailed, "no credential source configured"),
		"set PRUN_TOKEN or auth.token_command in ~/.prun/config.toml",
	)
}

// New picks a broker: a static token wins over a token command.
func New(token, command string, timeout time.Duration) Broker {
	switch {
	case token != "":
		return NewStaticBroker(token)
	case command != "":
		return &CommandBroker{Command: command, Timeout: timeout}
	default:
		return NoBroker{}
	}
}

func execError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return errors.Wrapf(err, "%s", strings.TrimSpace(string(exitErr.Stderr)))
	}
	return err
}
