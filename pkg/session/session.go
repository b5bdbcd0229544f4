// Package session renders prompts served by remote MCP servers.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/agentpkg/promptrun/pkg/credential"
	"github.com/agentpkg/promptrun/pkg/fetch"
	"github.com/agentpkg/promptrun/pkg/mcp"
	"github.com/cockroachdb/errors"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

var (
	ErrServiceNotConfigured    = errors.New("server not configured")
	ErrInvalidArguments        = errors.New("invalid prompt arguments")
	ErrUnsupportedAuthProvider = errors.New("unsupported authorization server")
	ErrEmptyResponse           = errors.New("server returned no prompt text")
)

const (
	clientName    = "prun"
	clientVersion = "1.0.0"
)

// Client is the part of an MCP client session a render needs.
type Client interface {
	Initialize(ctx context.Context, req mcpproto.InitializeRequest) (*mcpproto.InitializeResult, error)
	GetPrompt(ctx context.Context, req mcpproto.GetPromptRequest) (*mcpproto.GetPromptResult, error)
	Close() error
}

// Dialer opens a client for desc. headers are only used by http servers.
type Dialer func(ctx context.Context, desc mcp.Descriptor, headers map[string]string) (Client, error)

type Session struct {
	HTTP   *fetch.Client
	Broker credential.Broker
	// Scopes are requested from Broker; when empty the server's advertised
	// scopes are used.
	Scopes []string
	// IdentityProviders are the authorization server hosts Broker can
	// issue tokens for.
	IdentityProviders []string
	Dial              Dialer
	Timeout           time.Duration
	Log               *zap.SugaredLogger
}

// Lookup returns the descriptor of the server called serviceID.
func Lookup(descs []mcp.Descriptor, serviceID string) (mcp.Descriptor, error) {
	desc, ok := mcp.Find(descs, serviceID)
	if !ok {
		return mcp.Descriptor{}, errors.WithHint(
			errors.Wrapf(ErrServiceNotConfigured, "server %q", serviceID),
			"pass the server descriptor with --servers",
		)
	}
	return desc, nil
}

// Render asks the server called serviceID for prompt promptID and returns
// the text of its first message. The server must be among descs. The client
// session is closed on every path.
func (s *Session) Render(ctx context.Context, serviceID, promptID string, args map[string]string, descs []mcp.Descriptor) (string, error) {
	desc, err := Lookup(descs, serviceID)
	if err != nil {
		return "", err
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var headers map[string]string
	if desc.Transport == mcp.TransportHTTP {
		headers, err = s.authHeaders(ctx, desc.URL)
		if err != nil {
			return "", err
		}
	}

	dial := s.Dial
	if dial == nil {
		dial = DialClient
	}
	c, err := dial(ctx, desc, headers)
	if err != nil {
		return "", errors.Wrapf(err, "connecting to server %q", serviceID)
	}
	defer func() {
		if err := c.Close(); err != nil {
			s.Log.Warnw("Failed to close server session", "server", serviceID, "error", err)
		}
	}()

	initReq := mcpproto.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpproto.Implementation{Name: clientName, Version: clientVersion}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return "", errors.Wrapf(err, "initializing session with %q", serviceID)
	}

	promptReq := mcpproto.GetPromptRequest{}
	promptReq.Params.Name = promptID
	promptReq.Params.Arguments = args
	s.Log.Debugw("Requesting prompt", "server", serviceID, "prompt", promptID, "arguments", len(args))

	result, err := c.GetPrompt(ctx, promptReq)
	if err != nil {
		return "", errors.Wrapf(err, "getting prompt %q from %q", promptID, serviceID)
	}

	text, ok := firstText(result)
	if !ok {
		return "", errors.Wrapf(ErrEmptyResponse, "prompt %q from %q", promptID, serviceID)
	}
	return text, nil
}

// ParseArguments decodes a JSON object into prompt arguments. Prompt
// arguments are strings on the wire, so other values are sent JSON-encoded.
func ParseArguments(argsJSON string) (map[string]string, error) {
	raw := strings.TrimSpace(argsJSON)
	if raw == "" {
		raw = "{}"
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &values); err != nil || values == nil {
		return nil, errors.WithHint(
			errors.Wrapf(ErrInvalidArguments, "arguments must be a JSON object, got %q", argsJSON),
			`for example {"topic": "errors"}`,
		)
	}

	args := make(map[string]string, len(values))
	for k, v := range values {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			args[k] = str
			continue
		}
		args[k] = string(v)
	}
	return args, nil
}

func firstText(result *mcpproto.GetPromptResult) (string, bool) {
	if result == nil || len(result.Messages) == 0 {
		return "", false
	}
	switch content := result.Messages[0].Content.(type) {
	case mcpproto.TextContent:
		return content.Text, content.Text != ""
	case *mcpproto.TextContent:
		if content == nil {
			return "", false
		}
		return content.Text, content.Text != ""
	}
	return "", false
}
