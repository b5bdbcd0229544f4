package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentpkg/promptrun/pkg/credential"
	"github.com/agentpkg/promptrun/pkg/fetch"
	"github.com/agentpkg/promptrun/pkg/mcp"
	"github.com/cockroachdb/errors"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	result    *mcpproto.GetPromptResult
	initErr   error
	promptErr error
	closeErr  error

	closed  int
	request mcpproto.GetPromptRequest
}

func (f *fakeClient) Initialize(ctx context.Context, req mcpproto.InitializeRequest) (*mcpproto.InitializeResult, error) {
	return &mcpproto.InitializeResult{}, f.initErr
}

func (f *fakeClient) GetPrompt(ctx context.Context, req mcpproto.GetPromptRequest) (*mcpproto.GetPromptResult, error) {
	f.request = req
	return f.result, f.promptErr
}

func (f *fakeClient) Close() error {
	f.closed++
	return f.closeErr
}

type recordingBroker struct {
	token  string
	scopes []string
	calls  int
}

func (b *recordingBroker) Token(ctx context.Context, scopes []string) (string, error) {
	b.calls++
	b.scopes = scopes
	return b.token, nil
}

func textResult(text string) *mcpproto.GetPromptResult {
	return mcpproto.NewGetPromptResult("", []mcpproto.PromptMessage{
		mcpproto.NewPromptMessage(mcpproto.RoleUser, mcpproto.NewTextContent(text)),
	})
}

var docsServer = mcp.Descriptor{Name: "docs", Transport: mcp.TransportStdio, Command: "docs-server"}

func newSession(c Client) *Session {
	return &Session{
		HTTP:              fetch.New(),
		Broker:            &recordingBroker{token: "tok"},
		IdentityProviders: []string{"login.microsoftonline.com"},
		Log:               zap.NewNop().Sugar(),
		Dial: func(ctx context.Context, desc mcp.Descriptor, headers map[string]string) (Client, error) {
			return c, nil
		},
	}
}

func TestRender(t *testing.T) {
	t.Run("returns first text block", func(t *testing.T) {
		c := &fakeClient{result: textResult("Summarize the docs")}
		text, err := newSession(c).Render(context.Background(), "docs", "summarize", map[string]string{"topic": "errors"}, []mcp.Descriptor{docsServer})
		require.NoError(t, err)
		assert.Equal(t, "Summarize the docs", text)
		assert.Equal(t, "summarize", c.request.Params.Name)
		assert.Equal(t, map[string]string{"topic": "errors"}, c.request.Params.Arguments)
		assert.Equal(t, 1, c.closed)
	})

	t.Run("server not supplied", func(t *testing.T) {
		dialed := false
		s := newSession(nil)
		s.Dial = func(ctx context.Context, desc mcp.Descriptor, headers map[string]string) (Client, error) {
			dialed = true
			return nil, errors.New("unexpected dial")
		}
		_, err := s.Render(context.Background(), "other", "summarize", nil, []mcp.Descriptor{docsServer})
		assert.True(t, errors.Is(err, ErrServiceNotConfigured), "got %v", err)
		assert.False(t, dialed)
	})

	t.Run("prompt error still closes", func(t *testing.T) {
		c := &fakeClient{promptErr: errors.New("prompt not found")}
		_, err := newSession(c).Render(context.Background(), "docs", "missing", nil, []mcp.Descriptor{docsServer})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "prompt not found")
		assert.Equal(t, 1, c.closed)
	})

	t.Run("initialize error still closes", func(t *testing.T) {
		c := &fakeClient{initErr: errors.New("protocol mismatch")}
		_, err := newSession(c).Render(context.Background(), "docs", "summarize", nil, []mcp.Descriptor{docsServer})
		require.Error(t, err)
		assert.Equal(t, 1, c.closed)
	})

	t.Run("empty response", func(t *testing.T) {
		for name, result := range map[string]*mcpproto.GetPromptResult{
			"no messages": mcpproto.NewGetPromptResult("", nil),
			"empty text":  textResult(""),
			"image only": mcpproto.NewGetPromptResult("", []mcpproto.PromptMessage{
				mcpproto.NewPromptMessage(mcpproto.RoleUser, mcpproto.NewImageContent("aGk=", "image/png")),
			}),
		} {
			c := &fakeClient{result: result}
			_, err := newSession(c).Render(context.Background(), "docs", "summarize", nil, []mcp.Descriptor{docsServer})
			assert.True(t, errors.Is(err, ErrEmptyResponse), "%s: got %v", name, err)
			assert.Equal(t, 1, c.closed, name)
		}
	})

	t.Run("close error is not a failure", func(t *testing.T) {
		c := &fakeClient{result: textResult("ok"), closeErr: errors.New("broken pipe")}
		text, err := newSession(c).Render(context.Background(), "docs", "summarize", nil, []mcp.Descriptor{docsServer})
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	})
}

func TestParseArguments(t *testing.T) {
	tests := map[string]struct {
		input   string
		want    map[string]string
		wantErr bool
	}{
		"empty":        {input: "", want: map[string]string{}},
		"empty object": {input: "{}", want: map[string]string{}},
		"strings":      {input: `{"topic":"errors","lang":"go"}`, want: map[string]string{"topic": "errors", "lang": "go"}},
		"non-strings":  {input: `{"count":3,"deep":{"a":true},"list":[1,2]}`, want: map[string]string{"count": "3", "deep": `{"a":true}`, "list": "[1,2]"}},
		"array":        {input: `["a"]`, wantErr: true},
		"scalar":       {input: `"a"`, wantErr: true},
		"null":         {input: `null`, wantErr: true},
		"malformed":    {input: `{"a":`, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseArguments(tc.input)
			if tc.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidArguments), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMetadataURL(t *testing.T) {
	tests := map[string]struct {
		endpoint string
		want     string
	}{
		"root":          {endpoint: "https://api.example.com", want: "https://api.example.com/.well-known/oauth-protected-resource"},
		"trailing root": {endpoint: "https://api.example.com/", want: "https://api.example.com/.well-known/oauth-protected-resource"},
		"with path":     {endpoint: "https://api.example.com/v1/mcp", want: "https://api.example.com/.well-known/oauth-protected-resource/v1/mcp"},
		"with port":     {endpoint: "http://127.0.0.1:8080/mcp/", want: "http://127.0.0.1:8080/.well-known/oauth-protected-resource/mcp"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := metadataURL(tc.endpoint)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// metadataServer serves protected resource metadata for /mcp.
func metadataServer(t *testing.T, status int, meta any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(protectedResourcePath+"/mcp", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if meta != nil {
			json.NewEncoder(w).Encode(meta)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRenderHTTPAuthorization(t *testing.T) {
	tests := map[string]struct {
		status     int
		meta       any
		scopes     []string
		wantHeader string
		wantScopes []string
		wantErr    error
		wantNoDial bool
	}{
		"no metadata is public": {
			status: http.StatusNotFound,
		},
		"no authorization servers is public": {
			status: http.StatusOK,
			meta:   protectedResource{Resource: "https://example.com/mcp"},
		},
		"unreadable metadata is public": {
			status: http.StatusOK,
			meta:   "not an object",
		},
		"recognized provider uses configured scopes": {
			status: http.StatusOK,
			meta: protectedResource{
				AuthorizationServers: []string{"https://login.microsoftonline.com/tenant/v2.0"},
				ScopesSupported:      []string{"api://docs/.default"},
			},
			scopes:     []string{"api://configured/.default"},
			wantHeader: "Bearer tok",
			wantScopes: []string{"api://configured/.default"},
		},
		"recognized provider falls back to advertised scopes": {
			status: http.StatusOK,
			meta: protectedResource{
				AuthorizationServers: []string{"https://login.microsoftonline.com/tenant/v2.0"},
				ScopesSupported:      []string{"api://docs/.default"},
			},
			wantHeader: "Bearer tok",
			wantScopes: []string{"api://docs/.default"},
		},
		"unrecognized provider fails before connecting": {
			status: http.StatusOK,
			meta: protectedResource{
				AuthorizationServers: []string{"https://accounts.example.org"},
			},
			wantErr:    ErrUnsupportedAuthProvider,
			wantNoDial: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			srv := metadataServer(t, tc.status, tc.meta)
			desc := mcp.Descriptor{Name: "remote", Transport: mcp.TransportHTTP, URL: srv.URL + "/mcp"}

			c := &fakeClient{result: textResult("ok")}
			var headers map[string]string
			dialed := false
			s := newSession(c)
			s.Scopes = tc.scopes
			broker := s.Broker.(*recordingBroker)
			s.Dial = func(ctx context.Context, d mcp.Descriptor, h map[string]string) (Client, error) {
				dialed = true
				headers = h
				return c, nil
			}

			_, err := s.Render(context.Background(), "remote", "summarize", nil, []mcp.Descriptor{desc})
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, !tc.wantNoDial, dialed)
			assert.Equal(t, tc.wantHeader, headers["Authorization"])
			if tc.wantScopes != nil {
				assert.Equal(t, tc.wantScopes, broker.scopes)
			} else {
				assert.Zero(t, broker.calls)
			}
		})
	}
}

func TestRenderHTTPBrokerFailure(t *testing.T) {
	srv := metadataServer(t, http.StatusOK, protectedResource{
		AuthorizationServers: []string{"https://login.microsoftonline.com/common"},
	})
	desc := mcp.Descriptor{Name: "remote", Transport: mcp.TransportHTTP, URL: srv.URL + "/mcp"}

	s := newSession(&fakeClient{})
	s.Broker = credential.NoBroker{}

	_, err := s.Render(context.Background(), "remote", "summarize", nil, []mcp.Descriptor{desc})
	assert.True(t, errors.Is(err, credential.ErrAuthenticationFailed), "got %v", err)
}

func TestRenderStreamableServer(t *testing.T) {
	mcpServer := server.NewMCPServer("docs", "1.0.0", server.WithPromptCapabilities(true))
	mcpServer.AddPrompt(
		mcpproto.NewPrompt("summarize",
			mcpproto.WithPromptDescription("Summarize a topic"),
			mcpproto.WithArgument("topic", mcpproto.RequiredArgument()),
		),
		func(ctx context.Context, req mcpproto.GetPromptRequest) (*mcpproto.GetPromptResult, error) {
			return mcpproto.NewGetPromptResult("Summary", []mcpproto.PromptMessage{
				mcpproto.NewPromptMessage(mcpproto.RoleUser, mcpproto.NewTextContent("Summarize "+req.Params.Arguments["topic"])),
			}), nil
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := &Session{
		HTTP:              fetch.New(),
		Broker:            credential.NoBroker{},
		IdentityProviders: []string{"login.microsoftonline.com"},
		Log:               zap.NewNop().Sugar(),
	}
	desc := mcp.Descriptor{Name: "docs", Transport: mcp.TransportHTTP, URL: srv.URL + "/mcp"}

	text, err := s.Render(context.Background(), "docs", "summarize", map[string]string{"topic": "errors"}, []mcp.Descriptor{desc})
	require.NoError(t, err)
	assert.Equal(t, "Summarize errors", text)
}

func TestEnviron(t *testing.T) {
	assert.Equal(t, []string{"A=1", "B=2"}, environ(map[string]string{"B": "2", "A": "1"}))
	assert.Empty(t, environ(nil))
}
