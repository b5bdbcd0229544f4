package session

import (
	"context"
	"sort"

	"github.com/agentpkg/promptrun/pkg/mcp"
	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
)

// DialClient opens an mcp-go client over the descriptor's transport.
func DialClient(ctx context.Context, desc mcp.Descriptor, headers map[string]string) (Client, error) {
	switch desc.Transport {
	case mcp.TransportStdio:
		c, err := client.NewStdioMCPClient(desc.Command, environ(desc.Env), desc.Args...)
		if err != nil {
			return nil, errors.Wrapf(err, "starting %s", desc.Command)
		}
		return c, nil

	case mcp.TransportHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(headers))
		}
		c, err := client.NewStreamableHttpClient(desc.URL, opts...)
		if err != nil {
			return nil, err
		}
		if err := c.Start(ctx); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	}

	return nil, errors.Newf("unsupported transport %q", desc.Transport)
}

// environ formats env as KEY=value pairs in a stable order.
func environ(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
