package session

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

const protectedResourcePath = "/.well-known/oauth-protected-resource"

// protectedResource is the RFC 9728 metadata document.
type protectedResource struct {
	Resource             string   `json:"resource"`
	AuthorizationServers []string `json:"authorization_servers"`
	ScopesSupported      []string `json:"scopes_supported"`
}

// metadataURL inserts the well-known path between host and path, as RFC
// 9728 section 3.1 describes.
func metadataURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	return u.Scheme + "://" + u.Host + protectedResourcePath + path, nil
}

// authHeaders probes endpoint for an authorization requirement. Servers
// that advertise nothing, or whose metadata cannot be read, are treated as
// public.
func (s *Session) authHeaders(ctx context.Context, endpoint string) (map[string]string, error) {
	metaURL, err := metadataURL(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing server url %q", endpoint)
	}

	body, err := s.HTTP.Get(ctx, metaURL, nil)
	if err != nil {
		s.Log.Debugw("No protected resource metadata, connecting without credentials", "url", metaURL, "error", err)
		return nil, nil
	}

	var meta protectedResource
	if err := json.Unmarshal(body, &meta); err != nil {
		s.Log.Debugw("Unreadable protected resource metadata, connecting without credentials", "url", metaURL, "error", err)
		return nil, nil
	}
	if len(meta.AuthorizationServers) == 0 {
		return nil, nil
	}

	if !s.recognized(meta.AuthorizationServers) {
		return nil, errors.WithHintf(
			errors.Wrapf(ErrUnsupportedAuthProvider, "%s requires %s", endpoint, strings.Join(meta.AuthorizationServers, ", ")),
			"supported identity providers: %s", strings.Join(s.IdentityProviders, ", "),
		)
	}

	scopes := s.Scopes
	if len(scopes) == 0 {
		scopes = meta.ScopesSupported
	}
	token, err := s.Broker.Token(ctx, scopes)
	if err != nil {
		return nil, errors.Wrapf(err, "obtaining token for %s", endpoint)
	}

	return map[string]string{"Authorization": "Bearer " + token}, nil
}

// recognized reports whether any of servers is hosted by a configured
// identity provider.
func (s *Session) recognized(servers []string) bool {
	for _, server := range servers {
		u, err := url.Parse(server)
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		for _, provider := range s.IdentityProviders {
			provider = strings.ToLower(provider)
			if host == provider || strings.HasSuffix(host, "."+provider) {
				return true
			}
		}
	}
	return false
}
