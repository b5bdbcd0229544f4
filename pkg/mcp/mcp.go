package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Descriptor declares an auxiliary MCP server a prompt needs. It is
// supplied by the caller together with the prompt address.
type Descriptor struct {
	Name      string            `json:"name"`
	Transport string            `json:"type"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	URL       string            `json:"url,omitempty"`
	Env       map[string]string `json:"env,omitempty"`

	// Package, when set, is installed with the package manager before the
	// server is registered.
	Package    string `json:"package,omitempty"`
	Version    string `json:"version,omitempty"`
	Feed       string `json:"feed,omitempty"`
	Prerelease bool   `json:"prerelease,omitempty"`
}

// ParseDescriptors decodes a JSON object or an array of objects. An empty
// payload yields no descriptors.
func ParseDescriptors(payload string) ([]Descriptor, error) {
	data := bytes.TrimSpace([]byte(payload))
	if len(data) == 0 {
		return nil, nil
	}

	var descs []Descriptor
	if data[0] == '{' {
		var d Descriptor
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, errors.Wrap(err, "failed to parse server descriptor")
		}
		descs = []Descriptor{d}
	} else if err := json.Unmarshal(data, &descs); err != nil {
		return nil, errors.Wrap(err, "failed to parse server descriptors")
	}

	for i := range descs {
		descs[i].normalize()
		if err := descs[i].Validate(); err != nil {
			return nil, err
		}
	}

	return descs, nil
}

func (d *Descriptor) normalize() {
	d.Transport = strings.ToLower(strings.TrimSpace(d.Transport))
	if d.Transport == "" {
		if d.URL != "" && d.Command == "" {
			d.Transport = TransportHTTP
		} else {
			d.Transport = TransportStdio
		}
	}
}

func (d Descriptor) Validate() error {
	if d.Name == "" {
		return errors.New("server descriptor is missing a name")
	}

	switch d.Transport {
	case TransportStdio:
		if d.Command == "" {
			return errors.Newf("stdio server %q has no command", d.Name)
		}
		if d.URL != "" {
			return errors.Newf("stdio server %q must not set a url", d.Name)
		}
	case TransportHTTP:
		if d.URL == "" {
			return errors.Newf("http server %q has no url", d.Name)
		}
		if d.Command != "" {
			return errors.Newf("http server %q must not set a command", d.Name)
		}
	default:
		return errors.Newf("server %q has unsupported transport %q", d.Name, d.Transport)
	}

	return nil
}

// HasPackage reports whether the server must be installed before use.
func (d Descriptor) HasPackage() bool {
	return d.Package != ""
}

// Summary is a human-readable description used in confirmations.
func (d Descriptor) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Server:    %s (%s)\n", d.Name, d.Transport)
	if d.Command != "" {
		fmt.Fprintf(&b, "Command:   %s\n", strings.TrimSpace(d.Command+" "+strings.Join(d.Args, " ")))
	}
	if d.URL != "" {
		fmt.Fprintf(&b, "URL:       %s\n", d.URL)
	}
	if d.HasPackage() {
		fmt.Fprintf(&b, "Package:   %s\n", d.Package)
		if d.Version != "" {
			fmt.Fprintf(&b, "Version:   %s\n", d.Version)
		}
		if d.Feed != "" {
			fmt.Fprintf(&b, "Feed:      %s\n", d.Feed)
		}
		if d.Prerelease {
			b.WriteString("Prerelease versions allowed\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// TransportConfig is the registry entry for the server.
func (d Descriptor) TransportConfig() map[string]any {
	config := map[string]any{"type": d.Transport}

	if d.Transport == TransportStdio {
		config["command"] = d.Command
		if len(d.Args) > 0 {
			config["args"] = d.Args
		}
		if len(d.Env) > 0 {
			config["env"] = d.Env
		}
	} else {
		config["url"] = d.URL
	}

	return config
}

// Find returns the descriptor called name.
func Find(descs []Descriptor, name string) (Descriptor, bool) {
	for _, d := range descs {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
