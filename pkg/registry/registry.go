// Package registry reads and writes the user-level MCP server registry
// shared with the editor.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"

	"github.com/cockroachdb/errors"
)

const (
	configFilePerms = 0o644

	serversKey = "servers"
	inputsKey  = "inputs"
)

// Registry is an in-memory snapshot of the registry file. Keys other than
// servers and inputs are carried through unchanged.
type Registry struct {
	path   string
	config map[string]any
}

// Load reads the registry at path. An absent file is an empty registry.
func Load(path string) (*Registry, error) {
	config := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to read %q", path)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %q as json", path)
		}
	}
	if config == nil {
		config = make(map[string]any)
	}

	return &Registry{path: path, config: config}, nil
}

func (r *Registry) Path() string {
	return r.path
}

// Has reports whether a server called name is registered.
func (r *Registry) Has(name string) bool {
	servers, ok := r.config[serversKey].(map[string]any)
	if !ok {
		return false
	}
	_, ok = servers[name]
	return ok
}

// Set records the transport config of the server called name, replacing
// any existing entry.
func (r *Registry) Set(name string, server map[string]any) {
	servers := getOrCreateMap(r.config, serversKey)
	servers[name] = server
}

// Servers lists the registered server names in order.
func (r *Registry) Servers() []string {
	servers, _ := r.config[serversKey].(map[string]any)
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Save writes the registry through a temp file in the same directory so
// readers never see a partial file.
func (r *Registry) Save() error {
	if _, ok := r.config[inputsKey]; !ok {
		r.config[inputsKey] = []any{}
	}
	getOrCreateMap(r.config, serversKey)

	data, err := json.MarshalIndent(r.config, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal registry")
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", r.path)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %q", r.path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %q", tmp.Name())
	}
	if err := tmp.Chmod(configFilePerms); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to set permissions on %q", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %q", tmp.Name())
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return errors.Wrapf(err, "failed to replace %q", r.path)
	}

	return nil
}

func getOrCreateMap(parent map[string]any, key string) map[string]any {
	if v, ok := parent[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}

	m := make(map[string]any)
	parent[key] = m

	return m
}
