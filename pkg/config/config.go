package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// DirName is the per-user directory holding config, settings and the
	// prompt store.
	DirName = ".prun"

	// ConfigFileName is used for the global config (~/.prun/config.toml).
	ConfigFileName = "config.toml"

	// LocalConfigFile is the project-local override, not meant to be
	// committed.
	LocalConfigFile = "prun.local.toml"

	envPrefix = "PRUN"
)

// Config holds the resolved runtime configuration. It is resolved with Viper
// precedence: flags > PRUN_* environment > prun.local.toml >
// ~/.prun/config.toml > defaults.
type Config struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	StorageRoot    string        `mapstructure:"storage_root"`
	RegistryPath   string        `mapstructure:"registry_path"`
	SettingsPath   string        `mapstructure:"settings_path"`
	Branch         string        `mapstructure:"branch"`
	PackageManager string        `mapstructure:"package_manager"`
	Auth           AuthConfig    `mapstructure:"auth"`
}

type AuthConfig struct {
	// Token is a pre-issued bearer token. It is only read from the
	// environment (PRUN_TOKEN or PRUN_AUTH_TOKEN) and never written to disk.
	Token             string   `mapstructure:"token"`
	TokenCommand      string   `mapstructure:"token_command"`
	Scopes            []string `mapstructure:"scopes"`
	IdentityProviders []string `mapstructure:"identity_providers"`
}

// Defaults are used for every key no config file, environment variable or
// flag sets.
func Defaults(home string) map[string]any {
	return map[string]any{
		"timeout":         "60s",
		"storage_root":    filepath.Join(home, DirName),
		"registry_path":   defaultRegistryPath(home),
		"settings_path":   filepath.Join(home, DirName, SettingsFileName),
		"branch":          "main",
		"package_manager": "dotnet",
		"auth": map[string]any{
			"token":              "",
			"token_command":      "",
			"scopes":             []string{"499b84ac-1321-427f-aa17-267ca6975798/.default"},
			"identity_providers": []string{"login.microsoftonline.com"},
		},
	}
}

// FileDefaults are the defaults as written to a config file by `prun init`;
// secrets are left out.
func FileDefaults(home string) map[string]any {
	values := Defaults(home)
	if auth, ok := values["auth"].(map[string]any); ok {
		delete(auth, "token")
	}
	return values
}

// Load resolves the configuration for the current user and working
// directory. overrides carries flag values and takes highest precedence.
func Load(overrides map[string]any) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "determining home directory")
	}
	globalPath := filepath.Join(home, DirName, ConfigFileName)
	return load(home, overrides, globalPath, LocalConfigFile)
}

// load accepts explicit paths, making it testable without touching the real
// home directory.
func load(home string, overrides map[string]any, globalPath, localPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	for key, value := range flatten("", Defaults(home)) {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("auth.token", "PRUN_AUTH_TOKEN", "PRUN_TOKEN"); err != nil {
		return nil, errors.Wrap(err, "binding token environment")
	}

	// Lowest file priority: global config. Missing is fine.
	if _, err := os.Stat(globalPath); err == nil {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading %s", globalPath)
		}
	}

	if _, err := os.Stat(localPath); err == nil {
		v.SetConfigFile(localPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading %s", localPath)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	cfg.StorageRoot = expandHome(home, cfg.StorageRoot)
	cfg.RegistryPath = expandHome(home, cfg.RegistryPath)
	cfg.SettingsPath = expandHome(home, cfg.SettingsPath)

	return cfg, nil
}

// PromptDir is the directory prompts are stored in.
func (c *Config) PromptDir() string {
	return filepath.Join(c.StorageRoot, "prompts")
}

// GlobalConfigDir returns the path to ~/.prun, creating it if necessary.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "determining home directory")
	}
	dir := filepath.Join(home, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}
	return dir, nil
}

// WriteFile persists values as TOML at path. An existing file is only
// replaced when force is set.
func WriteFile(path string, values map[string]any, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Newf("%s already exists", path)
	}

	data, err := toml.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// defaultRegistryPath is the user-level MCP server registry shared with the
// editor, outside the prun directory.
func defaultRegistryPath(home string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "Code", "User", "mcp.json")
}

func expandHome(home, path string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// flatten turns nested maps into viper's dotted keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}
