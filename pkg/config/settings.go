package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	// SettingsFileName holds host settings that prun itself mutates, kept
	// apart from the user-edited config.toml.
	SettingsFileName = "settings.toml"

	// PromptLocationsKey lists the directories the chat surface scans for
	// prompt files.
	PromptLocationsKey = "prompt_locations"
)

// Settings is a persistent key-value store.
type Settings interface {
	Get(key string) any
	Set(key string, value any) error
}

// StringSlice reads key from s as a list of strings.
func StringSlice(s Settings, key string) []string {
	return cast.ToStringSlice(s.Get(key))
}

// FileSettings is a Settings backed by a TOML file. Every Set rewrites the
// file.
type FileSettings struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

var _ Settings = &FileSettings{}

// OpenSettings loads the settings file at path. A missing file yields empty
// settings.
func OpenSettings(path string) (*FileSettings, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(path)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", path)
	}

	return &FileSettings{path: path, v: v}, nil
}

func (s *FileSettings) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.Get(key)
}

func (s *FileSettings) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key, value)

	data, err := toml.Marshal(s.v.AllSettings())
	if err != nil {
		return errors.Wrap(err, "marshaling settings")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(s.path))
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", s.path)
	}
	return nil
}
