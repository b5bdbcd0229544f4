package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentpkg/promptrun/pkg/config"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memSettings map[string]any

func (m memSettings) Get(key string) any { return m[key] }

func (m memSettings) Set(key string, value any) error {
	m[key] = value
	return nil
}

type failingSettings struct {
	memSettings
	failures int
}

func (f *failingSettings) Set(key string, value any) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("settings file is locked")
	}
	return f.memSettings.Set(key, value)
}

type recordingNotifier struct {
	infos  []string
	errors []error
}

func (n *recordingNotifier) Info(msg string) { n.infos = append(n.infos, msg) }
func (n *recordingNotifier) Error(err error) { n.errors = append(n.errors, err) }

func TestPromptsSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	settings := memSettings{}
	notifier := &recordingNotifier{}
	p := NewPrompts(dir, settings, notifier, zap.NewNop().Sugar())

	path, err := p.Save("review", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "review.prompt.md"), path)

	_, err = p.Save("review", []byte("second"))
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	assert.Len(t, notifier.infos, 1)
	assert.Equal(t, []string{dir}, settings[config.PromptLocationsKey])
}

func TestPromptsRegistration(t *testing.T) {
	tests := map[string]struct {
		existing      []string
		precreate     bool
		wantLocations int
		wantNotified  bool
	}{
		"fresh directory merges with existing entries": {
			existing:      []string{"/other/prompts"},
			wantLocations: 2,
			wantNotified:  true,
		},
		"already listed is not duplicated": {
			wantLocations: 1,
			wantNotified:  false,
		},
		"existing unlisted directory is registered": {
			existing:      []string{"/other/prompts"},
			precreate:     true,
			wantLocations: 2,
			wantNotified:  true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "prompts")
			existing := tc.existing
			if existing == nil {
				existing = []string{dir}
			}
			settings := memSettings{config.PromptLocationsKey: existing}
			if tc.precreate {
				require.NoError(t, os.MkdirAll(dir, 0o755))
			}
			notifier := &recordingNotifier{}
			p := NewPrompts(dir, settings, notifier, zap.NewNop().Sugar())

			_, err := p.Save("a", []byte("x"))
			require.NoError(t, err)

			locations, _ := settings[config.PromptLocationsKey].([]string)
			assert.Len(t, locations, tc.wantLocations)
			assert.Contains(t, locations, dir)
			assert.Equal(t, tc.wantNotified, len(notifier.infos) > 0)
		})
	}
}

func TestPromptsRegistrationRetried(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	settings := &failingSettings{memSettings: memSettings{}, failures: 1}
	notifier := &recordingNotifier{}
	p := NewPrompts(dir, settings, notifier, zap.NewNop().Sugar())

	_, err := p.Save("review", []byte("first"))
	require.Error(t, err)
	assert.DirExists(t, dir)
	assert.Empty(t, notifier.infos)

	_, err = p.Save("review", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, settings.memSettings[config.PromptLocationsKey])
	assert.Len(t, notifier.infos, 1)

	_, err = p.Save("review", []byte("third"))
	require.NoError(t, err)
	assert.Len(t, notifier.infos, 1)
}

func TestPromptsCopyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	p := NewPrompts(dir, memSettings{}, &recordingNotifier{}, zap.NewNop().Sugar())

	src := filepath.Join(t.TempDir(), "local.prompt.md")
	require.NoError(t, os.WriteFile(src, []byte("# Local"), 0o644))

	path, err := p.CopyFile("local", src)
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Local", string(got))

	digest, err := p.Digest("local")
	require.NoError(t, err)
	assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, digest)
}
