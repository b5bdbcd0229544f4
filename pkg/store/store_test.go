package store

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	s := New("/var/prompts")

	tests := map[string]struct {
		segments []string
		want     string
	}{
		"root":    {want: "/var/prompts"},
		"file":    {segments: []string{"review.prompt.md"}, want: filepath.Join("/var/prompts", "review.prompt.md")},
		"nested":  {segments: []string{"a", "b.md"}, want: filepath.Join("/var/prompts", "a", "b.md")},
		"cleaned": {segments: []string{"a", "..", "b.md"}, want: filepath.Join("/var/prompts", "b.md")},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.Path(tc.segments...))
		})
	}
}

func TestEnsureDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "prompts")
	s := New(root)

	ok, err := s.Exists()
	require.NoError(t, err)
	require.False(t, ok)

	created, err := s.EnsureDir()
	require.NoError(t, err)
	assert.True(t, created, "first EnsureDir() reported no creation")
	assert.DirExists(t, root)

	created, err = s.EnsureDir()
	require.NoError(t, err)
	assert.False(t, created, "second EnsureDir() reported a creation")

	created, err = s.EnsureDir("nested", "deeper")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestWriteFile(t *testing.T) {
	s := New(t.TempDir())

	for _, content := range []string{"first version", "second"} {
		require.NoError(t, s.WriteFile([]byte(content), "review.prompt.md"))
		got, err := os.ReadFile(s.Path("review.prompt.md"))
		require.NoError(t, err)
		assert.Equal(t, content, string(got))
	}

	assert.Error(t, s.WriteFile([]byte("x"), "missing-dir", "review.prompt.md"))
}

func TestCopyFile(t *testing.T) {
	srcDir := t.TempDir()
	short := filepath.Join(srcDir, "short.md")
	long := filepath.Join(srcDir, "long.md")
	require.NoError(t, os.WriteFile(short, []byte("short"), 0o644))
	require.NoError(t, os.WriteFile(long, []byte("a much longer prompt body"), 0o644))

	tests := map[string]struct {
		sources []string
		want    string
		wantErr bool
	}{
		"copies content": {
			sources: []string{short},
			want:    "short",
		},
		"shorter copy truncates": {
			sources: []string{long, short},
			want:    "short",
		},
		"missing source": {
			sources: []string{filepath.Join(srcDir, "absent.md")},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s := New(t.TempDir())
			var err error
			for _, src := range tc.sources {
				err = s.CopyFile(src, "copy.prompt.md")
			}
			if tc.wantErr {
				require.Error(t, err)
				ok, _ := s.Exists("copy.prompt.md")
				assert.False(t, ok, "failed copy left a destination file")
				return
			}
			require.NoError(t, err)
			got, err := os.ReadFile(s.Path("copy.prompt.md"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestHashFile(t *testing.T) {
	s := New(t.TempDir())
	data := []byte("Review the change.\n")
	require.NoError(t, s.WriteFile(data, "review.prompt.md"))

	sum := sha256.Sum256(data)

	got, err := s.HashFile("review.prompt.md")
	require.NoError(t, err)
	assert.Equal(t, "sha256:"+hex.EncodeToString(sum[:]), got)

	_, err = s.HashFile("absent.prompt.md")
	assert.True(t, os.IsNotExist(err), "got %v", err)
}
