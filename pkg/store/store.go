package store

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const (
	dirPerm    = 0o755
	filePerm   = 0o644
	hashPrefix = "sha256:"
)

// Store is the set of file-system primitives the prompt store is built on.
type Store interface {
	// Path returns the absolute filesystem path for the given segments
	// joined under the store root. Does not create or verify the path.
	Path(segments ...string) string
	// Exists reports whether the path at the given segments exists.
	Exists(segments ...string) (bool, error)
	// EnsureDir creates the directory at segments (starting at store root),
	// including parents. It reports whether the directory had to be created.
	EnsureDir(segments ...string) (bool, error)
	// WriteFile writes data to the file at segments, replacing any existing
	// content. Parent directories must already exist.
	WriteFile(data []byte, segments ...string) error
	// CopyFile copies the file at src to segments, replacing any existing
	// content.
	CopyFile(src string, segments ...string) error
	// HashFile computes a "sha256:<hex>" digest of the file at segments.
	HashFile(segments ...string) (string, error)
}

func New(root string) Store {
	return &store{root: root}
}

type store struct {
	root string
}

var _ Store = &store{}

func (s *store) Path(segments ...string) string {
	return filepath.Join(append([]string{s.root}, segments...)...)
}

func (s *store) Exists(segments ...string) (bool, error) {
	_, err := os.Stat(s.Path(segments...))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *store) EnsureDir(segments ...string) (bool, error) {
	exists, err := s.Exists(segments...)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := os.MkdirAll(s.Path(segments...), dirPerm); err != nil {
		return false, err
	}
	return true, nil
}

func (s *store) WriteFile(data []byte, segments ...string) error {
	return os.WriteFile(s.Path(segments...), data, filePerm)
}

func (s *store) CopyFile(src string, segments ...string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dst := s.Path(segments...)
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	return out.Close()
}

func (s *store) HashFile(segments ...string) (string, error) {
	f, err := os.Open(s.Path(segments...))
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hashPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
