package source

import (
	"context"
	"os"
	"path/filepath"

	"github.com/agentpkg/promptrun/pkg/store"
	"github.com/cockroachdb/errors"
)

type LocalSource struct {
	Name string
	Path string
}

var _ Source = &LocalSource{}

func (l *LocalSource) Fetch(ctx context.Context, prompts *store.Prompts) (*Resolved, error) {
	absPath, err := filepath.Abs(l.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving absolute path for %q", l.Path)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrSourceNotFound, "local prompt %s", absPath)
		}
		return nil, errors.Wrapf(err, "checking local prompt %s", absPath)
	}
	if info.IsDir() {
		return nil, errors.Newf("local prompt path is a directory: %s", absPath)
	}

	path, err := prompts.CopyFile(l.Name, absPath)
	if err != nil {
		return nil, err
	}

	return &Resolved{Name: l.Name, Path: path}, nil
}
