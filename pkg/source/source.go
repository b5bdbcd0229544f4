package source

import (
	"context"

	"github.com/agentpkg/promptrun/pkg/store"
	"github.com/cockroachdb/errors"
)

var (
	// ErrSourceNotFound is returned when the prompt file does not exist at
	// its source.
	ErrSourceNotFound = errors.New("prompt source not found")

	// ErrNotRetrievable is returned for addresses whose prompt is rendered
	// remotely instead of retrieved.
	ErrNotRetrievable = errors.New("address is not retrievable")
)

type Source interface {
	// Fetch retrieves the prompt into storage. Installed prompts are left
	// where they are and resolve to an empty Path.
	Fetch(ctx context.Context, prompts *store.Prompts) (*Resolved, error)
}

type Resolved struct {
	Name string // Prompt name used for storage and dispatch
	Path string // Stored file, <storage>/<Name>.prompt.md
}

// InstalledSource refers to a prompt the chat surface already knows by name.
type InstalledSource struct {
	Name string
}

var _ Source = &InstalledSource{}

func (i *InstalledSource) Fetch(ctx context.Context, prompts *store.Prompts) (*Resolved, error) {
	return &Resolved{Name: i.Name}, nil
}
