package source

import (
	"context"

	"github.com/agentpkg/promptrun/pkg/fetch"
	"github.com/agentpkg/promptrun/pkg/store"
	"github.com/cockroachdb/errors"
)

// URLSource downloads a prompt with a single unauthenticated GET.
type URLSource struct {
	Name string
	URL  string
	HTTP *fetch.Client
}

var _ Source = &URLSource{}

func (u *URLSource) Fetch(ctx context.Context, prompts *store.Prompts) (*Resolved, error) {
	body, err := u.HTTP.Get(ctx, u.URL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "downloading %s", u.URL)
	}

	path, err := prompts.Save(u.Name, body)
	if err != nil {
		return nil, err
	}

	return &Resolved{Name: u.Name, Path: path}, nil
}
