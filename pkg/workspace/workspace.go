// Package workspace parses the directive that decides which folder a prompt
// runs against.
package workspace

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

var ErrInvalidWorkspaceDirective = errors.New("invalid workspace directive")

const selectKeyword = "select"

// Directive is a parsed workspace directive. The zero value means the
// current folder.
type Directive struct {
	// Select asks the user to pick a folder before the prompt runs.
	Select bool
	// Message is shown by the folder picker. It may be empty.
	Message string
}

// Parse accepts "", "select" and "select:<urlencoded message>".
func Parse(directive string) (Directive, error) {
	if directive == "" {
		return Directive{}, nil
	}
	if directive == selectKeyword {
		return Directive{Select: true}, nil
	}

	encoded, ok := strings.CutPrefix(directive, selectKeyword+":")
	if !ok {
		return Directive{}, errors.WithHint(
			errors.Wrapf(ErrInvalidWorkspaceDirective, "%q", directive),
			`use "select" or "select:<message>"`,
		)
	}

	msg, err := url.QueryUnescape(encoded)
	if err != nil {
		return Directive{}, errors.Wrapf(errors.Mark(err, ErrInvalidWorkspaceDirective), "decoding message in %q", directive)
	}
	return Directive{Select: true, Message: msg}, nil
}
