// Package dispatch hands resolved prompts to the chat surface.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

type Dispatcher interface {
	// Dispatch submits text to the chat surface.
	Dispatch(ctx context.Context, text string) error
}

// Command formats the slash command that runs a stored prompt: "/<name>
// <arguments>", or just "/<name>" when arguments is blank.
func Command(name, arguments string) string {
	if strings.TrimSpace(arguments) == "" {
		return "/" + name
	}
	return "/" + name + " " + arguments
}

// WriterDispatcher prints each dispatched text on its own line, for hosts
// that read the chat input from a pipe.
type WriterDispatcher struct {
	Out io.Writer
}

var _ Dispatcher = &WriterDispatcher{}

func (d *WriterDispatcher) Dispatch(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(d.Out, text); err != nil {
		return errors.Wrap(err, "writing chat command")
	}
	return nil
}
