// Package interact holds the user-facing surfaces: confirmation, workspace
// selection and notifications.
package interact

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
)

// ErrUserCancelled signals that the user declined or dismissed a prompt. It
// is not a fault: callers stop the request and report nothing.
var ErrUserCancelled = errors.New("cancelled by user")

// ConfirmRequest is the structured description shown to the user.
type ConfirmRequest struct {
	Title  string
	Detail string
	// Accept is the label of the affirmative choice.
	Accept string
}

type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

type Picker interface {
	// Pick asks the user for a workspace folder. Dismissal returns
	// ErrUserCancelled.
	Pick(ctx context.Context, message string) (string, error)
}

type Notifier interface {
	Info(msg string)
	Error(err error)
}

// HuhConfirmer asks on the terminal.
type HuhConfirmer struct{}

var _ Confirmer = HuhConfirmer{}

func (HuhConfirmer) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	accept := req.Accept
	if accept == "" {
		accept = "Yes"
	}

	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(req.Title).
				Description(req.Detail).
				Affirmative(accept).
				Negative("Cancel").
				Value(&ok),
		),
	).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "confirmation prompt failed")
	}
	return ok, nil
}

// AutoConfirmer answers every request with Answer, for --yes and tests.
type AutoConfirmer struct {
	Answer bool
}

var _ Confirmer = AutoConfirmer{}

func (a AutoConfirmer) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	return a.Answer, nil
}

// HuhPicker asks for a folder path on the terminal.
type HuhPicker struct{}

var _ Picker = HuhPicker{}

func (HuhPicker) Pick(ctx context.Context, message string) (string, error) {
	title := message
	if title == "" {
		title = "Select a workspace folder"
	}

	var dir string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Placeholder(".").
				Value(&dir).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					info, err := os.Stat(s)
					if err != nil || !info.IsDir() {
						return errors.Newf("%s is not a directory", s)
					}
					return nil
				}),
		),
	).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return "", ErrUserCancelled
	}
	if err != nil {
		return "", errors.Wrap(err, "workspace prompt failed")
	}
	if dir == "" {
		dir = "."
	}
	return dir, nil
}

// PtermNotifier prints notifications with pterm prefixes. Error hints
// attached with errors.WithHint are printed below the message.
type PtermNotifier struct {
	Out io.Writer
}

var _ Notifier = &PtermNotifier{}

func NewPtermNotifier(out io.Writer) *PtermNotifier {
	return &PtermNotifier{Out: out}
}

func (n *PtermNotifier) Info(msg string) {
	pterm.Info.WithWriter(n.Out).Println(msg)
}

func (n *PtermNotifier) Error(err error) {
	pterm.Error.WithWriter(n.Out).Println(err.Error())
	if hint := errors.FlattenHints(err); hint != "" {
		for _, line := range strings.Split(hint, "\n") {
			pterm.Fprintln(n.Out, pterm.Gray("  hint: "+line))
		}
	}
}
