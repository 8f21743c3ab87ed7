package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// accessibleEnvVar switches interactive prompts to plain line-based input.
const accessibleEnvVar = "ACCESSIBLE"

// errNeedsConfirmation is returned when a prompt would be required but
// stdin is not a terminal.
var errNeedsConfirmation = errors.New("confirmation required: stdin is not a terminal, pass --yes to proceed")

// IsAccessibleMode reports whether ACCESSIBLE is set.
func IsAccessibleMode() bool {
	return os.Getenv(accessibleEnvVar) != ""
}

// NewAccessibleForm creates a huh form that honors ACCESSIBLE, which screen
// readers handle better than the full TUI.
func NewAccessibleForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...)
	if IsAccessibleMode() {
		form = form.WithAccessible(true)
	}
	return form
}

// confirm asks a yes/no question. Aborting the form (ctrl-c, esc) counts as no.
func confirm(title, description string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) { //nolint:gosec // Fd fits in int on supported platforms
		return false, errNeedsConfirmation
	}

	var confirmed bool
	form := NewAccessibleForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get confirmation: %w", err)
	}
	return confirmed, nil
}
