package ui

import (
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Confirm asks the user a yes/no question. On a non-interactive stdin the
// question can't be asked and the answer is no.
func Confirm(title string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, nil
	}

	var proceed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(&proceed),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return proceed, nil
}

// ConfirmAndApply asks for confirmation and runs apply on a yes. The first
// return value reports whether the user accepted.
func ConfirmAndApply(title string, apply func() error) (bool, error) {
	proceed, err := Confirm(title)
	if err != nil || !proceed {
		return false, err
	}
	return true, apply()
}
