package ui

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

func requireNonInteractiveStdin(t *testing.T) {
	t.Helper()
	if term.IsTerminal(int(os.Stdin.Fd())) {
		t.Skip("stdin is a terminal")
	}
}

func TestConfirmAnswersNoWithoutTerminal(t *testing.T) {
	requireNonInteractiveStdin(t)

	proceed, err := Confirm("Remove the stack?")
	require.NoError(t, err)
	assert.False(t, proceed)
}

func TestConfirmAndApplySkipsApplyOnNo(t *testing.T) {
	requireNonInteractiveStdin(t)

	applied := false
	proceed, err := ConfirmAndApply("Remove the stack?", func() error {
		applied = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, proceed)
	assert.False(t, applied)
}
