package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	t.Cleanup(func() {
		SetOutput(os.Stdout, os.Stderr)
	})
	return &out, &errOut
}

func TestEchoWritesToStdout(t *testing.T) {
	out, errOut := captureOutput(t)

	Echo("deploy done")

	assert.Equal(t, "deploy done\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestStatusMessagesArePrefixedOnStderr(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	out, errOut := captureOutput(t)

	Info("pulling images")
	Warning("stack file missing")
	Error("deploy failed")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "INFO: pulling images\n")
	assert.Contains(t, errOut.String(), "WARNING: stack file missing\n")
	assert.Contains(t, errOut.String(), "ERROR: deploy failed\n")
}
