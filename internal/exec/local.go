package exec

import (
	"bytes"
	"os"
	osexec "os/exec"
	"strings"

	"github.com/KnpLabs/kitipy-continued/internal/errors"
)

// Local runs a command on the local machine, whatever mode the executor is
// in. This is particularly useful when the executor runs in remote mode but
// some checks are better done locally: probing a git tag before deploying
// it, or fetching the local git author name to log deployment events.
func (e *Executor) Local(cmd string, opts RunOpts) (*Result, error) {
	command := buildLocalCommand(cmd, opts.NoShell)

	cwd := opts.Cwd
	if cwd == "" {
		cwd = e.basedir
	}
	if cwd != "" {
		command.Dir = cwd
	}

	if len(opts.Env) > 0 {
		env := os.Environ()
		for k, v := range opts.Env {
			env = append(env, k+"="+v)
		}
		command.Env = env
	}

	if opts.Input != "" {
		command.Stdin = strings.NewReader(opts.Input)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	if opts.Pipe {
		command.Stdout = &stdoutBuf
		command.Stderr = &stderrBuf
	} else {
		command.Stdout = e.stdout
		command.Stderr = e.stderr
	}

	e.log.Debug("local: %s", cmd)

	result := &Result{Cmd: cmd}
	runErr := command.Run()
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	if runErr != nil {
		exitErr, ok := runErr.(*osexec.ExitError)
		if !ok {
			return nil, errors.WrapWithCode(runErr, errors.ErrExec,
				"Couldn't run the command locally: "+cmd,
				"Make sure the command exists and is executable")
		}
		result.ExitCode = exitErr.ExitCode()
	}

	if result.ExitCode != 0 && !opts.NoCheck {
		return result, &errors.CommandFailedError{
			Cmd:      cmd,
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
		}
	}

	return result, nil
}

// buildLocalCommand prepares the subprocess. Shell mode (the default) lets
// the user shell interpret pipes and redirects, like an interactive prompt
// would.
func buildLocalCommand(cmd string, noShell bool) *osexec.Cmd {
	if noShell {
		parts := strings.Fields(cmd)
		if len(parts) == 0 {
			return osexec.Command("")
		}
		return osexec.Command(parts[0], parts[1:]...)
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return osexec.Command(shell, "-c", cmd)
}
