package exec

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/KnpLabs/kitipy-continued/internal/util"
	"github.com/KnpLabs/kitipy-continued/pkg/sshutil"
	"golang.org/x/crypto/ssh"
)

// connect opens the SSH connection on first use and reuses it afterwards.
func (e *Executor) connect() (*sshutil.Client, error) {
	if e.client != nil {
		return e.client, nil
	}

	e.log.Debug("opening SSH connection to %s", e.hostname)
	client, err := sshutil.Dial(e.hostname, e.sshOpts)
	if err != nil {
		return nil, err
	}
	e.client = client
	return e.client, nil
}

// remote runs a command on the remote host, servicing stdout and stderr
// concurrently so neither stream can stall the other: a naive sequential
// read deadlocks as soon as the remote process fills one buffer while the
// other is starved.
func (e *Executor) remote(cmd string, opts RunOpts) (*Result, error) {
	if !e.IsRemote() {
		return nil, errors.New(errors.ErrExec,
			"This Executor is running in local mode, can't run a remote command: "+cmd,
			"Use Run on a remote stage, or Local explicitly")
	}

	client, err := e.connect()
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to create SSH session on '"+e.hostname+"'",
			"Connection may have been closed. Retry with a fresh executor.")
	}
	defer session.Close()

	cwd := opts.Cwd
	if cwd == "" {
		cwd = e.basedir
	}
	fullCmd := buildRemoteCommand(cmd, cwd, opts.Env)

	stdin, err := session.StdinPipe()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to open the remote stdin stream", "")
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to open the remote stdout stream", "")
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to open the remote stderr stream", "")
	}

	e.log.Debug("remote %s: %s", e.hostname, fullCmd)

	if err := session.Start(fullCmd); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrExec,
			"Failed to execute the remote command: "+cmd,
			"Check the command exists on the remote host")
	}

	if opts.Input != "" {
		if _, err := io.WriteString(stdin, opts.Input); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrTransport,
				"Failed to write to the remote stdin stream", "")
		}
	}
	// The command owns its stdin from here; closing signals EOF.
	stdin.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	outW, errW := io.Writer(&stdoutBuf), io.Writer(&stderrBuf)
	if !opts.Pipe {
		outW, errW = e.stdout, e.stderr
	}

	drainStreams(stdout, stderr, outW, errW)

	result := &Result{Cmd: cmd}
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	if waitErr := session.Wait(); waitErr != nil {
		var exitErr *ssh.ExitError
		if !stderrors.As(waitErr, &exitErr) {
			return nil, errors.WrapWithCode(waitErr, errors.ErrTransport,
				"The remote command didn't report an exit status: "+cmd,
				"The connection may have dropped mid-command")
		}
		result.ExitCode = exitErr.ExitStatus()
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

// drainStreams services both remote byte streams until each hits EOF,
// forwarding chunks in arrival order. Per-stream ordering is preserved;
// no ordering is guaranteed between the two streams. The loop keeps going
// after the remote process exits because buffered output can still be
// pending.
func drainStreams(stdout, stderr io.Reader, outW, errW io.Writer) {
	outCh := readChunks(stdout)
	errCh := readChunks(stderr)

	for outCh != nil || errCh != nil {
		select {
		case chunk, ok := <-outCh:
			if !ok {
				outCh = nil
				continue
			}
			outW.Write(chunk)
		case chunk, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			errW.Write(chunk)
		}
	}
}

// readChunks pumps a stream into a channel, one read per message. The
// channel closes when the stream is fully drained.
func readChunks(r io.Reader) <-chan []byte {
	ch := make(chan []byte)
	go func() {
		defer close(ch)
		buf := make([]byte, 32*1024)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				ch <- chunk
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// buildRemoteCommand embeds the working directory and environment into the
// command string itself. Carrying the cd with every exec makes the working
// directory an explicit invariant: consecutive Run calls observe the same
// basedir even if the underlying transport reconnects between them.
func buildRemoteCommand(cmd, cwd string, env map[string]string) string {
	var parts []string

	if cwd != "" {
		parts = append(parts, "cd "+util.ShellQuotePreserveTilde(cwd))
	}

	if len(env) > 0 {
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var exports strings.Builder
		for _, k := range keys {
			exports.WriteString(fmt.Sprintf("export %s=%s; ", k, util.ShellQuote(env[k])))
		}
		cmd = exports.String() + cmd
	}

	parts = append(parts, cmd)
	return strings.Join(parts, " && ")
}
