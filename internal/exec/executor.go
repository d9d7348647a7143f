// Package exec provides the Executor, a common abstraction to run commands
// and manipulate files on both the local machine and remote hosts. Remote
// mode drives an SSH/SFTP connection lazily opened on first use; local mode
// spawns subprocesses. The mode is fixed at construction time.
package exec

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/KnpLabs/kitipy-continued/internal/dispatch"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/KnpLabs/kitipy-continued/internal/logger"
	"github.com/KnpLabs/kitipy-continued/internal/util"
	"github.com/KnpLabs/kitipy-continued/pkg/sshutil"
	"github.com/pkg/sftp"
)

// Result describes one finished command. Stdout/Stderr are always non-nil
// strings: empty when the command produced nothing or when output was
// streamed instead of piped.
type Result struct {
	Cmd      string
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunOpts tune a single Run/Local call. The zero value means: inherit the
// executor basedir as working directory, stream output to the terminal, and
// fail on nonzero exit.
type RunOpts struct {
	// Env vars added on top of the inherited environment.
	Env map[string]string

	// Cwd overrides the executor basedir for this command only.
	Cwd string

	// Input is written to the command standard input.
	Input string

	// Pipe captures stdout/stderr into the Result instead of streaming them
	// to the terminal. When false, the Result carries empty strings in both
	// modes so callers see consistent behavior locally and remotely.
	Pipe bool

	// NoCheck turns off exit status checking: a nonzero exit code is
	// returned as data instead of a CommandFailedError.
	NoCheck bool

	// NoShell runs the command directly instead of through the shell.
	// Only honored in local mode.
	NoShell bool
}

// Executor runs commands and transfers files on one execution target. An
// Executor is either local or remote for its whole lifetime: the mode is
// fixed by the presence of a hostname at construction.
type Executor struct {
	basedir    string
	dispatcher *dispatch.Dispatcher
	log        logger.Logger

	hostname string
	sshOpts  sshutil.Options

	// Lazily opened connection handles, owned exclusively by this Executor.
	client *sshutil.Client
	sftpc  *sftp.Client

	// Stream destinations for non-pipe mode; swappable in tests.
	stdout io.Writer
	stderr io.Writer
}

// NewLocal creates an Executor running commands on the local machine.
func NewLocal(basedir string, dispatcher *dispatch.Dispatcher) *Executor {
	return &Executor{
		basedir:    basedir,
		dispatcher: dispatcher,
		log:        logger.NewEnvLogger("[exec]"),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
}

// NewRemote creates an Executor running commands on a remote host over SSH.
// The connection is opened lazily, when the first command runs or the first
// file is copied.
func NewRemote(basedir, hostname string, dispatcher *dispatch.Dispatcher, sshOpts sshutil.Options) *Executor {
	return &Executor{
		basedir:    basedir,
		dispatcher: dispatcher,
		log:        logger.NewEnvLogger("[exec]"),
		hostname:   hostname,
		sshOpts:    sshOpts,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
}

// SetLogger replaces the executor's logger. Callers inject a buffer logger
// to capture the command trace in tests, or a noop logger to silence it.
func (e *Executor) SetLogger(l logger.Logger) {
	if l != nil {
		e.log = l
	}
}

// IsLocal reports whether commands run on the local machine.
func (e *Executor) IsLocal() bool {
	return e.hostname == ""
}

// IsRemote reports whether commands run on a remote host.
func (e *Executor) IsRemote() bool {
	return e.hostname != ""
}

// Hostname returns the remote hostname, or "" for local executors.
func (e *Executor) Hostname() string {
	return e.hostname
}

// Basedir returns the current working directory commands run in.
func (e *Executor) Basedir() string {
	return e.basedir
}

// SetHostKeyPolicy replaces the policy applied when the remote host key is
// unknown. It has to be called before the first command runs or the first
// file is copied: once the connection is open the policy already served.
func (e *Executor) SetHostKeyPolicy(policy sshutil.HostKeyPolicy) error {
	if e.client != nil {
		return errors.New(errors.ErrConfig,
			"Host key policy can't be replaced once the SSH connection is open",
			"Set the policy before running any command or copying any file")
	}
	e.sshOpts.HostKeyPolicy = policy
	return nil
}

// Run executes the command on the executor target, local or remote depending
// on how the executor was built.
func (e *Executor) Run(cmd string, opts RunOpts) (*Result, error) {
	if e.IsRemote() {
		return e.remote(cmd, opts)
	}
	return e.Local(cmd, opts)
}

// Cd changes the directory subsequent commands run in. Relative paths are
// resolved against the current basedir; absolute (and ~-rooted) paths
// replace it outright.
func (e *Executor) Cd(dir string) {
	if path.IsAbs(dir) || strings.HasPrefix(dir, "~") {
		e.basedir = dir
		return
	}
	e.basedir = path.Join(e.basedir, dir)
}

// PathExists checks whether the given path exists on the execution target.
func (e *Executor) PathExists(p string) (bool, error) {
	if e.IsLocal() {
		if !path.IsAbs(p) {
			p = path.Join(e.basedir, p)
		}
		_, err := os.Stat(p)
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	res, err := e.remote(fmt.Sprintf("ls %s 1>/dev/null 2>&1", util.ShellQuotePreserveTilde(p)), RunOpts{
		Pipe:    true,
		NoCheck: true,
	})
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

// MkTempDir creates a temporary directory with a unique name on the
// execution target and returns its path. It's the caller's responsibility to
// clean the directory up.
func (e *Executor) MkTempDir(suffix, prefix, dir string) (string, error) {
	if e.IsLocal() {
		name, err := os.MkdirTemp(dir, prefix+"*"+suffix)
		if err != nil {
			return "", errors.WrapWithCode(err, errors.ErrExec,
				"Couldn't create a local temporary directory",
				"Check the temp directory is writable")
		}
		return name, nil
	}

	if dir == "" {
		dir = "/tmp"
	}
	tpl := path.Join(dir, prefix+"XXXXXXXX"+suffix)
	res, err := e.remote(fmt.Sprintf("mktemp -d %s", util.ShellQuote(tpl)), RunOpts{Pipe: true})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Close tears down the SSH/SFTP connections when the Executor is discarded.
// A closed Executor can't be reused: a broken or discarded connection
// requires a new Executor.
func (e *Executor) Close() error {
	var firstErr error
	if e.sftpc != nil {
		if err := e.sftpc.Close(); err != nil {
			firstErr = err
		}
		e.sftpc = nil
	}
	if e.client != nil {
		if err := e.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.client = nil
	}
	return firstErr
}

// SetOutput redirects non-pipe command output. Meant for tests.
func (e *Executor) SetOutput(stdout, stderr io.Writer) {
	e.stdout = stdout
	e.stderr = stderr
}
