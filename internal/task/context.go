package task

import (
	"sort"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/dispatch"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/KnpLabs/kitipy-continued/internal/exec"
	"github.com/KnpLabs/kitipy-continued/internal/logger"
	"github.com/KnpLabs/kitipy-continued/internal/ui"
	"github.com/KnpLabs/kitipy-continued/pkg/sshutil"
)

// Stack is the capability interface a deployment stack exposes to tasks.
// Implementations shell out through the context's executor, so the same
// task works against a local compose stack or a remote swarm.
type Stack interface {
	Name() string
	Kind() string
	BaseDir() string
	Build(k *Context, flags map[string]interface{}) error
	Push(k *Context, flags map[string]interface{}) error
	Up(k *Context, flags map[string]interface{}) error
	Down(k *Context, flags map[string]interface{}) error
	Ps(k *Context, flags map[string]interface{}) error
	Logs(k *Context, services []string, flags map[string]interface{}) error
	Exec(k *Context, service, cmd string, flags map[string]interface{}) error
	Run(k *Context, service, cmd string, flags map[string]interface{}) (*exec.Result, error)
	Inspect(k *Context) (*exec.Result, error)
}

// StackLoader turns a stack descriptor from the configuration into a live
// Stack handle. Injected into the Context so the tree engine doesn't depend
// on any concrete stack engine.
type StackLoader func(k *Context, cfg *config.StackConfig) (Stack, error)

// Context carries everything a task callback needs: the configuration, the
// active stage and stack, the executor bound to that stage, and the event
// dispatcher. There is exactly one live Context per invocation; stage and
// stack scoped groups mutate it as they are entered.
type Context struct {
	config     *config.Config
	stage      *config.Stage
	stack      Stack
	executor   *exec.Executor
	dispatcher *dispatch.Dispatcher
	loadStack  StackLoader
	log        logger.Logger

	hostKeyPolicy sshutil.HostKeyPolicy
}

// NewContext wires a context around an existing executor. Most callers go
// through NewRoot instead, which also picks the default stage.
func NewContext(cfg *config.Config, stage *config.Stage, executor *exec.Executor, dispatcher *dispatch.Dispatcher, loader StackLoader) *Context {
	return &Context{
		config:     cfg,
		stage:      stage,
		executor:   executor,
		dispatcher: dispatcher,
		loadStack:  loader,
	}
}

// SetLogger routes the context's command trace through the given logger,
// including on every executor created by later stage switches.
func (k *Context) SetLogger(l logger.Logger) {
	k.log = l
	if k.executor != nil {
		k.executor.SetLogger(l)
	}
}

func (k *Context) Config() *config.Config         { return k.config }
func (k *Context) Stage() *config.Stage           { return k.stage }
func (k *Context) Stack() Stack                   { return k.stack }
func (k *Context) Executor() *exec.Executor       { return k.executor }
func (k *Context) Dispatcher() *dispatch.Dispatcher { return k.dispatcher }

// StageNames returns the configured stage names, sorted.
func (k *Context) StageNames() []string {
	names := make([]string, 0, len(k.config.Stages))
	for name := range k.config.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StackNames returns the configured stack names, sorted.
func (k *Context) StackNames() []string {
	names := make([]string, 0, len(k.config.Stacks))
	for name := range k.config.Stacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithStage switches the context to the named stage, swapping both the stage
// descriptor and the executor in one step. The previous executor is closed
// outright: no two stages ever share a connection.
func (k *Context) WithStage(name string) error {
	stage, ok := k.config.Stages[name]
	if !ok {
		return errors.New(errors.ErrConfig,
			"Stage '"+name+"' not found in the configuration",
			"Declare it under the 'stages' key of kitipy.yaml")
	}

	executor, err := NewExecutor(stage, k.config, k.dispatcher, k.hostKeyPolicy)
	if err != nil {
		return err
	}
	if k.log != nil {
		executor.SetLogger(k.log)
	}

	if k.executor != nil {
		k.executor.Close()
	}
	k.stage = stage
	k.executor = executor
	return nil
}

// WithStack loads the named stack and moves the executor into its base
// directory. The handle is reloaded on every call; it is never cached across
// stage switches.
func (k *Context) WithStack(name string) error {
	cfg, ok := k.config.Stacks[name]
	if !ok {
		return errors.New(errors.ErrConfig,
			"Stack '"+name+"' not found in the configuration",
			"Declare it under the 'stacks' key of kitipy.yaml")
	}
	if k.loadStack == nil {
		return errors.New(errors.ErrConfig,
			"No stack loader configured",
			"Pass a StackLoader when building the root command")
	}

	stack, err := k.loadStack(k, cfg)
	if err != nil {
		return err
	}
	k.stack = stack
	if cfg.Basedir != "" {
		k.Cd(cfg.Basedir)
	}
	return nil
}

// Run executes a command on the active stage, local or remote. The stage's
// configured environment applies underneath any per-call environment.
func (k *Context) Run(cmd string, opts exec.RunOpts) (*exec.Result, error) {
	if k.stage != nil && len(k.stage.Env) > 0 {
		opts.Env = mergeEnv(k.stage.Env, opts.Env)
	}
	return k.executor.Run(cmd, opts)
}

func mergeEnv(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range override {
		merged[key] = value
	}
	return merged
}

// Local executes a command on the local machine, whatever the active stage.
func (k *Context) Local(cmd string, opts exec.RunOpts) (*exec.Result, error) {
	return k.executor.Local(cmd, opts)
}

// Cd changes the executor's working directory.
func (k *Context) Cd(dir string) {
	k.executor.Cd(dir)
}

// Copy transfers a local file to the active stage.
func (k *Context) Copy(localPath, destPath string) error {
	return k.executor.Copy(localPath, destPath)
}

// PathExists probes the active stage for a path.
func (k *Context) PathExists(path string) (bool, error) {
	return k.executor.PathExists(path)
}

// MkTempDir creates a temporary directory on the active stage.
func (k *Context) MkTempDir(suffix, prefix, dir string) (string, error) {
	return k.executor.MkTempDir(suffix, prefix, dir)
}

// Invoke runs another node's callback with this context, so one task can
// compose another without going through command-line dispatch. Filters are
// deliberately not re-checked: the caller already passed its own.
func (k *Context) Invoke(node Node, args ...string) error {
	callback := node.cb()
	if callback == nil {
		return &errors.TaskInvocationError{Name: node.Name()}
	}
	return callback(k, args)
}

// Echo prints a plain message to stdout.
func (k *Context) Echo(msg string) {
	ui.Echo(msg)
}

// Info prints an INFO-prefixed message to stderr.
func (k *Context) Info(msg string) {
	ui.Info(msg)
}

// Warning prints a WARNING-prefixed message to stderr.
func (k *Context) Warning(msg string) {
	ui.Warning(msg)
}

// Error prints an ERROR-prefixed message to stderr.
func (k *Context) Error(msg string) {
	ui.Error(msg)
}

// Fail aborts the whole invocation with a user-visible message and the given
// process exit code.
func (k *Context) Fail(msg string, exitCode int) error {
	return errors.NewTaskError(msg, exitCode)
}

// NewExecutor builds the executor matching a stage descriptor. Remote stages
// get the SSH settings from the configuration: the OpenSSH config file path
// plus any transport overrides.
func NewExecutor(stage *config.Stage, cfg *config.Config, dispatcher *dispatch.Dispatcher, policy sshutil.HostKeyPolicy) (*exec.Executor, error) {
	if stage.IsLocal() {
		return exec.NewLocal(stage.Basedir, dispatcher), nil
	}
	if stage.Hostname == "" {
		return nil, errors.New(errors.ErrConfig,
			"Stage '"+stage.Name+"' is remote but has no hostname",
			"Add a 'hostname' key to the stage in kitipy.yaml")
	}

	opts := sshutil.Options{
		ConfigFile:    cfg.SSHConfig,
		User:          cfg.SSH.User,
		Port:          cfg.SSH.Port,
		IdentityFile:  cfg.SSH.IdentityFile,
		Timeout:       cfg.SSH.ConnectTimeout,
		HostKeyPolicy: policy,
	}
	return exec.NewRemote(stage.Basedir, stage.Hostname, dispatcher, opts), nil
}
