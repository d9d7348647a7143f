package task

import (
	stderrors "errors"
	"fmt"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/dispatch"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/KnpLabs/kitipy-continued/internal/logger"
	"github.com/KnpLabs/kitipy-continued/pkg/sshutil"
)

// RootOpts tweak how the root command is assembled.
type RootOpts struct {
	// StackLoader builds live stack handles from their configuration.
	StackLoader StackLoader
	// Dispatcher to share; a fresh one is created when nil.
	Dispatcher *dispatch.Dispatcher
	// HostKeyPolicy for remote stages. Defaults to interactive confirmation.
	HostKeyPolicy sshutil.HostKeyPolicy
	// Logger receives the executor's command trace. Defaults to the
	// env-gated terminal logger.
	Logger logger.Logger
}

// RootCommand is the composition entry point: it validates the configuration,
// picks the default stage, builds the context and executor, and owns the top
// of the command tree.
type RootCommand struct {
	group *Group
	ctx   *Context
}

// NewRoot assembles the root of the command tree. With a single configured
// stack, the stack is loaded and attached eagerly; with several, none is
// attached and a stack-scoped group must be entered explicitly.
func NewRoot(cfg *config.Config, opts RootOpts) (*RootCommand, error) {
	stage, err := config.DefaultStage(cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = dispatch.New()
	}

	executor, err := NewExecutor(stage, cfg, dispatcher, opts.HostKeyPolicy)
	if err != nil {
		return nil, err
	}

	ctx := NewContext(cfg, stage, executor, dispatcher, opts.StackLoader)
	ctx.hostKeyPolicy = opts.HostKeyPolicy
	if opts.Logger != nil {
		ctx.SetLogger(opts.Logger)
	}

	if len(cfg.Stacks) == 1 && opts.StackLoader != nil {
		for name := range cfg.Stacks {
			if err := ctx.WithStack(name); err != nil {
				return nil, err
			}
		}
	}

	return &RootCommand{
		group: NewGroup("kitipy", GroupOpts{}),
		ctx:   ctx,
	}, nil
}

// Context returns the live invocation context.
func (r *RootCommand) Context() *Context {
	return r.ctx
}

// Group returns the root group, where the host application registers its
// tasks and groups.
func (r *RootCommand) Group() *Group {
	return r.group
}

// Add registers nodes at the top level of the tree.
func (r *RootCommand) Add(nodes ...Node) error {
	return r.group.Add(nodes...)
}

// List returns the sorted names of the top-level tasks enabled in the
// current context.
func (r *RootCommand) List() ([]string, error) {
	return r.group.List(r.ctx)
}

// Invoke dispatches the given CLI arguments through the tree. Command
// failures bubbling up from a task are translated into a TaskError carrying
// the failed command's exit code, so the process exits the way the command
// did.
func (r *RootCommand) Invoke(args []string) error {
	err := r.group.Invoke(r.ctx, args)
	if err == nil {
		return nil
	}

	var failed *errors.CommandFailedError
	if stderrors.As(err, &failed) {
		return &errors.TaskError{
			Message:  fmt.Sprintf("Command %q failed with exit code %d.", failed.Cmd, failed.ExitCode),
			ExitCode: failed.ExitCode,
			Cause:    failed,
		}
	}
	return err
}

// Close tears down the active executor and its connections.
func (r *RootCommand) Close() error {
	if r.ctx.executor != nil {
		return r.ctx.executor.Close()
	}
	return nil
}
