package task

import (
	"github.com/KnpLabs/kitipy-continued/internal/errors"
)

// TaskOpts carries the optional attributes of a Task. The zero value is a
// plain, always-enabled task.
type TaskOpts struct {
	// Filters must all pass for the task to be enabled.
	Filters []Filter
	// Cwd is applied to the active executor before the callback runs.
	Cwd string
	// Hidden tasks never appear in listings and can't be invoked.
	Hidden bool
	// Help is the one-line description shown in task listings.
	Help string
}

// Task is an invocable leaf of the command tree.
type Task struct {
	name     string
	callback Callback
	filters  []Filter
	cwd      string
	hidden   bool
	help     string
}

// NewTask creates a task bound to the given callback.
func NewTask(name string, callback Callback, opts TaskOpts) *Task {
	return &Task{
		name:     name,
		callback: callback,
		filters:  opts.Filters,
		cwd:      opts.Cwd,
		hidden:   opts.Hidden,
		help:     opts.Help,
	}
}

func (t *Task) Name() string {
	return t.name
}

func (t *Task) Help() string {
	return t.help
}

func (t *Task) IsEnabled(k *Context) bool {
	return !t.hidden && allFiltersPass(k, t.filters)
}

// Invoke runs the task callback. A disabled task fails with a distinct
// "filtered out" error rather than a generic not-found, so the user can tell
// "this task exists but not here" from a typo.
func (t *Task) Invoke(k *Context, args []string) error {
	if !t.IsEnabled(k) {
		return &errors.TaskFilteredError{Name: t.name}
	}
	if t.cwd != "" {
		k.Cd(t.cwd)
	}
	if t.callback == nil {
		return &errors.TaskInvocationError{Name: t.name}
	}
	return t.callback(k, args)
}

func (t *Task) cb() Callback {
	return t.callback
}
