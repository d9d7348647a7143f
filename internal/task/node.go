// Package task implements the command tree: a hierarchical, lazily-resolved,
// filterable registry of invocable units. Tasks are the leaves, Groups the
// containers; both expose themselves through the Node interface so a Group
// can hold either without caring which.
package task

// Filter decides whether a task or group is currently enabled, based on the
// live invocation context. Filters are conjunctive: a node with several
// filters is enabled only when every one of them passes.
type Filter func(*Context) bool

// Callback is the function bound to a task or group. It receives the live
// context and the CLI arguments left after the node's own name was consumed.
type Callback func(k *Context, args []string) error

// Node is a single addressable unit in the command tree.
type Node interface {
	Name() string
	Help() string
	// IsEnabled reports whether the node is visible and invocable in the
	// given context: all filters pass and the node is not hidden.
	IsEnabled(k *Context) bool
	Invoke(k *Context, args []string) error

	// cb exposes the bound callback for Context.Invoke, which bypasses
	// filters and subcommand dispatch to compose one task from another.
	cb() Callback
}

func allFiltersPass(k *Context, filters []Filter) bool {
	for _, f := range filters {
		if !f(k) {
			return false
		}
	}
	return true
}
