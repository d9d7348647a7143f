package task

import (
	"sort"

	"github.com/KnpLabs/kitipy-continued/internal/errors"
)

// GroupOpts carries the optional attributes of a Group. The zero value is a
// plain, always-enabled group with no callback.
type GroupOpts struct {
	Filters []Filter
	// Cwd is applied to the active executor before anything else runs.
	Cwd    string
	Hidden bool
	// Callback runs before the subcommand is resolved, so it can mutate the
	// context (switch stage or stack) and have the subcommand's filters see
	// the new state.
	Callback Callback
	Help     string
}

// Group is a named, filterable container of tasks and nested groups.
// Transparent sub-groups attached with Merge contribute their children to
// this group's namespace without being addressable themselves.
//
// Resolution walks the children once, keeps the enabled ones, merges the
// transparent groups in (with collision detection) and memoizes the result.
// After that first resolution the group is frozen: structural mutation would
// let sibling lookups observe different trees, so it fails instead.
type Group struct {
	name     string
	filters  []Filter
	cwd      string
	hidden   bool
	callback Callback
	help     string

	children     []Node
	transparents []*Group

	resolved map[string]Node
	// origins records where every known name came from, enabled or not.
	// Used to name both sides of a collision and to tell "filtered out"
	// from "not found" on lookup.
	origins map[string]nodeOrigin

	// frozen is also set externally on templates whose children have been
	// captured by instantiated groups: mutating them could never reach the
	// instances anymore.
	frozen bool
}

type nodeOrigin struct {
	node   Node
	source string
}

// NewGroup creates an empty group.
func NewGroup(name string, opts GroupOpts) *Group {
	return &Group{
		name:     name,
		filters:  opts.Filters,
		cwd:      opts.Cwd,
		hidden:   opts.Hidden,
		callback: opts.Callback,
		help:     opts.Help,
	}
}

func (g *Group) Name() string {
	return g.name
}

func (g *Group) Help() string {
	return g.help
}

func (g *Group) IsEnabled(k *Context) bool {
	return !g.hidden && allFiltersPass(k, g.filters)
}

// Add registers tasks or nested groups as direct children.
func (g *Group) Add(nodes ...Node) error {
	if g.isFrozen() {
		return &errors.StructureFrozenError{Group: g.name}
	}
	g.children = append(g.children, nodes...)
	return nil
}

// Task is a convenience shortcut creating and registering a task in one call.
func (g *Group) Task(name string, callback Callback, opts TaskOpts) (*Task, error) {
	t := NewTask(name, callback, opts)
	if err := g.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Group is a convenience shortcut creating and registering a nested group.
func (g *Group) Group(name string, opts GroupOpts) (*Group, error) {
	sub := NewGroup(name, opts)
	if err := g.Add(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Merge attaches groups as transparent: their children are lifted into this
// group's namespace at resolution time. A lifted name colliding with a
// sibling is a fatal resolution error, never a silent shadow.
func (g *Group) Merge(groups ...*Group) error {
	if g.isFrozen() {
		return &errors.StructureFrozenError{Group: g.name}
	}
	g.transparents = append(g.transparents, groups...)
	return nil
}

func (g *Group) isFrozen() bool {
	return g.frozen || g.resolved != nil
}

// freeze forbids further structural mutation without resolving the group
// itself.
func (g *Group) freeze() {
	g.frozen = true
}

// resolve computes the enabled {name → node} namespace for the given context
// and memoizes it. Subsequent calls serve the cached mapping without
// re-running any filter.
func (g *Group) resolve(k *Context) (map[string]Node, error) {
	if g.resolved != nil {
		return g.resolved, nil
	}

	resolved := make(map[string]Node)
	origins := make(map[string]nodeOrigin)

	if err := collectChildren(k, g.children, "group '"+g.name+"'", resolved, origins); err != nil {
		return nil, err
	}
	for _, tg := range g.transparents {
		source := "transparent group '" + tg.name + "'"
		if err := collectChildren(k, tg.children, source, resolved, origins); err != nil {
			return nil, err
		}
	}

	g.resolved = resolved
	g.origins = origins
	return g.resolved, nil
}

// collectChildren merges one source's children into the namespace under
// construction. Only enabled children can collide: a child filtered out in
// this context doesn't occupy its name, so an enabled sibling from another
// source takes the slot. Disabled names are still recorded in origins to
// keep the filtered-vs-not-found distinction on lookup.
func collectChildren(k *Context, children []Node, source string, resolved map[string]Node, origins map[string]nodeOrigin) error {
	for _, child := range children {
		name := child.Name()
		enabled := child.IsEnabled(k)

		if _, taken := resolved[name]; taken && enabled {
			return &errors.CommandCollisionError{
				Name:   name,
				First:  origins[name].source,
				Second: source,
			}
		}
		if enabled {
			resolved[name] = child
			origins[name] = nodeOrigin{node: child, source: source}
		} else if _, known := origins[name]; !known {
			origins[name] = nodeOrigin{node: child, source: source}
		}
	}
	return nil
}

// List returns the sorted names of the enabled children.
func (g *Group) List(k *Context) ([]string, error) {
	resolved, err := g.resolve(k)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Get looks up an enabled child by name. A child that exists but is disabled
// in the current context yields TaskFilteredError, an unknown name yields
// TaskNotFoundError.
func (g *Group) Get(k *Context, name string) (Node, error) {
	resolved, err := g.resolve(k)
	if err != nil {
		return nil, err
	}
	if node, ok := resolved[name]; ok {
		return node, nil
	}
	if _, known := g.origins[name]; known {
		return nil, &errors.TaskFilteredError{Name: name}
	}
	return nil, &errors.TaskNotFoundError{Name: name, Group: g.name}
}

// Invoke runs the group callback, then dispatches to the subcommand named by
// the first argument. The callback runs before subcommand resolution so that
// filters on the subcommand observe any context change the callback made.
func (g *Group) Invoke(k *Context, args []string) error {
	if !g.IsEnabled(k) {
		return &errors.TaskFilteredError{Name: g.name}
	}
	if g.cwd != "" {
		k.Cd(g.cwd)
	}

	if g.callback != nil {
		if err := g.callback(k, args); err != nil {
			return err
		}
	}

	if len(args) == 0 {
		return errors.New(errors.ErrTask,
			"No task given for '"+g.name+"'",
			"Run with --help to list the available tasks")
	}

	child, err := g.Get(k, args[0])
	if err != nil {
		return err
	}
	return child.Invoke(k, args[1:])
}

func (g *Group) cb() Callback {
	return g.callback
}
