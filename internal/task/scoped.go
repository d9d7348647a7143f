package task

import (
	"sort"

	"github.com/KnpLabs/kitipy-continued/internal/errors"
)

// scopedGroup is the shared machinery behind StageGroup and StackGroup: a
// template applied once per name found in the live configuration. Declared
// templates hold the per-name tasks, the shared "all" template is merged
// into every instance, and instantiation is config-driven: configured names
// without a declared template get an auto-created empty group, declared
// templates whose name is absent from configuration are dropped.
type scopedGroup struct {
	name    string
	filters []Filter
	hidden  bool
	help    string

	// kind is "stage" or "stack", used in error messages and to pick the
	// switch behavior applied when an instance is entered.
	kind string

	declared map[string]*Group
	all      *Group

	instances map[string]*Group
	frozen    bool
}

func newScopedGroup(name, kind string, opts GroupOpts) *scopedGroup {
	return &scopedGroup{
		name:     name,
		filters:  opts.Filters,
		hidden:   opts.Hidden,
		help:     opts.Help,
		kind:     kind,
		declared: make(map[string]*Group),
		all:      NewGroup("all", GroupOpts{}),
	}
}

func (g *scopedGroup) Name() string {
	return g.name
}

func (g *scopedGroup) Help() string {
	return g.help
}

func (g *scopedGroup) IsEnabled(k *Context) bool {
	return !g.hidden && allFiltersPass(k, g.filters)
}

// template returns the declared template for the given name, creating an
// empty one on first access.
func (g *scopedGroup) template(name string) (*Group, error) {
	if g.frozen {
		return nil, &errors.StructureFrozenError{Group: g.name}
	}
	if tpl, ok := g.declared[name]; ok {
		return tpl, nil
	}
	tpl := NewGroup(name, GroupOpts{})
	g.declared[name] = tpl
	return tpl, nil
}

// allTemplate returns the shared template merged into every instance.
func (g *scopedGroup) allTemplate() (*Group, error) {
	if g.frozen {
		return nil, &errors.StructureFrozenError{Group: g.name}
	}
	return g.all, nil
}

// resolve instantiates one child group per configured name and memoizes the
// result. Each instance gets a callback switching the context to its name
// before a declared callback, if any, runs.
func (g *scopedGroup) resolve(k *Context, configured []string) (map[string]*Group, error) {
	if g.instances != nil {
		return g.instances, nil
	}

	instances := make(map[string]*Group, len(configured))
	for _, name := range configured {
		tpl := g.declared[name]

		instance := NewGroup(name, GroupOpts{
			Callback: g.switchCallback(name, tpl),
			Help:     g.instanceHelp(tpl),
		})
		if tpl != nil {
			instance.children = tpl.children
			instance.transparents = append(instance.transparents, tpl.transparents...)
		}
		if err := instance.Merge(g.all); err != nil {
			return nil, err
		}
		instances[name] = instance
	}

	g.instances = instances
	g.frozen = true
	// Instances captured the templates' children, so freeze the templates
	// too: a later Add through a retained handle would never become visible
	// and must fail instead.
	for _, tpl := range g.declared {
		tpl.freeze()
	}
	g.all.freeze()
	return g.instances, nil
}

func (g *scopedGroup) instanceHelp(tpl *Group) string {
	if tpl != nil && tpl.help != "" {
		return tpl.help
	}
	return "Run tasks against the '" + g.kind + "' of the same name"
}

func (g *scopedGroup) switchCallback(name string, tpl *Group) Callback {
	return func(k *Context, args []string) error {
		var err error
		switch g.kind {
		case "stage":
			err = k.WithStage(name)
		case "stack":
			err = k.WithStack(name)
		}
		if err != nil {
			return err
		}
		if tpl != nil && tpl.callback != nil {
			return tpl.callback(k, args)
		}
		return nil
	}
}

func (g *scopedGroup) list(k *Context, configured []string) ([]string, error) {
	instances, err := g.resolve(k, configured)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(instances))
	for name, instance := range instances {
		if instance.IsEnabled(k) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (g *scopedGroup) get(k *Context, configured []string, name string) (Node, error) {
	instances, err := g.resolve(k, configured)
	if err != nil {
		return nil, err
	}
	if instance, ok := instances[name]; ok {
		return instance, nil
	}
	return nil, &errors.TaskNotFoundError{Name: name, Group: g.name}
}

func (g *scopedGroup) invoke(k *Context, configured []string, args []string) error {
	if !g.IsEnabled(k) {
		return &errors.TaskFilteredError{Name: g.name}
	}
	if len(args) == 0 {
		return errors.New(errors.ErrTask,
			"No "+g.kind+" given for '"+g.name+"'",
			"Run with --help to list the configured "+g.kind+"s")
	}
	child, err := g.get(k, configured, args[0])
	if err != nil {
		return err
	}
	return child.Invoke(k, args[1:])
}

// StageGroup is a group template applied once per configured stage. Entering
// an instance switches the context and its executor to that stage before any
// subcommand is resolved.
type StageGroup struct {
	scoped *scopedGroup
}

// NewStageGroup creates a stage-scoped group. Callback and Cwd in opts are
// ignored: instances get a stage-switching callback of their own.
func NewStageGroup(name string, opts GroupOpts) *StageGroup {
	return &StageGroup{scoped: newScopedGroup(name, "stage", opts)}
}

func (g *StageGroup) Name() string              { return g.scoped.Name() }
func (g *StageGroup) Help() string              { return g.scoped.Help() }
func (g *StageGroup) IsEnabled(k *Context) bool { return g.scoped.IsEnabled(k) }
func (g *StageGroup) cb() Callback              { return nil }

// Stage returns the template for the given stage name, creating it on first
// access. Tasks added to it only appear under that stage.
func (g *StageGroup) Stage(name string) (*Group, error) {
	return g.scoped.template(name)
}

// All returns the shared template merged into every configured stage.
func (g *StageGroup) All() (*Group, error) {
	return g.scoped.allTemplate()
}

// List returns the configured stage names, sorted.
func (g *StageGroup) List(k *Context) ([]string, error) {
	return g.scoped.list(k, k.StageNames())
}

// Get returns the instantiated group for the given configured stage.
func (g *StageGroup) Get(k *Context, name string) (Node, error) {
	return g.scoped.get(k, k.StageNames(), name)
}

func (g *StageGroup) Invoke(k *Context, args []string) error {
	return g.scoped.invoke(k, k.StageNames(), args)
}

// StackGroup is a group template applied once per configured stack. Entering
// an instance loads that stack and moves the executor to its base directory.
type StackGroup struct {
	scoped *scopedGroup
}

// NewStackGroup creates a stack-scoped group. Callback and Cwd in opts are
// ignored: instances get a stack-loading callback of their own.
func NewStackGroup(name string, opts GroupOpts) *StackGroup {
	return &StackGroup{scoped: newScopedGroup(name, "stack", opts)}
}

func (g *StackGroup) Name() string              { return g.scoped.Name() }
func (g *StackGroup) Help() string              { return g.scoped.Help() }
func (g *StackGroup) IsEnabled(k *Context) bool { return g.scoped.IsEnabled(k) }
func (g *StackGroup) cb() Callback              { return nil }

// Stack returns the template for the given stack name, creating it on first
// access.
func (g *StackGroup) Stack(name string) (*Group, error) {
	return g.scoped.template(name)
}

// All returns the shared template merged into every configured stack.
func (g *StackGroup) All() (*Group, error) {
	return g.scoped.allTemplate()
}

// List returns the configured stack names, sorted.
func (g *StackGroup) List(k *Context) ([]string, error) {
	return g.scoped.list(k, k.StackNames())
}

// Get returns the instantiated group for the given configured stack.
func (g *StackGroup) Get(k *Context, name string) (Node, error) {
	return g.scoped.get(k, k.StackNames(), name)
}

func (g *StackGroup) Invoke(k *Context, args []string) error {
	return g.scoped.invoke(k, k.StackNames(), args)
}
