package task

import (
	stderrors "errors"
	"testing"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/dispatch"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/KnpLabs/kitipy-continued/internal/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Stages: map[string]*config.Stage{
			"dev":  {Name: "dev", Type: config.StageTypeLocal, Basedir: "/tmp", Default: true},
			"prod": {Name: "prod", Type: config.StageTypeRemote, Hostname: "prod.example.org", Basedir: "/srv"},
		},
		Stacks: map[string]*config.StackConfig{},
	}
}

func testContext(t *testing.T) *Context {
	t.Helper()
	cfg := testConfig()
	dispatcher := dispatch.New()
	executor := exec.NewLocal("/tmp", dispatcher)
	return NewContext(cfg, cfg.Stages["dev"], executor, dispatcher, nil)
}

func noop(k *Context, args []string) error { return nil }

func trueFilter(*Context) bool  { return true }
func falseFilter(*Context) bool { return false }

func TestFilterConjunction(t *testing.T) {
	k := testContext(t)

	testcases := map[string]struct {
		filters  []Filter
		hidden   bool
		expected bool
	}{
		"no filters":               {expected: true},
		"one passing":              {filters: []Filter{trueFilter}, expected: true},
		"one failing":              {filters: []Filter{falseFilter}, expected: false},
		"all passing":              {filters: []Filter{trueFilter, trueFilter, trueFilter}, expected: true},
		"one of many failing":      {filters: []Filter{trueFilter, falseFilter, trueFilter}, expected: false},
		"hidden without filters":   {hidden: true, expected: false},
		"hidden beats passing":     {filters: []Filter{trueFilter}, hidden: true, expected: false},
		"hidden and failing":       {filters: []Filter{falseFilter}, hidden: true, expected: false},
	}

	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			task := NewTask("t", noop, TaskOpts{Filters: tc.filters, Hidden: tc.hidden})
			assert.Equal(t, tc.expected, task.IsEnabled(k))

			group := NewGroup("g", GroupOpts{Filters: tc.filters, Hidden: tc.hidden})
			assert.Equal(t, tc.expected, group.IsEnabled(k))
		})
	}
}

func TestResolutionIsMemoized(t *testing.T) {
	k := testContext(t)
	calls := 0
	counting := func(*Context) bool {
		calls++
		return true
	}

	g := NewGroup("g", GroupOpts{})
	require.NoError(t, g.Add(NewTask("t", noop, TaskOpts{Filters: []Filter{counting}})))

	first, err := g.List(k)
	require.NoError(t, err)
	second, err := g.List(k)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestTransparentGroupsLiftChildren(t *testing.T) {
	k := testContext(t)

	g := NewGroup("g", GroupOpts{})
	require.NoError(t, g.Add(NewTask("own", noop, TaskOpts{})))

	lifted := NewGroup("lifted", GroupOpts{})
	require.NoError(t, lifted.Add(NewTask("borrowed", noop, TaskOpts{})))
	require.NoError(t, g.Merge(lifted))

	names, err := g.List(k)
	require.NoError(t, err)
	assert.Equal(t, []string{"borrowed", "own"}, names)

	// The transparent group itself is not addressable.
	_, err = g.Get(k, "lifted")
	var notFound *errors.TaskNotFoundError
	assert.True(t, stderrors.As(err, &notFound))
}

func TestCollisionDetectionIsSymmetric(t *testing.T) {
	k := testContext(t)

	build := func(order []string) error {
		g := NewGroup("g", GroupOpts{})
		for _, name := range order {
			tg := NewGroup(name, GroupOpts{})
			if err := tg.Add(NewTask("foo", noop, TaskOpts{})); err != nil {
				return err
			}
			if err := g.Merge(tg); err != nil {
				return err
			}
		}
		_, err := g.List(k)
		return err
	}

	for _, order := range [][]string{{"a", "b"}, {"b", "a"}} {
		err := build(order)
		require.Error(t, err)
		var collision *errors.CommandCollisionError
		require.True(t, stderrors.As(err, &collision))
		assert.Equal(t, "foo", collision.Name)
		assert.NotEmpty(t, collision.First)
		assert.NotEmpty(t, collision.Second)
	}
}

func TestTransparentCollidingWithDirectChild(t *testing.T) {
	k := testContext(t)

	g := NewGroup("g", GroupOpts{})
	require.NoError(t, g.Add(NewTask("deploy", noop, TaskOpts{})))

	tg := NewGroup("extras", GroupOpts{})
	require.NoError(t, tg.Add(NewTask("deploy", noop, TaskOpts{})))
	require.NoError(t, g.Merge(tg))

	_, err := g.List(k)
	var collision *errors.CommandCollisionError
	require.True(t, stderrors.As(err, &collision))
	assert.Contains(t, collision.First, "'g'")
	assert.Contains(t, collision.Second, "'extras'")
}

func TestDisabledChildLeavesItsNameToTransparentSibling(t *testing.T) {
	// dev is a local stage: the RemoteOnly direct child is disabled and
	// must not occupy the name it never produces.
	k := testContext(t)

	invoked := false
	g := NewGroup("g", GroupOpts{})
	require.NoError(t, g.Add(NewTask("deploy", noop, TaskOpts{
		Filters: []Filter{RemoteOnly},
	})))

	tg := NewGroup("extras", GroupOpts{})
	require.NoError(t, tg.Add(NewTask("deploy", func(k *Context, args []string) error {
		invoked = true
		return nil
	}, TaskOpts{})))
	require.NoError(t, g.Merge(tg))

	names, err := g.List(k)
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy"}, names)

	require.NoError(t, g.Invoke(k, []string{"deploy"}))
	assert.True(t, invoked, "the enabled transparent child must take the slot")
}

func TestTwoDisabledChildrenWithSameNameAreFilteredNotColliding(t *testing.T) {
	k := testContext(t)

	g := NewGroup("g", GroupOpts{})
	require.NoError(t, g.Add(NewTask("deploy", noop, TaskOpts{
		Filters: []Filter{RemoteOnly},
	})))
	tg := NewGroup("extras", GroupOpts{})
	require.NoError(t, tg.Add(NewTask("deploy", noop, TaskOpts{
		Filters: []Filter{RemoteOnly},
	})))
	require.NoError(t, g.Merge(tg))

	_, err := g.Get(k, "deploy")
	var filtered *errors.TaskFilteredError
	require.True(t, stderrors.As(err, &filtered))
	assert.Equal(t, "deploy", filtered.Name)
}

func TestNoMutationAfterResolution(t *testing.T) {
	k := testContext(t)

	g := NewGroup("g", GroupOpts{})
	require.NoError(t, g.Add(NewTask("t", noop, TaskOpts{})))

	_, err := g.List(k)
	require.NoError(t, err)

	err = g.Add(NewTask("late", noop, TaskOpts{}))
	var frozen *errors.StructureFrozenError
	require.True(t, stderrors.As(err, &frozen))
	assert.Equal(t, "g", frozen.Group)

	err = g.Merge(NewGroup("other", GroupOpts{}))
	assert.True(t, stderrors.As(err, &frozen))
}

func TestFilteredOutVersusNotFound(t *testing.T) {
	k := testContext(t)

	g := NewGroup("g", GroupOpts{})
	require.NoError(t, g.Add(NewTask("remote-task", noop, TaskOpts{Filters: []Filter{RemoteOnly}})))

	_, err := g.Get(k, "remote-task")
	var filtered *errors.TaskFilteredError
	require.True(t, stderrors.As(err, &filtered))
	assert.Equal(t, "remote-task", filtered.Name)

	_, err = g.Get(k, "no-such-task")
	var notFound *errors.TaskNotFoundError
	require.True(t, stderrors.As(err, &notFound))
	assert.Equal(t, "no-such-task", notFound.Name)
	assert.Equal(t, "g", notFound.Group)
}

func TestGroupCallbackRunsBeforeSubcommandResolution(t *testing.T) {
	k := testContext(t)

	// The child only shows up on a remote stage; the group callback switches
	// to one. Resolution after the callback must see the new executor mode.
	g := NewGroup("deploy", GroupOpts{
		Callback: func(k *Context, args []string) error {
			return k.WithStage("prod")
		},
	})
	invoked := false
	require.NoError(t, g.Add(NewTask("push", func(k *Context, args []string) error {
		invoked = true
		return nil
	}, TaskOpts{Filters: []Filter{RemoteOnly}})))

	require.NoError(t, g.Invoke(k, []string{"push"}))
	assert.True(t, invoked)
	assert.Equal(t, "prod", k.Stage().Name)
}

func TestTaskCwdAppliedBeforeCallback(t *testing.T) {
	k := testContext(t)

	var seen string
	task := NewTask("t", func(k *Context, args []string) error {
		seen = k.Executor().Basedir()
		return nil
	}, TaskOpts{Cwd: "/var/www"})

	require.NoError(t, task.Invoke(k, nil))
	assert.Equal(t, "/var/www", seen)
}

func TestTaskWithoutCallback(t *testing.T) {
	k := testContext(t)

	task := NewTask("t", nil, TaskOpts{})
	err := task.Invoke(k, nil)
	var invocation *errors.TaskInvocationError
	require.True(t, stderrors.As(err, &invocation))
}

func TestContextInvokeBypassesDispatch(t *testing.T) {
	k := testContext(t)

	var got []string
	target := NewTask("target", func(k *Context, args []string) error {
		got = args
		return nil
	}, TaskOpts{Filters: []Filter{falseFilter}})

	// Invoke runs the callback even though the task is filtered out.
	require.NoError(t, k.Invoke(target, "a", "b"))
	assert.Equal(t, []string{"a", "b"}, got)

	err := k.Invoke(NewTask("empty", nil, TaskOpts{}))
	var invocation *errors.TaskInvocationError
	require.True(t, stderrors.As(err, &invocation))
}

func TestWithStage(t *testing.T) {
	k := testContext(t)
	oldExecutor := k.Executor()

	require.NoError(t, k.WithStage("prod"))
	assert.Equal(t, "prod", k.Stage().Name)
	assert.NotSame(t, oldExecutor, k.Executor())
	assert.True(t, k.Executor().IsRemote())
	assert.Equal(t, "prod.example.org", k.Executor().Hostname())
	assert.Equal(t, "/srv", k.Executor().Basedir())
}

func TestWithStageUnknownName(t *testing.T) {
	k := testContext(t)

	err := k.WithStage("staging")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	// The context is left untouched.
	assert.Equal(t, "dev", k.Stage().Name)
}

func TestWaitFor(t *testing.T) {
	attempts := 0
	err := WaitFor(func() bool {
		attempts++
		return attempts == 3
	}, 0, 5, "the service to come up")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	err = WaitFor(func() bool { return false }, 0, 2, "a lost cause")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTask))
	assert.Contains(t, err.Error(), "a lost cause")
}

func TestRunAppliesStageEnv(t *testing.T) {
	k := testContext(t)
	k.Stage().Env = map[string]string{"STAGE_VAR": "from-stage"}

	res, err := k.Run("echo $STAGE_VAR", exec.RunOpts{Pipe: true})
	require.NoError(t, err)
	assert.Equal(t, "from-stage\n", res.Stdout)

	res, err = k.Run("echo $STAGE_VAR", exec.RunOpts{
		Env:  map[string]string{"STAGE_VAR": "per-call"},
		Pipe: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "per-call\n", res.Stdout)
}
