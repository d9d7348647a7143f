package task

import (
	stderrors "errors"
	"testing"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageGroupSharedTemplateAppearsInEveryStage(t *testing.T) {
	k := testContext(t)

	sg := NewStageGroup("stage", GroupOpts{})
	all, err := sg.All()
	require.NoError(t, err)
	require.NoError(t, all.Add(NewTask("deploy", noop, TaskOpts{})))

	for _, stage := range []string{"dev", "prod"} {
		node, err := sg.Get(k, stage)
		require.NoError(t, err)

		instance, ok := node.(*Group)
		require.True(t, ok)
		names, err := instance.List(k)
		require.NoError(t, err)
		assert.Equal(t, []string{"deploy"}, names, "stage %s", stage)
	}
}

func TestStageGroupDeclaredTemplate(t *testing.T) {
	k := testContext(t)

	sg := NewStageGroup("stage", GroupOpts{})
	prod, err := sg.Stage("prod")
	require.NoError(t, err)
	require.NoError(t, prod.Add(NewTask("release", noop, TaskOpts{})))

	// Declared for prod only: dev doesn't get it.
	node, err := sg.Get(k, "prod")
	require.NoError(t, err)
	names, err := node.(*Group).List(k)
	require.NoError(t, err)
	assert.Equal(t, []string{"release"}, names)

	node, err = sg.Get(k, "dev")
	require.NoError(t, err)
	names, err = node.(*Group).List(k)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStageGroupDropsUnconfiguredTemplates(t *testing.T) {
	k := testContext(t)

	sg := NewStageGroup("stage", GroupOpts{})
	staging, err := sg.Stage("staging")
	require.NoError(t, err)
	require.NoError(t, staging.Add(NewTask("t", noop, TaskOpts{})))

	names, err := sg.List(k)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod"}, names)

	_, err = sg.Get(k, "staging")
	var notFound *errors.TaskNotFoundError
	assert.True(t, stderrors.As(err, &notFound))
}

func TestStageGroupFreezesAfterResolution(t *testing.T) {
	k := testContext(t)

	sg := NewStageGroup("stage", GroupOpts{})
	_, err := sg.List(k)
	require.NoError(t, err)

	_, err = sg.Stage("dev")
	var frozen *errors.StructureFrozenError
	require.True(t, stderrors.As(err, &frozen))

	_, err = sg.All()
	assert.True(t, stderrors.As(err, &frozen))
}

func TestStageGroupInstanceSwitchesStage(t *testing.T) {
	k := testContext(t)

	sg := NewStageGroup("stage", GroupOpts{})
	all, err := sg.All()
	require.NoError(t, err)

	var mode string
	require.NoError(t, all.Add(NewTask("whoami", func(k *Context, args []string) error {
		if k.Executor().IsRemote() {
			mode = "remote"
		} else {
			mode = "local"
		}
		return nil
	}, TaskOpts{})))

	require.NoError(t, sg.Invoke(k, []string{"prod", "whoami"}))
	assert.Equal(t, "remote", mode)
	assert.Equal(t, "prod", k.Stage().Name)
}

func TestStageGroupWithoutStageArgument(t *testing.T) {
	k := testContext(t)

	sg := NewStageGroup("stage", GroupOpts{})
	err := sg.Invoke(k, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTask))
}

func TestStackGroupInstantiatesFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Stacks = map[string]*config.StackConfig{
		"app": {Name: "app", Type: config.StackTypeCompose, File: "docker-compose.yml"},
	}
	k := testContext(t)
	k.config = cfg

	sg := NewStackGroup("stack", GroupOpts{})
	all, err := sg.All()
	require.NoError(t, err)
	require.NoError(t, all.Add(NewTask("ps", noop, TaskOpts{})))

	names, err := sg.List(k)
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, names)
}

func TestRetainedTemplatesFreezeWithTheScopedGroup(t *testing.T) {
	k := testContext(t)

	sg := NewStageGroup("stage", GroupOpts{})
	prod, err := sg.Stage("prod")
	require.NoError(t, err)
	require.NoError(t, prod.Add(NewTask("release", noop, TaskOpts{})))
	all, err := sg.All()
	require.NoError(t, err)

	_, err = sg.List(k)
	require.NoError(t, err)

	// The instances captured the templates' children: a late Add through a
	// retained handle could never become visible, so it must fail loudly.
	var frozen *errors.StructureFrozenError
	err = prod.Add(NewTask("late", noop, TaskOpts{}))
	require.True(t, stderrors.As(err, &frozen))

	err = all.Add(NewTask("late", noop, TaskOpts{}))
	require.True(t, stderrors.As(err, &frozen))

	node, err := sg.Get(k, "prod")
	require.NoError(t, err)
	names, err := node.(*Group).List(k)
	require.NoError(t, err)
	assert.Equal(t, []string{"release"}, names)
}
