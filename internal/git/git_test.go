package git

import (
	stderrors "errors"
	"os"
	osexec "os/exec"
	"testing"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/dispatch"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/KnpLabs/kitipy-continued/internal/exec"
	"github.com/KnpLabs/kitipy-continued/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRepo sets up a local git repo with its own clone acting as origin, so
// ls-remote probes work without network.
func newRepo(t *testing.T, tags ...string) string {
	t.Helper()
	if _, err := osexec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	run := func(cmd string) {
		c := osexec.Command("/bin/sh", "-c", cmd)
		c.Dir = dir
		c.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.org",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.org",
		)
		out, err := c.CombinedOutput()
		require.NoError(t, err, "command %q: %s", cmd, out)
	}

	run("git init -q .")
	run("git commit -q --allow-empty -m init")
	for _, tag := range tags {
		run("git commit -q --allow-empty -m bump")
		run("git tag " + tag)
	}
	run("git remote add origin ./.")
	return dir
}

func newContext(t *testing.T, basedir string) *task.Context {
	t.Helper()
	cfg := &config.Config{
		Stages: map[string]*config.Stage{
			"dev": {Name: "dev", Type: config.StageTypeLocal, Basedir: basedir},
		},
	}
	dispatcher := dispatch.New()
	return task.NewContext(cfg, cfg.Stages["dev"], exec.NewLocal(basedir, dispatcher), dispatcher, nil)
}

func TestEnsureTagExists(t *testing.T) {
	repo := newRepo(t, "v1.0.0")
	k := newContext(t, repo)

	require.NoError(t, EnsureTagExists(k, "v1.0.0"))

	err := EnsureTagExists(k, "v9.9.9")
	require.Error(t, err)
	var taskErr *errors.TaskError
	require.True(t, stderrors.As(err, &taskErr))
	assert.Contains(t, taskErr.Message, "remote origin")
}

func TestEnsureTagIsRecent(t *testing.T) {
	repo := newRepo(t, "v1", "v2", "v3", "v4")
	k := newContext(t, repo)

	require.NoError(t, EnsureTagIsRecent(k, "v4", 2))

	err := EnsureTagIsRecent(k, "v1", 2)
	require.Error(t, err)
	var taskErr *errors.TaskError
	require.True(t, stderrors.As(err, &taskErr))
	assert.Contains(t, taskErr.Message, "too old")
}
