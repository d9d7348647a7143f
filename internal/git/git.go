// Package git holds the git probes deployment tasks run before shipping a
// tag. All probes run on the local machine, whatever stage is active.
package git

import (
	"fmt"

	"github.com/KnpLabs/kitipy-continued/internal/exec"
	"github.com/KnpLabs/kitipy-continued/internal/task"
)

// EnsureTagExists checks that the given tag is known to both the remote
// origin and the local clone, so a deployment can't ship a tag that only
// exists on one side.
func EnsureTagExists(k *task.Context, tag string) error {
	res, err := k.Local(
		fmt.Sprintf("git ls-remote --exit-code --tags origin refs/tags/%s >/dev/null 2>&1", tag),
		exec.RunOpts{NoCheck: true})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return k.Fail("The given tag is not available on Git remote origin.", 1)
	}

	res, err = k.Local(
		fmt.Sprintf("git ls-remote --exit-code --tags ./. refs/tags/%s >/dev/null 2>&1", tag),
		exec.RunOpts{NoCheck: true})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return k.Fail("The given tag is not available in your local Git repo. Please fetch remote tags before running this task again.", 1)
	}
	return nil
}

// EnsureTagIsRecent checks that the given tag is one of the last tags by
// commit date, to catch accidental deployments of an old release.
func EnsureTagIsRecent(k *task.Context, tag string, last int) error {
	cmd := fmt.Sprintf(
		"git for-each-ref --format='%%(refname:strip=2)' --sort=committerdate 'refs/tags/*' 2>/dev/null | tail -n%d | grep %s >/dev/null 2>&1",
		last, tag)
	res, err := k.Local(cmd, exec.RunOpts{NoCheck: true})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return k.Fail(fmt.Sprintf(
			"This tag seems too old: at least %d new tags have been released since %s.",
			last, tag), 1)
	}
	return nil
}
