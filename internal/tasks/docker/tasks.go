// Package docker exposes the standard task group for managing compose and
// swarm stacks. Host applications attach it to their tree with
// root.Add(docker.Tasks()).
package docker

import (
	"strings"

	"github.com/KnpLabs/kitipy-continued/internal/task"
	"github.com/KnpLabs/kitipy-continued/internal/util"
)

// Tasks builds the docker task group. Every task drives the stack attached
// to the context, so the group fails fast when no stack is loaded.
func Tasks() (*task.Group, error) {
	g := task.NewGroup("docker", task.GroupOpts{
		Help: "Manage the Docker stack of the current stage",
		Callback: func(k *task.Context, args []string) error {
			if k.Stack() == nil {
				return k.Fail("No Docker stack available in the current context.", 1)
			}
			return nil
		},
	})

	err := g.Add(
		task.NewTask("build", buildTask, task.TaskOpts{
			Help: "Build the stack images",
		}),
		task.NewTask("push", pushTask, task.TaskOpts{
			Help: "Push the stack images to their registry",
		}),
		task.NewTask("up", upTask, task.TaskOpts{
			Help: "Create and start the stack services",
		}),
		task.NewTask("down", downTask, task.TaskOpts{
			Help: "Stop and remove the stack",
		}),
		task.NewTask("ps", psTask, task.TaskOpts{
			Help: "List the stack services",
		}),
		task.NewTask("logs", logsTask, task.TaskOpts{
			Help: "Follow the logs of the given services",
		}),
		task.NewTask("restart", restartTask, task.TaskOpts{
			Help: "Restart the given services",
		}),
		task.NewTask("exec", execTask, task.TaskOpts{
			Help: "Run a command inside a running service container",
		}),
		task.NewTask("shell", shellTask, task.TaskOpts{
			Help: "Open an interactive shell inside a service container",
		}),
		task.NewTask("run", runTask, task.TaskOpts{
			Help: "Run a one-off command in a new service container",
		}),
		task.NewTask("inspect", inspectTask, task.TaskOpts{
			Help: "Show the live state of the stack",
		}),
		task.NewTask("compose", composeTask, task.TaskOpts{
			Help:    "Run a raw compose command against the stack",
			Filters: []task.Filter{task.ComposeOnly},
		}),
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func buildTask(k *task.Context, args []string) error {
	flags, _ := util.SplitCmdFlags(args)
	return k.Stack().Build(k, flags)
}

func pushTask(k *task.Context, args []string) error {
	flags, _ := util.SplitCmdFlags(args)
	return k.Stack().Push(k, flags)
}

func upTask(k *task.Context, args []string) error {
	flags, _ := util.SplitCmdFlags(args)
	if _, ok := flags["detach"]; !ok {
		flags["detach"] = true
	}
	return k.Stack().Up(k, flags)
}

func downTask(k *task.Context, args []string) error {
	flags, _ := util.SplitCmdFlags(args)
	return k.Stack().Down(k, flags)
}

func psTask(k *task.Context, args []string) error {
	flags, _ := util.SplitCmdFlags(args)
	return k.Stack().Ps(k, flags)
}

func logsTask(k *task.Context, args []string) error {
	flags, services := util.SplitCmdFlags(args)
	if _, ok := flags["follow"]; !ok {
		flags["follow"] = true
	}
	if _, ok := flags["since"]; !ok {
		flags["since"] = "1m"
	}
	return k.Stack().Logs(k, services, flags)
}

func restartTask(k *task.Context, args []string) error {
	flags, _ := util.SplitCmdFlags(args)
	if err := k.Stack().Down(k, flags); err != nil {
		return err
	}
	return k.Stack().Up(k, map[string]interface{}{"detach": true})
}

func execTask(k *task.Context, args []string) error {
	flags, positional := util.SplitCmdFlags(args)
	if len(positional) < 2 {
		return k.Fail("Usage: docker exec SERVICE CMD...", 1)
	}
	return k.Stack().Exec(k, positional[0], strings.Join(positional[1:], " "), flags)
}

func shellTask(k *task.Context, args []string) error {
	_, positional := util.SplitCmdFlags(args)
	if len(positional) < 1 {
		return k.Fail("Usage: docker shell SERVICE", 1)
	}
	return k.Stack().Exec(k, positional[0], "/bin/sh", map[string]interface{}{
		"interactive": true,
		"tty":         true,
	})
}

func runTask(k *task.Context, args []string) error {
	flags, positional := util.SplitCmdFlags(args)
	if len(positional) < 1 {
		return k.Fail("Usage: docker run SERVICE [CMD...]", 1)
	}
	cmd := "/bin/sh"
	if len(positional) > 1 {
		cmd = strings.Join(positional[1:], " ")
	}
	_, err := k.Stack().Run(k, positional[0], cmd, flags)
	return err
}

func inspectTask(k *task.Context, args []string) error {
	res, err := k.Stack().Inspect(k)
	if err != nil {
		return err
	}
	k.Echo(strings.TrimRight(res.Stdout, "\n"))
	return nil
}

func composeTask(k *task.Context, args []string) error {
	compose, ok := k.Stack().(interface {
		Raw(k *task.Context, args []string) error
	})
	if !ok {
		return k.Fail("The current stack doesn't accept raw compose commands.", 1)
	}
	return compose.Raw(k, args)
}
