// Package stack implements the deployment stack engines tasks talk to
// through the capability interface: docker compose for local development,
// swarm for clustered deployments. Every operation shells out through the
// context's executor, so the same stack definition works against a local or
// a remote stage.
package stack

import (
	"strings"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/exec"
	"github.com/KnpLabs/kitipy-continued/internal/task"
	"github.com/KnpLabs/kitipy-continued/internal/util"
)

// Compose drives a docker compose project.
type Compose struct {
	name    string
	file    string
	basedir string
}

// NewCompose creates a compose stack from its configuration.
func NewCompose(cfg *config.StackConfig) *Compose {
	return &Compose{
		name:    cfg.Name,
		file:    cfg.File,
		basedir: cfg.Basedir,
	}
}

func (s *Compose) Name() string    { return s.name }
func (s *Compose) Kind() string    { return config.StackTypeCompose }
func (s *Compose) BaseDir() string { return s.basedir }

// baseCmd is the common prefix of every compose invocation, pinning the
// project name and compose file so commands behave the same from any cwd.
func (s *Compose) baseCmd() string {
	cmd := "docker compose -p " + util.ShellQuote(s.name)
	if s.file != "" {
		cmd += " -f " + util.ShellQuote(s.file)
	}
	return cmd
}

func (s *Compose) subCmd(sub string, flags map[string]interface{}, args ...string) string {
	cmd := util.AppendCmdFlags(s.baseCmd()+" "+sub, flags)
	if len(args) > 0 {
		cmd += " " + strings.Join(args, " ")
	}
	return cmd
}

func (s *Compose) Build(k *task.Context, flags map[string]interface{}) error {
	_, err := k.Run(s.subCmd("build", flags), exec.RunOpts{})
	return err
}

func (s *Compose) Push(k *task.Context, flags map[string]interface{}) error {
	_, err := k.Run(s.subCmd("push", flags), exec.RunOpts{})
	return err
}

func (s *Compose) Up(k *task.Context, flags map[string]interface{}) error {
	_, err := k.Run(s.subCmd("up", flags), exec.RunOpts{})
	return err
}

func (s *Compose) Down(k *task.Context, flags map[string]interface{}) error {
	_, err := k.Run(s.subCmd("down", flags), exec.RunOpts{})
	return err
}

func (s *Compose) Ps(k *task.Context, flags map[string]interface{}) error {
	_, err := k.Run(s.subCmd("ps", flags), exec.RunOpts{})
	return err
}

func (s *Compose) Logs(k *task.Context, services []string, flags map[string]interface{}) error {
	_, err := k.Run(s.subCmd("logs", flags, services...), exec.RunOpts{})
	return err
}

func (s *Compose) Exec(k *task.Context, service, cmd string, flags map[string]interface{}) error {
	_, err := k.Run(s.subCmd("exec", flags, service, cmd), exec.RunOpts{})
	return err
}

func (s *Compose) Run(k *task.Context, service, cmd string, flags map[string]interface{}) (*exec.Result, error) {
	if flags == nil {
		flags = map[string]interface{}{}
	}
	if _, ok := flags["rm"]; !ok {
		flags["rm"] = true
	}
	return k.Run(s.subCmd("run", flags, service, cmd), exec.RunOpts{})
}

// Inspect renders the fully-resolved compose configuration.
func (s *Compose) Inspect(k *task.Context) (*exec.Result, error) {
	return k.Run(s.subCmd("config", nil), exec.RunOpts{Pipe: true})
}

// Raw runs an arbitrary compose subcommand against the stack.
func (s *Compose) Raw(k *task.Context, args []string) error {
	_, err := k.Run(s.baseCmd()+" "+strings.Join(args, " "), exec.RunOpts{})
	return err
}
