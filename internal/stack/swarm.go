package stack

import (
	"strings"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/KnpLabs/kitipy-continued/internal/exec"
	"github.com/KnpLabs/kitipy-continued/internal/task"
	"github.com/KnpLabs/kitipy-continued/internal/util"
)

// Swarm drives a docker swarm stack. Images are still built and pushed
// through the compose file, since swarm has no build step of its own; the
// deployed services are managed with `docker stack` and `docker service`.
type Swarm struct {
	name    string
	file    string
	basedir string
}

// NewSwarm creates a swarm stack from its configuration.
func NewSwarm(cfg *config.StackConfig) *Swarm {
	return &Swarm{
		name:    cfg.Name,
		file:    cfg.File,
		basedir: cfg.Basedir,
	}
}

func (s *Swarm) Name() string    { return s.name }
func (s *Swarm) Kind() string    { return config.StackTypeSwarm }
func (s *Swarm) BaseDir() string { return s.basedir }

func (s *Swarm) composeCmd(sub string, flags map[string]interface{}) string {
	cmd := "docker compose -p " + util.ShellQuote(s.name)
	if s.file != "" {
		cmd += " -f " + util.ShellQuote(s.file)
	}
	return util.AppendCmdFlags(cmd+" "+sub, flags)
}

func (s *Swarm) serviceRef(service string) string {
	return s.name + "_" + service
}

func (s *Swarm) Build(k *task.Context, flags map[string]interface{}) error {
	_, err := k.Run(s.composeCmd("build", flags), exec.RunOpts{})
	return err
}

func (s *Swarm) Push(k *task.Context, flags map[string]interface{}) error {
	_, err := k.Run(s.composeCmd("push", flags), exec.RunOpts{})
	return err
}

func (s *Swarm) Up(k *task.Context, flags map[string]interface{}) error {
	cmd := util.AppendCmdFlags("docker stack deploy", flags)
	if s.file != "" {
		cmd += " --compose-file=" + util.ShellQuote(s.file)
	}
	_, err := k.Run(cmd+" "+util.ShellQuote(s.name), exec.RunOpts{})
	return err
}

func (s *Swarm) Down(k *task.Context, flags map[string]interface{}) error {
	cmd := util.AppendCmdFlags("docker stack rm", flags)
	_, err := k.Run(cmd+" "+util.ShellQuote(s.name), exec.RunOpts{})
	return err
}

func (s *Swarm) Ps(k *task.Context, flags map[string]interface{}) error {
	cmd := util.AppendCmdFlags("docker stack ps", flags)
	_, err := k.Run(cmd+" "+util.ShellQuote(s.name), exec.RunOpts{})
	return err
}

func (s *Swarm) Logs(k *task.Context, services []string, flags map[string]interface{}) error {
	for _, service := range services {
		cmd := util.AppendCmdFlags("docker service logs", flags)
		_, err := k.Run(cmd+" "+util.ShellQuote(s.serviceRef(service)), exec.RunOpts{})
		if err != nil {
			return err
		}
	}
	return nil
}

// Exec runs a command inside a running task container of the given service.
// The container is looked up on the target host by its swarm service label.
func (s *Swarm) Exec(k *task.Context, service, cmd string, flags map[string]interface{}) error {
	container, err := s.findContainer(k, service)
	if err != nil {
		return err
	}
	execCmd := util.AppendCmdFlags("docker exec", flags)
	_, err = k.Run(execCmd+" "+container+" "+cmd, exec.RunOpts{})
	return err
}

func (s *Swarm) Run(k *task.Context, service, cmd string, flags map[string]interface{}) (*exec.Result, error) {
	if flags == nil {
		flags = map[string]interface{}{}
	}
	if _, ok := flags["rm"]; !ok {
		flags["rm"] = true
	}
	return k.Run(s.composeCmd("run", flags)+" "+service+" "+cmd, exec.RunOpts{})
}

// Inspect lists the stack tasks and their current state.
func (s *Swarm) Inspect(k *task.Context) (*exec.Result, error) {
	return k.Run("docker stack ps "+util.ShellQuote(s.name), exec.RunOpts{Pipe: true})
}

func (s *Swarm) findContainer(k *task.Context, service string) (string, error) {
	probe := "docker ps -q -n1 --filter label=com.docker.swarm.service.name=" +
		util.ShellQuote(s.serviceRef(service))
	res, err := k.Run(probe, exec.RunOpts{Pipe: true})
	if err != nil {
		return "", err
	}
	container := strings.TrimSpace(res.Stdout)
	if container == "" {
		return "", errors.New(errors.ErrTask,
			"No running container found for service '"+service+"' of stack '"+s.name+"'",
			"Check the service is deployed and running with the ps task")
	}
	return container, nil
}
