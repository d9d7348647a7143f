package stack

import (
	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/KnpLabs/kitipy-continued/internal/task"
)

// Load builds a live stack handle from its configuration. It matches the
// task.StackLoader signature and is the loader wired in by the CLI.
func Load(k *task.Context, cfg *config.StackConfig) (task.Stack, error) {
	switch cfg.Type {
	case config.StackTypeCompose:
		return NewCompose(cfg), nil
	case config.StackTypeSwarm:
		return NewSwarm(cfg), nil
	}
	return nil, errors.New(errors.ErrConfig,
		"Unknown stack type '"+cfg.Type+"' for stack '"+cfg.Name+"'",
		"Supported types are 'compose' and 'swarm'")
}
