package config

import (
	"github.com/KnpLabs/kitipy-continued/internal/errors"
)

// Normalize fills in the guarantees the rest of the framework relies on:
// a config always has at least one stage (an implicit local "default" stage
// is injected when none is declared) and every stage/stack entry carries its
// map key in its Name field.
func Normalize(cfg *Config) *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Stages == nil {
		cfg.Stages = make(map[string]*Stage)
	}
	if cfg.Stacks == nil {
		cfg.Stacks = make(map[string]*StackConfig)
	}

	if len(cfg.Stages) == 0 {
		cfg.Stages["default"] = &Stage{
			Name: "default",
			Type: StageTypeLocal,
		}
	}

	for name, stage := range cfg.Stages {
		if stage.Name == "" {
			stage.Name = name
		}
	}
	for name, stack := range cfg.Stacks {
		if stack.Name == "" {
			stack.Name = name
		}
	}

	if cfg.SSHConfig == "" {
		cfg.SSHConfig = "~/.ssh/config"
	}

	return cfg
}

// Validate checks stage and stack descriptors for mistakes that would only
// blow up later, at connection time. It expects a normalized config.
func Validate(cfg *Config) error {
	for name, stage := range cfg.Stages {
		switch stage.Type {
		case StageTypeLocal, StageTypeRemote:
		default:
			return errors.New(errors.ErrConfig,
				"Stage \""+name+"\" has no \"type\" field or its value is invalid",
				"Set type to either \"local\" or \"remote\"")
		}

		if stage.Type == StageTypeRemote && stage.Hostname == "" {
			return errors.New(errors.ErrConfig,
				"Remote stage \""+name+"\" has no hostname field defined",
				"Add a hostname (or ssh_config alias) to the stage")
		}
	}

	for name, stack := range cfg.Stacks {
		switch stack.Type {
		case StackTypeCompose, StackTypeSwarm, "":
		default:
			return errors.New(errors.ErrConfig,
				"Stack \""+name+"\" has an invalid \"type\" field",
				"Set type to either \"compose\" or \"swarm\"")
		}
	}

	return nil
}

// DefaultStage picks the stage selected at startup: a single stage is an
// implicit default; with several stages, exactly one must be marked default.
func DefaultStage(cfg *Config) (*Stage, error) {
	if len(cfg.Stages) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"You have to provide a config with at least one stage",
			"Declare a stage under the stages key, or leave stages out to get an implicit local one")
	}

	if len(cfg.Stages) == 1 {
		for _, stage := range cfg.Stages {
			return stage, nil
		}
	}

	var picked *Stage
	for _, stage := range cfg.Stages {
		if !stage.Default {
			continue
		}
		if picked != nil {
			return nil, errors.New(errors.ErrConfig,
				"Multiple stages are marked as default",
				"Mark exactly one stage with default: true")
		}
		picked = stage
	}

	if picked == nil {
		return nil, errors.New(errors.ErrConfig,
			"Multiple stages are defined but none is marked as default",
			"Mark exactly one stage with default: true")
	}

	return picked, nil
}
