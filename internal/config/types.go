package config

import "time"

// Stage types. A stage either targets the local machine or a remote host
// reached over SSH.
const (
	StageTypeLocal  = "local"
	StageTypeRemote = "remote"
)

// Stack types, matching the engines the stack package knows how to drive.
const (
	StackTypeCompose = "compose"
	StackTypeSwarm   = "swarm"
)

// Config is the normalized configuration consumed by the task tree. It is
// treated as read-only once normalized.
type Config struct {
	Stages map[string]*Stage       `yaml:"stages" mapstructure:"stages"`
	Stacks map[string]*StackConfig `yaml:"stacks" mapstructure:"stacks"`

	// SSHConfig is the path to an OpenSSH client config file used to resolve
	// remote stage hostnames. Defaults to ~/.ssh/config.
	SSHConfig string `yaml:"ssh_config,omitempty" mapstructure:"ssh_config"`

	// SSH holds raw transport-layer connection overrides applied to every
	// remote stage.
	SSH SSHOverrides `yaml:"ssh,omitempty" mapstructure:"ssh"`
}

// Stage is a named execution target: the local machine or a remote host.
type Stage struct {
	// Name is the stage name; filled from the map key when absent.
	Name string `yaml:"name,omitempty" mapstructure:"name"`

	// Type is either "local" or "remote".
	Type string `yaml:"type" mapstructure:"type"`

	// Hostname is the SSH host (or ssh_config alias) for remote stages.
	Hostname string `yaml:"hostname,omitempty" mapstructure:"hostname"`

	// Basedir is where commands run on the target.
	Basedir string `yaml:"basedir,omitempty" mapstructure:"basedir"`

	// Default marks the stage selected at startup when several are defined.
	Default bool `yaml:"default,omitempty" mapstructure:"default"`

	// Env contains environment variables applied to every command run on
	// this stage.
	Env map[string]string `yaml:"env,omitempty" mapstructure:"env"`
}

// IsLocal reports whether the stage targets the local machine.
func (s *Stage) IsLocal() bool {
	return s.Type == StageTypeLocal
}

// IsRemote reports whether the stage targets a remote host.
func (s *Stage) IsRemote() bool {
	return s.Type == StageTypeRemote
}

// StackConfig is a named deployment unit descriptor (a compose or swarm
// application).
type StackConfig struct {
	// Name is the stack name; filled from the map key when absent.
	Name string `yaml:"name,omitempty" mapstructure:"name"`

	// Type is either "compose" or "swarm".
	Type string `yaml:"type" mapstructure:"type"`

	// File is the compose/stack file driving the stack.
	File string `yaml:"file,omitempty" mapstructure:"file"`

	// Basedir is applied to the executor when the stack is loaded.
	Basedir string `yaml:"basedir,omitempty" mapstructure:"basedir"`
}

// SSHOverrides tweaks how the SSH transport is opened, on top of what the
// OpenSSH config file resolves.
type SSHOverrides struct {
	User           string        `yaml:"user,omitempty" mapstructure:"user"`
	Port           int           `yaml:"port,omitempty" mapstructure:"port"`
	IdentityFile   string        `yaml:"identity_file,omitempty" mapstructure:"identity_file"`
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty" mapstructure:"connect_timeout"`
}

// DefaultConfig returns an empty Config; Normalize turns it into a usable
// one with a single implicit local stage.
func DefaultConfig() *Config {
	return &Config{
		Stages: make(map[string]*Stage),
		Stacks: make(map[string]*StackConfig),
	}
}
