package task

import (
	"github.com/KnpLabs/kitipy-continued/internal/config"
)

// LocalOnly enables a node only when the active executor runs locally.
func LocalOnly(k *Context) bool {
	return k.Executor().IsLocal()
}

// RemoteOnly enables a node only when the active executor targets a remote
// host.
func RemoteOnly(k *Context) bool {
	return k.Executor().IsRemote()
}

// StageNamed enables a node only when the active stage bears one of the
// given names.
func StageNamed(names ...string) Filter {
	return func(k *Context) bool {
		stage := k.Stage()
		if stage == nil {
			return false
		}
		for _, name := range names {
			if stage.Name == name {
				return true
			}
		}
		return false
	}
}

// StackNamed enables a node only when the active stack bears one of the
// given names.
func StackNamed(names ...string) Filter {
	return func(k *Context) bool {
		stack := k.Stack()
		if stack == nil {
			return false
		}
		for _, name := range names {
			if stack.Name() == name {
				return true
			}
		}
		return false
	}
}

// ComposeOnly enables a node only when the active stack is a compose stack.
func ComposeOnly(k *Context) bool {
	return k.Stack() != nil && k.Stack().Kind() == config.StackTypeCompose
}

// SwarmOnly enables a node only when the active stack is a swarm stack.
func SwarmOnly(k *Context) bool {
	return k.Stack() != nil && k.Stack().Kind() == config.StackTypeSwarm
}
