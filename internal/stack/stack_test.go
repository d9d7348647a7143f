package stack

import (
	"testing"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func composeCfg() *config.StackConfig {
	return &config.StackConfig{
		Name: "myapp",
		Type: config.StackTypeCompose,
		File: "docker-compose.yml",
	}
}

func swarmCfg() *config.StackConfig {
	return &config.StackConfig{
		Name: "myapp",
		Type: config.StackTypeSwarm,
		File: "docker-compose.prod.yml",
	}
}

func TestLoad(t *testing.T) {
	s, err := Load(nil, composeCfg())
	require.NoError(t, err)
	assert.Equal(t, config.StackTypeCompose, s.Kind())
	assert.Equal(t, "myapp", s.Name())

	s, err = Load(nil, swarmCfg())
	require.NoError(t, err)
	assert.Equal(t, config.StackTypeSwarm, s.Kind())

	_, err = Load(nil, &config.StackConfig{Name: "x", Type: "kubernetes"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestComposeCommands(t *testing.T) {
	s := NewCompose(composeCfg())

	assert.Equal(t,
		"docker compose -p 'myapp' -f 'docker-compose.yml'",
		s.baseCmd())

	assert.Equal(t,
		"docker compose -p 'myapp' -f 'docker-compose.yml' up -d",
		s.subCmd("up", map[string]interface{}{"d": true}))

	assert.Equal(t,
		"docker compose -p 'myapp' -f 'docker-compose.yml' logs --follow --since='1m' api worker",
		s.subCmd("logs", map[string]interface{}{"follow": true, "since": "1m"}, "api", "worker"))
}

func TestComposeWithoutFile(t *testing.T) {
	s := NewCompose(&config.StackConfig{Name: "myapp", Type: config.StackTypeCompose})
	assert.Equal(t, "docker compose -p 'myapp'", s.baseCmd())
}

func TestSwarmCommands(t *testing.T) {
	s := NewSwarm(swarmCfg())

	assert.Equal(t,
		"docker compose -p 'myapp' -f 'docker-compose.prod.yml' build",
		s.composeCmd("build", nil))

	assert.Equal(t, "myapp_api", s.serviceRef("api"))
}
