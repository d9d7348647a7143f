package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigWritesLoadableStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitipy.yaml")

	require.NoError(t, initConfig(path, false))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Contains(t, cfg.Stages, "dev")
	require.Contains(t, cfg.Stages, "prod")
	assert.True(t, cfg.Stages["dev"].Default)
	assert.Equal(t, config.StageTypeRemote, cfg.Stages["prod"].Type)
	// Normalization copies the map keys into the name fields.
	assert.Equal(t, "dev", cfg.Stages["dev"].Name)
	require.Contains(t, cfg.Stacks, "myapp")
	assert.Equal(t, config.StackTypeCompose, cfg.Stacks["myapp"].Type)
}

func TestInitConfigRefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitipy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stages: {}\n"), 0o644))

	err := initConfig(path, false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	require.NoError(t, initConfig(path, true))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.Stages, "dev")
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "v1.2.3", formatVersion("v1.2.3"))
}
