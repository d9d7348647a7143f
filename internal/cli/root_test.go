package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagParsingStopsAtTaskName(t *testing.T) {
	t.Cleanup(func() { stageFlag = "" })

	err := rootCmd.ParseFlags([]string{"-s", "prod", "docker", "logs", "--since=5m", "--follow"})
	require.NoError(t, err)

	assert.Equal(t, "prod", stageFlag)
	assert.Equal(t,
		[]string{"docker", "logs", "--since=5m", "--follow"},
		rootCmd.Flags().Args(),
		"task-level flags must reach the tree untouched")
}

func TestTaskFlagsSurviveWithoutGlobalFlags(t *testing.T) {
	err := rootCmd.ParseFlags([]string{"docker", "up", "--detach=false", "extra"})
	require.NoError(t, err)

	assert.Equal(t, []string{"docker", "up", "--detach=false", "extra"}, rootCmd.Flags().Args())
}
