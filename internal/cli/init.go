package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a kitipy.yaml configuration",
	Long: `Initialize a new kitipy configuration file in the current directory, with a
local dev stage, a remote prod stage and a compose stack to start from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(config.ConfigFileName, initForce)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
}

func initConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			path+" already exists",
			"Use --force to overwrite it")
	}

	starter := &config.Config{
		Stages: map[string]*config.Stage{
			"dev": {
				Type:    config.StageTypeLocal,
				Basedir: ".",
				Default: true,
			},
			"prod": {
				Type:     config.StageTypeRemote,
				Hostname: "myapp.example.org",
				Basedir:  "/var/apps/myapp",
			},
		},
		Stacks: map[string]*config.StackConfig{
			"myapp": {
				Type: config.StackTypeCompose,
				File: "docker-compose.yml",
			},
		},
	}

	data, err := yaml.Marshal(starter)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to render the starter configuration", "")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+path,
			"Check the directory permissions")
	}

	fmt.Printf("Created %s. Adjust the stages and stacks to your project.\n", path)
	return nil
}
