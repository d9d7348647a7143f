// Package cli wires the task tree into a cobra-based command line. Static
// housekeeping commands (version, init, tasks) are regular cobra commands;
// everything else is dispatched through the dynamic tree, whose shape
// depends on the loaded configuration.
package cli

import (
	stderrors "errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/KnpLabs/kitipy-continued/internal/config"
	"github.com/KnpLabs/kitipy-continued/internal/dispatch"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/KnpLabs/kitipy-continued/internal/stack"
	"github.com/KnpLabs/kitipy-continued/internal/task"
	"github.com/KnpLabs/kitipy-continued/internal/tasks/docker"
	"github.com/KnpLabs/kitipy-continued/internal/ui"
)

// Global flags
var (
	configFlag  string
	basedirFlag string
	stageFlag   string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "kitipy [task...]",
	Short: "Dual-mode task runner for compose and swarm deployments",
	Long: `kitipy runs your deployment and ops tasks against named stages, locally or
over SSH, with the same task definitions. Tasks are organized as a tree and
conditionally exposed depending on the active stage and stack.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			os.Setenv("KITIPY_DEBUG", "1")
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return dispatchTask(args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (default: kitipy.yaml, searched upward)")
	rootCmd.PersistentFlags().StringVar(&basedirFlag, "basedir", "", "override the working directory of the default stage")
	rootCmd.PersistentFlags().StringVarP(&stageFlag, "stage", "s", "", "switch to the given stage before running the task")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	// Global flags come before the task name; everything from the first
	// positional on, task-level flags included, is handed to the tree
	// untouched.
	rootCmd.Flags().SetInterspersed(false)
}

// Execute runs the CLI and exits the process with the error's exit code on
// failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		exitWith(err)
	}
}

func exitWith(err error) {
	// errors.Error.Error() already renders the suggestion, nothing to add.
	ui.Error(err.Error())

	code := 1
	var taskErr *errors.TaskError
	if stderrors.As(err, &taskErr) {
		code = taskErr.ExitCode
	}
	os.Exit(code)
}

// buildRoot loads the configuration and assembles the task tree: the docker
// task group under a stack-scoped group, plus a stage-scoped group exposing
// the whole thing per stage.
func buildRoot() (*task.RootCommand, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	dispatcher := dispatch.New()
	ui.RegisterFileTransferListeners(dispatcher)

	root, err := task.NewRoot(cfg, task.RootOpts{
		StackLoader: stack.Load,
		Dispatcher:  dispatcher,
	})
	if err != nil {
		return nil, err
	}

	if err := registerTree(root, cfg); err != nil {
		return nil, err
	}
	return root, nil
}

// registerTree attaches the standard groups to the root: the docker tasks
// (when at least one stack is configured) and a stage group replicating them
// per configured stage.
func registerTree(root *task.RootCommand, cfg *config.Config) error {
	if len(cfg.Stacks) == 0 {
		return nil
	}

	dockerGroup, err := docker.Tasks()
	if err != nil {
		return err
	}
	if err := root.Add(dockerGroup); err != nil {
		return err
	}

	stages := task.NewStageGroup("stage", task.GroupOpts{
		Help: "Run tasks against a specific stage",
	})
	all, err := stages.All()
	if err != nil {
		return err
	}
	stageDocker, err := docker.Tasks()
	if err != nil {
		return err
	}
	if err := all.Add(stageDocker); err != nil {
		return err
	}
	if err := root.Add(stages); err != nil {
		return err
	}

	if len(cfg.Stacks) > 1 {
		stacks := task.NewStackGroup("stack", task.GroupOpts{
			Help: "Run tasks against a specific stack",
		})
		allStacks, err := stacks.All()
		if err != nil {
			return err
		}
		stackDocker, err := docker.Tasks()
		if err != nil {
			return err
		}
		if err := allStacks.Add(stackDocker); err != nil {
			return err
		}
		if err := root.Add(stacks); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	path, err := config.Find(configFlag)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.New(errors.ErrConfig,
			"No config file found",
			"Run 'kitipy init' to create a kitipy.yaml config file")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if basedirFlag != "" {
		if stage, serr := config.DefaultStage(cfg); serr == nil {
			stage.Basedir = basedirFlag
		}
	}
	return cfg, nil
}

func dispatchTask(args []string) error {
	root, err := buildRoot()
	if err != nil {
		return err
	}
	defer root.Close()

	if stageFlag != "" {
		if err := root.Context().WithStage(stageFlag); err != nil {
			return err
		}
	}
	return root.Invoke(args)
}
