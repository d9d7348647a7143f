package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/KnpLabs/kitipy-continued/internal/task"
	"github.com/KnpLabs/kitipy-continued/internal/ui"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the tasks available in the current context",
	Long: `List the task tree resolved against the current configuration. Tasks
filtered out by the active stage or stack are not shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := buildRoot()
		if err != nil {
			return err
		}
		defer root.Close()

		k := root.Context()
		fmt.Printf("Tasks on stage '%s':\n", k.Stage().Name)
		return printTree(k, root.Group(), "  ")
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}

// lister is the shape shared by every container node in the tree.
type lister interface {
	List(k *task.Context) ([]string, error)
	Get(k *task.Context, name string) (task.Node, error)
}

func printTree(k *task.Context, node lister, indent string) error {
	names, err := node.List(k)
	if err != nil {
		return err
	}

	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	for _, name := range names {
		child, err := node.Get(k, name)
		if err != nil {
			return err
		}

		line := indent + name
		if help := child.Help(); help != "" {
			line += "  " + mutedStyle.Render(help)
		}
		fmt.Println(line)

		if sub, ok := child.(lister); ok {
			if err := printTree(k, sub, indent+"  "); err != nil {
				return err
			}
		}
	}
	return nil
}
