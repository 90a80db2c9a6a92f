package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stride-dev/stride/internal/artifact"
	"github.com/stride-dev/stride/internal/errors"
	"github.com/stride-dev/stride/internal/project"
	"github.com/stride-dev/stride/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [project-root]",
	Short: "Show a project's workflow state and execution history",
	Long: `Read the project's persisted workflow state and execution index
straight from disk. Works whether or not a pipeline is running; all
state files are written via atomic replace and are always complete.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		root = cwd
	}

	handle, err := project.NewHandle(root)
	if err != nil {
		return err
	}

	files, err := store.NewFileStore(handle.StateDir())
	if err != nil {
		return err
	}

	fmt.Printf("Project: %s\n", handle.Name)

	data, err := files.Load("state.json")
	switch {
	case errors.Is(err, errors.ErrNotFound):
		fmt.Println("Step: design (not yet started)")
	case err != nil:
		return err
	default:
		state, err := artifact.ParseState(data)
		if err != nil {
			return err
		}
		fmt.Printf("Step: %s (%s)\n", state.Step, state.Status)
		if state.Health != "" {
			fmt.Printf("Health: %s\n", state.Health)
		}
	}

	index, err := store.LoadIndex(files)
	if err != nil {
		return err
	}
	if len(index.Entries) == 0 {
		fmt.Println("No executions")
		return nil
	}

	fmt.Printf("Executions: %d\n\n", len(index.Entries))
	for i, entry := range index.Entries {
		fmt.Printf("[%d] %s (%s)\n", i+1, entry.ExecutionID, entry.Status)
		fmt.Printf("    Skill: %s\n", entry.Skill)
		if entry.SessionID != "" {
			fmt.Printf("    Session: %s\n", entry.SessionID)
		}
		fmt.Printf("    Updated: %s\n", entry.Updated.Format("2006-01-02 15:04:05"))
		if entry.CostUSD > 0 {
			fmt.Printf("    Cost: $%.2f\n", entry.CostUSD)
		}
		fmt.Println()
	}

	return nil
}
