package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stride-dev/stride/internal/project"
	"github.com/stride-dev/stride/internal/tui/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [project-root...]",
	Short: "Launch the live dashboard",
	Long: `Run the pipelines for one or more project roots (default: the
current directory) and watch their workflow state, event activity, and
execution history in a full-screen dashboard.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	roots := args
	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		roots = []string{cwd}
	}

	logger, err := newLogger(cfg, roots[0])
	if err != nil {
		return err
	}
	defer logger.Close()

	registry := project.NewRegistry(cfg, logger)
	defer registry.Stop()
	registry.Start()

	for _, root := range roots {
		if _, err := registry.Register(root); err != nil {
			return fmt.Errorf("failed to register %s: %w", root, err)
		}
	}

	model := monitor.NewModel(registry.Hub(), cfg.TUI.MaxMessages)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
