package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stride-dev/stride/internal/artifact"
	"github.com/stride-dev/stride/internal/project"
)

var goBackReason string

var goBackCmd = &cobra.Command{
	Use:   "go-back <step> [project-root]",
	Short: "Move a project back to an earlier workflow step",
	Long: `Override the monotonic step rule once and move the project back to
an earlier step (design, analyze, implement). The override is logged
and persisted; the pipeline resumes normal forward evaluation from the
new step.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGoBack,
}

func init() {
	goBackCmd.Flags().StringVar(&goBackReason, "reason", "", "why the project is moving backward")
	rootCmd.AddCommand(goBackCmd)
}

func runGoBack(cmd *cobra.Command, args []string) error {
	step := artifact.Step(args[0])
	if !artifact.ValidStep(step) {
		return fmt.Errorf("unknown step %q (want design, analyze, implement, or verify)", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root := "."
	if len(args) > 1 {
		root = args[1]
	} else if root, err = os.Getwd(); err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	logger, err := newLogger(cfg, root)
	if err != nil {
		return err
	}
	defer logger.Close()

	registry := project.NewRegistry(cfg, logger)
	defer registry.Stop()

	p, err := registry.Register(root)
	if err != nil {
		return err
	}

	if err := p.Loop().GoBack(step, goBackReason); err != nil {
		return err
	}

	state := p.Loop().State()
	fmt.Printf("Moved back to %s (%s)\n", state.Step, state.Status)
	return nil
}
