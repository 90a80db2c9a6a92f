package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/execution"
	"github.com/stride-dev/stride/internal/project"
)

var (
	startSkill  string
	startPrompt string
)

var startCmd = &cobra.Command{
	Use:   "start [project-root]",
	Short: "Start an agent execution for a project",
	Long: `Spawn the external agent for a project (default: the current
directory) and follow the execution until it reaches a terminal state.
Ctrl-C cancels the execution before exiting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startSkill, "skill", "implement", "skill to invoke")
	startCmd.Flags().StringVar(&startPrompt, "prompt", "", "prompt passed to the agent")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	return runExecution(args, func(p *project.Pipeline) (execution.SessionExecution, error) {
		return p.Manager().Start(execution.StartRequest{Skill: startSkill, Prompt: startPrompt})
	})
}

// runExecution registers the project, starts one execution, and follows
// its status events until a terminal state.
func runExecution(args []string, start func(*project.Pipeline) (execution.SessionExecution, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	if root == "." {
		if root, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	logger, err := newLogger(cfg, root)
	if err != nil {
		return err
	}
	defer logger.Close()

	registry := project.NewRegistry(cfg, logger)
	defer registry.Stop()
	registry.Start()

	p, err := registry.Register(root)
	if err != nil {
		return err
	}

	sub := registry.Hub().Subscribe()
	defer registry.Hub().Unsubscribe(sub)

	rec, err := start(p)
	if err != nil {
		return err
	}
	fmt.Printf("Execution %s started (%s)\n", rec.ID, rec.Skill)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			fmt.Println("\nCancelling execution")
			if err := p.Manager().Cancel(rec.ID); err != nil {
				return err
			}
			return nil

		case ev, ok := <-sub.Events():
			if !ok {
				// Dropped by the hub; the execution keeps running, the
				// follower just lost its stream.
				return fmt.Errorf("event stream closed, execution %s still running", rec.ID)
			}
			e, isExec := ev.(event.ExecutionStatusChangedEvent)
			if !isExec || e.ExecutionID != rec.ID {
				continue
			}
			if e.SessionID != "" {
				p.WatchTranscript(e.SessionID)
			}
			fmt.Printf("  %s\n", e.Status)
			if execution.Status(e.Status).Terminal() {
				return nil
			}
		}
	}
}
