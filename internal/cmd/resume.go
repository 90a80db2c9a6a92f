package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stride-dev/stride/internal/execution"
	"github.com/stride-dev/stride/internal/project"
)

var resumePrompt string

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id> [project-root]",
	Short: "Resume a prior agent session",
	Long: `Start a new execution linked to a prior agent session. The prior
execution's record is untouched; the agent continues the conversation
under the same session id.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumePrompt, "prompt", "", "follow-up prompt passed to the agent")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	return runExecution(args[1:], func(p *project.Pipeline) (execution.SessionExecution, error) {
		return p.Manager().Resume(sessionID, resumePrompt)
	})
}
