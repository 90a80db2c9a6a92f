package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stride-dev/stride/internal/config"
	"github.com/stride-dev/stride/internal/logging"
	"github.com/stride-dev/stride/internal/project"
	"github.com/stride-dev/stride/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [project-root...]",
	Short: "Run the pipeline and event stream server",
	Long: `Register one or more project roots (default: the current directory),
run their pipelines, and expose the event stream over HTTP as
text/event-stream on the configured address.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	srv := server.New(cfg.Server.Addr, registry.Hub(), logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Shutdown(context.Background())

	fmt.Printf("Serving events on http://%s/events (%d projects)\n", srv.Addr(), len(roots))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Println("\nShutting down")
	return nil
}

// newLogger builds the file-backed logger rooted at the first project's
// state directory, or a stderr logger when file logging is disabled.
func newLogger(cfg *config.Config, root string) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NewLogger("", cfg.Logging.Level)
	}
	handle, err := project.NewHandle(root)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(handle.StateDir(), cfg.Logging.Level)
}
