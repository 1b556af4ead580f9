package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vellumsearch/vellum/internal/ingest"
)

func newWatchCmd() *cobra.Command {
	var (
		debounce time.Duration
		noEmbed  bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and re-ingest changed markdown",
		Long: `Watch a directory recursively and re-ingest markdown files as
they are created or modified. Rapid saves of the same file are
coalesced. Runs until interrupted.

Examples:
  vellum watch ./notes
  vellum watch ./notes --debounce 1s --no-embed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			watcher := ingest.NewWatcher(a.pipeline(!noEmbed), debounce)
			err = watcher.Watch(ctx, args[0])
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", ingest.DefaultDebounceWindow, "Debounce window for file events")
	cmd.Flags().BoolVar(&noEmbed, "no-embed", false, "Skip embedding generation on re-ingest")

	return cmd
}
