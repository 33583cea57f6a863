package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/fitdash/internal/core/services"
	"github.com/comitanigiacomo/fitdash/internal/render"
)

func newWatchCmd(opts *options) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the dashboard periodically",
		Long: `Reload the dashboard every --interval until interrupted. A failed load keeps
watching; an expired session stops the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}
			r, err := opts.renderer()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return watch(ctx, cmd.OutOrStdout(), opts, opts.controller(), r, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Time between refreshes")
	return cmd
}

func watch(ctx context.Context, w io.Writer, opts *options, ctrl *services.DashboardController, r render.Renderer, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		dr, err := opts.dateRange(time.Now())
		if err != nil {
			return err
		}

		state, applied := ctrl.Refresh(ctx, &dr)
		if ctx.Err() != nil {
			return nil
		}
		if applied {
			if err := render.State(w, state, r); err != nil {
				return err
			}
			if err := stateError(state); err != nil {
				if errors.Is(err, errMustLogin) {
					return err
				}
				log.Printf("[WATCH] refresh failed: %v", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
