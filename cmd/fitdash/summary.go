package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
	"github.com/comitanigiacomo/fitdash/internal/render"
)

func newSummaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Load the dashboard once and print it",
		Long: `Load activity, heart rate, sleep and profile for a day or a period and print
the dashboard. A single day shows metric cards; a period shows averages and a
per-day table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.renderer()
			if err != nil {
				return err
			}
			dr, err := opts.dateRange(time.Now())
			if err != nil {
				return err
			}

			state, _ := opts.controller().Refresh(cmd.Context(), &dr)
			if err := render.State(cmd.OutOrStdout(), state, r); err != nil {
				return err
			}
			return stateError(state)
		},
	}
}

func stateError(state domain.DashboardState) error {
	switch state.Status {
	case domain.StatusMustLogin:
		return errMustLogin
	case domain.StatusFailed:
		return fmt.Errorf("load dashboard: %w", state.Err)
	}
	return nil
}
