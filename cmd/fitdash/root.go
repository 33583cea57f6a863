package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/fitdash/internal/adapters/gateway"
	"github.com/comitanigiacomo/fitdash/internal/core/domain"
	"github.com/comitanigiacomo/fitdash/internal/core/services"
	"github.com/comitanigiacomo/fitdash/internal/render"
)

var errMustLogin = errors.New("not logged in")

type options struct {
	server     string
	token      string
	output     string
	timeout    time.Duration
	includeRaw bool

	start string
	end   string
	today bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "fitdash",
		Short: "Terminal dashboard for Fitbit activity, heart rate and sleep",
		Long: `fitdash reads your Fitbit metrics through a running fitdash server and
renders them as a dashboard.

Log in once in a browser at <server>/api/v1/auth/login, then pass the returned
session token with --token or the FITDASH_TOKEN environment variable.

Quick Start:
  fitdash summary                                  # Today
  fitdash summary --start 2024-01-01 --end 2024-01-07
  fitdash watch --interval 5m                      # Refresh periodically
  fitdash summary --output yaml`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", envOr("FITDASH_SERVER", "http://localhost:8080"), "Base URL of the fitdash server")
	flags.StringVar(&opts.token, "token", os.Getenv("FITDASH_TOKEN"), "Session token returned by the login callback")
	flags.StringVarP(&opts.output, "output", "o", "text", "Output format: text, json or yaml")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "Timeout for each metric request")
	flags.BoolVar(&opts.includeRaw, "raw", false, "Include the upstream bodies in json output")
	flags.StringVar(&opts.start, "start", "", "First day of the range (YYYY-MM-DD)")
	flags.StringVar(&opts.end, "end", "", "Last day of the range (YYYY-MM-DD); requires --start")
	flags.BoolVar(&opts.today, "today", false, "Show today, ignoring --start and --end")

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.AddCommand(newSummaryCmd(opts), newWatchCmd(opts))
	return root
}

func (o *options) renderer() (render.Renderer, error) {
	r, err := render.ForFormat(o.output)
	if err != nil {
		return nil, err
	}
	if j, ok := r.(*render.JSONRenderer); ok {
		j.IncludeRaw = o.includeRaw
	}
	return r, nil
}

// dateRange resolves the flags against the local calendar day. It is evaluated on every
// refresh so a watch without dates follows the clock past midnight.
func (o *options) dateRange(now time.Time) (domain.DateRange, error) {
	if o.today {
		return domain.SingleDay(now), nil
	}
	dr, err := domain.ResolveDateRange(o.start, o.end, now)
	if err != nil {
		return domain.DateRange{}, err
	}
	if err := dr.ValidateForAll(); err != nil {
		return domain.DateRange{}, err
	}
	return dr, nil
}

func (o *options) controller() *services.DashboardController {
	src := gateway.NewClient(o.server, o.token, o.timeout)
	return services.NewDashboardController(services.NewDashboardService(o.timeout, nil), src, nil)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
