package render

import (
	"fmt"
	"io"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

// State renders whatever the dashboard currently holds: a view, a loading line, a login
// prompt or a "no data" notice.
func State(w io.Writer, state domain.DashboardState, r Renderer) error {
	switch state.Status {
	case domain.StatusLoading:
		_, err := fmt.Fprintln(w, metaStyle.Render("Loading "+rangeLabel(state.Range)+"..."))
		return err
	case domain.StatusMustLogin:
		_, err := fmt.Fprintln(w, "Session missing or expired. Log in again at /api/v1/auth/login and pass the session token with --token.")
		return err
	case domain.StatusFailed:
		_, err := fmt.Fprintln(w, metaStyle.Render("No data"))
		return err
	case domain.StatusReady:
		return r.Render(w, state.View)
	}
	return nil
}

func rangeLabel(dr *domain.DateRange) string {
	if dr == nil {
		return "today"
	}
	return dr.String()
}
