package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

const notAvailable = "N/A"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2).
			Width(26)

	cardTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	cardValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62"))
)

type TextRenderer struct{}

func (r *TextRenderer) Render(w io.Writer, view *domain.AggregatedView) error {
	if view == nil {
		_, err := fmt.Fprintln(w, metaStyle.Render("No data"))
		return err
	}

	var b strings.Builder
	b.WriteString(header(view))
	b.WriteString("\n")

	if view.Mode == domain.ModePeriod && view.Period != nil {
		b.WriteString(periodSection(view.Period))
	} else {
		b.WriteString(daySection(view.Day))
	}

	b.WriteString("\n")
	b.WriteString(metaStyle.Render("Last updated " + view.LoadedAt.Local().Format(time.DateTime)))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func header(view *domain.AggregatedView) string {
	title := "Fitbit Dashboard"
	if name := view.Profile.DisplayName; name != "" {
		title += " · " + name
	}

	span := view.Start
	if view.End != "" && view.End != view.Start {
		span += " → " + view.End
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(title),
		metaStyle.Render(span),
	)
}

func card(title, value, unit string) string {
	body := cardValueStyle.Render(value)
	if unit != "" {
		body += " " + unit
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, cardTitleStyle.Render(title), body))
}

func daySection(day *domain.DayCards) string {
	if day == nil {
		day = &domain.DayCards{}
	}

	distance := "0"
	if day.DistanceKm != nil {
		distance = domain.FormatDistance(*day.DistanceKm)
	}

	sleep := "0h 0m"
	if day.Sleep != nil {
		sleep = day.Sleep.String()
	}

	row1 := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Steps", intOr(day.Steps, "0"), "steps"),
		card("Calories burned", intOr(day.CaloriesOut, "0"), "kcal"),
		card("Distance", distance, "km"),
	)
	row2 := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Floors", intOr(day.Floors, "0"), "floors"),
		card("Resting heart rate", intOr(day.RestingHeartRate, notAvailable), "bpm"),
		card("Sleep", sleep, ""),
	)
	row3 := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Sleep efficiency", percentOr(day.SleepEfficiency), ""),
		card("Activity calories", intOr(day.ActivityCalories, notAvailable), "kcal"),
	)

	return lipgloss.JoinVertical(lipgloss.Left, row1, row2, row3) + "\n"
}

func periodSection(p *domain.PeriodSummary) string {
	avgSleep := notAvailable
	if p.AvgSleep != nil {
		avgSleep = p.AvgSleep.String()
	}

	summary := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Days with data", strconv.Itoa(p.DaysWithData), "days"),
		card("Avg resting HR", roundedOr(p.AvgRestingHeartRate), "bpm"),
		card("Avg sleep", avgSleep, ""),
	)
	efficiency := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Avg sleep efficiency", roundedOr(p.AvgSleepEfficiency), "%"),
		card("Avg activity calories", roundedOr(p.AvgActivityCalories), "kcal"),
	)

	var t strings.Builder
	t.WriteString(tableHeaderStyle.Render(fmt.Sprintf("%-12s %10s %14s %12s", "Date", "Resting HR", "Asleep (min)", "Act. kcal")))
	t.WriteString("\n")
	for _, row := range p.Rows {
		fmt.Fprintf(&t, "%-12s %10s %14s %12s\n",
			row.Date,
			intOr(row.RestingHeartRate, "-"),
			intOr(row.MinutesAsleep, "-"),
			intOr(row.ActivityCalories, "-"),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, summary, efficiency) + "\n\n" + t.String()
}

func intOr(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return groupThousands(*v)
}

func percentOr(v *int) string {
	if v == nil {
		return notAvailable
	}
	return strconv.Itoa(*v) + "%"
}

func roundedOr(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return groupThousands(int(math.Round(*v)))
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var out strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(r)
	}

	if neg {
		return "-" + out.String()
	}
	return out.String()
}
