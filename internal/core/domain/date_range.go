package domain

import (
	"errors"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate       = errors.New("invalid date format, expected YYYY-MM-DD")
	ErrInvalidRange      = errors.New("startDate cannot be after endDate")
	ErrStartDateRequired = errors.New("startDate is required when endDate is set")
	ErrRangeTooLarge     = errors.New("date range too large")
)

// DateRange is an inclusive span of calendar days. Start and End carry no time of day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: truncateDay(start), End: truncateDay(end)}
	if dr.Start.After(dr.End) {
		return DateRange{}, ErrInvalidRange
	}
	return dr, nil
}

func SingleDay(day time.Time) DateRange {
	d := truncateDay(day)
	return DateRange{Start: d, End: d}
}

func ParseDateRange(startStr, endStr string) (DateRange, error) {
	start, err := ParseDate(startStr)
	if err != nil {
		return DateRange{}, err
	}
	if endStr == "" {
		return SingleDay(start), nil
	}
	end, err := ParseDate(endStr)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(start, end)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ResolveDateRange applies the query rules of the gateway: both dates give a period,
// only a start date gives that single day, and no dates give today.
func ResolveDateRange(startStr, endStr string, today time.Time) (DateRange, error) {
	switch {
	case startStr == "" && endStr == "":
		return SingleDay(today), nil
	case startStr == "":
		return DateRange{}, ErrStartDateRequired
	}
	return ParseDateRange(startStr, endStr)
}

func (r DateRange) IsSingleDay() bool {
	return r.Start.Equal(r.End)
}

// Days is the number of calendar days covered, inclusive.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r DateRange) StartString() string {
	return r.Start.Format(DateLayout)
}

func (r DateRange) EndString() string {
	return r.End.Format(DateLayout)
}

func (r DateRange) String() string {
	if r.IsSingleDay() {
		return r.StartString()
	}
	return r.StartString() + ".." + r.EndString()
}

func (r DateRange) ValidateFor(f MetricFamily) error {
	if r.Days() > f.MaxRangeDays() {
		return fmt.Errorf("%w: max %d days allowed for %s", ErrRangeTooLarge, f.MaxRangeDays(), f)
	}
	return nil
}

// ValidateForAll checks the range against every dated family, as needed when all of
// them are fetched together.
func (r DateRange) ValidateForAll() error {
	for _, f := range AllFamilies {
		if !f.Dated() {
			continue
		}
		if err := r.ValidateFor(f); err != nil {
			return err
		}
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
