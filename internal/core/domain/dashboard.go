package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type DisplayMode string

const (
	ModeSingleDay DisplayMode = "single_day"
	ModePeriod    DisplayMode = "period"
)

// AggregatedView is recomputed on every load and never persisted.
// Nil pointers mean the value was absent upstream.
type AggregatedView struct {
	Range    *DateRange     `json:"-"`
	Start    string         `json:"start_date,omitempty"`
	End      string         `json:"end_date,omitempty"`
	Mode     DisplayMode    `json:"mode"`
	Profile  ProfileUser    `json:"profile"`
	Day      *DayCards      `json:"day,omitempty"`
	Period   *PeriodSummary `json:"period,omitempty"`
	LoadedAt time.Time      `json:"loaded_at"`
	Raw      RawMetrics     `json:"raw,omitzero"`
}

type RawMetrics struct {
	Activity json.RawMessage `json:"activity"`
	Heart    json.RawMessage `json:"heart"`
	Sleep    json.RawMessage `json:"sleep"`
	Profile  json.RawMessage `json:"profile"`
}

type DayCards struct {
	Date             string        `json:"date,omitempty"`
	Steps            *int          `json:"steps"`
	CaloriesOut      *int          `json:"calories_out"`
	DistanceKm       *float64      `json:"distance_km"`
	Floors           *int          `json:"floors"`
	RestingHeartRate *int          `json:"resting_heart_rate"`
	Sleep            *HoursMinutes `json:"sleep"`
	SleepEfficiency  *int          `json:"sleep_efficiency"`
	ActivityCalories *int          `json:"activity_calories"`
}

type PeriodSummary struct {
	DaysWithData        int           `json:"days_with_data"`
	AvgRestingHeartRate *float64      `json:"avg_resting_heart_rate"`
	AvgSleep            *HoursMinutes `json:"avg_sleep"`
	AvgSleepEfficiency  *float64      `json:"avg_sleep_efficiency"`
	AvgActivityCalories *float64      `json:"avg_activity_calories"`
	Rows                []PeriodRow   `json:"rows"`
	SleepSeries         []SleepPoint  `json:"sleep_series"`
	HeartSeries         []HeartPoint  `json:"heart_series"`
}

type PeriodRow struct {
	Date             string `json:"date"`
	RestingHeartRate *int   `json:"resting_heart_rate"`
	MinutesAsleep    *int   `json:"minutes_asleep"`
	ActivityCalories *int   `json:"activity_calories"`
}

type SleepPoint struct {
	Date           string   `json:"date"`
	SleepHours     *float64 `json:"sleep_hours"`
	TimeInBedHours *float64 `json:"time_in_bed_hours"`
	Efficiency     *int     `json:"efficiency"`
}

type HeartPoint struct {
	Date             string `json:"date"`
	RestingHeartRate int    `json:"resting_heart_rate"`
	ActivityCalories *int   `json:"activity_calories"`
}

type HoursMinutes struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// NewHoursMinutes rounds to the nearest whole minute, then splits by integer division.
func NewHoursMinutes(minutes float64) HoursMinutes {
	total := int(math.Round(minutes))
	return HoursMinutes{Hours: total / 60, Minutes: total % 60}
}

func (hm HoursMinutes) String() string {
	return fmt.Sprintf("%dh %dm", hm.Hours, hm.Minutes)
}

func FormatDistance(km float64) string {
	return fmt.Sprintf("%.2f", km)
}
