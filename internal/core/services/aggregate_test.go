package services_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
	"github.com/comitanigiacomo/fitdash/internal/core/services"
)

var loadedAt = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func rangeOf(t *testing.T, start, end string) *domain.DateRange {
	t.Helper()
	dr, err := domain.NewDateRange(day(start), day(end))
	require.NoError(t, err)
	return &dr
}

func raw(activity, heart, sleep, profile string) domain.RawMetrics {
	return domain.RawMetrics{
		Activity: json.RawMessage(activity),
		Heart:    json.RawMessage(heart),
		Sleep:    json.RawMessage(sleep),
		Profile:  json.RawMessage(profile),
	}
}

const (
	dayActivity = `{"summary":{"steps":8432,"caloriesOut":2310,"floors":12,"activityCalories":980,
		"distances":[{"activity":"tracker","distance":6.1},{"activity":"total","distance":6.4321}]}}`
	dayHeart   = `{"activities-heart":[{"dateTime":"2024-01-15","value":{"restingHeartRate":58}}]}`
	daySleep   = `{"sleep":[{"dateOfSleep":"2024-01-15","type":"classic","isMainSleep":false,"efficiency":70,"minutesAsleep":30},
		{"dateOfSleep":"2024-01-15","type":"stages","isMainSleep":true,"efficiency":91,"minutesAsleep":412,"timeInBed":450}],
		"summary":{"totalMinutesAsleep":442}}`
	dayProfile = `{"user":{"encodedId":"ABC123","displayName":"Jo"}}`
)

func TestBuildView_SingleDay(t *testing.T) {
	t.Run("Success: cards carry the literal upstream fields", func(t *testing.T) {
		dr := domain.SingleDay(day("2024-01-15"))

		view, err := services.BuildView(&dr, raw(dayActivity, dayHeart, daySleep, dayProfile), loadedAt)
		require.NoError(t, err)

		assert.Equal(t, domain.ModeSingleDay, view.Mode)
		assert.Equal(t, "2024-01-15", view.Start)
		assert.Equal(t, "Jo", view.Profile.DisplayName)
		assert.Equal(t, loadedAt, view.LoadedAt)
		assert.Nil(t, view.Period)

		d := view.Day
		require.NotNil(t, d)
		assert.Equal(t, "2024-01-15", d.Date)
		assert.Equal(t, ptr(8432), d.Steps)
		assert.Equal(t, ptr(2310), d.CaloriesOut)
		assert.Equal(t, ptr(12), d.Floors)
		assert.Equal(t, "6.43", domain.FormatDistance(*d.DistanceKm))
		assert.Equal(t, ptr(58), d.RestingHeartRate)
		assert.Equal(t, &domain.HoursMinutes{Hours: 7, Minutes: 22}, d.Sleep, "summary total wins")
		assert.Equal(t, ptr(91), d.SleepEfficiency, "main stages record")
		assert.Equal(t, ptr(980), d.ActivityCalories)
	})

	t.Run("Success: absent fields stay nil", func(t *testing.T) {
		dr := domain.SingleDay(day("2024-01-15"))

		view, err := services.BuildView(&dr, raw(`{}`, `{"activities-heart":[{"dateTime":"2024-01-15","value":{}}]}`, `{"sleep":[]}`, `{}`), loadedAt)
		require.NoError(t, err)

		d := view.Day
		assert.Nil(t, d.Steps)
		assert.Nil(t, d.DistanceKm)
		assert.Nil(t, d.RestingHeartRate)
		assert.Nil(t, d.Sleep)
		assert.Nil(t, d.SleepEfficiency)
		assert.Nil(t, d.ActivityCalories)
	})

	t.Run("Success: sleep falls back to the sum of records", func(t *testing.T) {
		dr := domain.SingleDay(day("2024-01-15"))
		sleep := `{"sleep":[{"dateOfSleep":"2024-01-15","type":"classic","minutesAsleep":300},{"dateOfSleep":"2024-01-15","type":"classic","minutesAsleep":45}]}`

		view, err := services.BuildView(&dr, raw(`{}`, `{}`, sleep, `{}`), loadedAt)
		require.NoError(t, err)

		assert.Equal(t, &domain.HoursMinutes{Hours: 5, Minutes: 45}, view.Day.Sleep)
		assert.Nil(t, view.Day.SleepEfficiency, "no stages record")
	})

	t.Run("Success: zero resting heart rate means absent", func(t *testing.T) {
		dr := domain.SingleDay(day("2024-01-15"))

		view, err := services.BuildView(&dr, raw(`{}`, `{"activities-heart":[{"dateTime":"2024-01-15","value":{"restingHeartRate":0}}]}`, `{}`, `{}`), loadedAt)
		require.NoError(t, err)
		assert.Nil(t, view.Day.RestingHeartRate)
	})

	t.Run("Fail: undecodable body names its family", func(t *testing.T) {
		dr := domain.SingleDay(day("2024-01-15"))

		view, err := services.BuildView(&dr, raw(`{}`, `not json`, `{}`, `{}`), loadedAt)
		assert.Nil(t, view)
		assert.ErrorIs(t, err, domain.ErrUpstreamFetchFailed)

		var upErr *domain.UpstreamError
		require.True(t, errors.As(err, &upErr))
		assert.Equal(t, domain.FamilyHeart, upErr.Family)
	})
}

func TestBuildView_Period(t *testing.T) {
	t.Run("Success: seven heart days, five stages nights", func(t *testing.T) {
		var heart, sleep []string
		for _, d := range []int{4, 2, 7, 1, 6, 3, 5} {
			heart = append(heart, fmt.Sprintf(`{"dateTime":"2024-01-%02d","value":{"restingHeartRate":%d}}`, d, 59+d))
		}
		for d := 7; d >= 1; d-- {
			typ, eff := "stages", 75+d*5
			if d > 5 {
				typ, eff = "classic", 10
			}
			sleep = append(sleep, fmt.Sprintf(`{"dateOfSleep":"2024-01-%02d","type":%q,"isMainSleep":true,"efficiency":%d,"minutesAsleep":420,"timeInBed":480}`, d, typ, eff))
		}

		view, err := services.BuildView(
			rangeOf(t, "2024-01-01", "2024-01-07"),
			raw(`{}`, `{"activities-heart":[`+strings.Join(heart, ",")+`]}`, `{"sleep":[`+strings.Join(sleep, ",")+`]}`, dayProfile),
			loadedAt,
		)
		require.NoError(t, err)

		assert.Equal(t, domain.ModePeriod, view.Mode)
		assert.Nil(t, view.Day)
		p := view.Period
		require.NotNil(t, p)

		assert.Equal(t, 7, p.DaysWithData)
		assert.InDelta(t, 63.0, *p.AvgRestingHeartRate, 1e-9)
		assert.InDelta(t, 90.0, *p.AvgSleepEfficiency, 1e-9)
		assert.Equal(t, &domain.HoursMinutes{Hours: 7, Minutes: 0}, p.AvgSleep)
		assert.Nil(t, p.AvgActivityCalories)

		require.Len(t, p.HeartSeries, 7)
		require.Len(t, p.SleepSeries, 5)
		for i, point := range p.HeartSeries {
			assert.Equal(t, fmt.Sprintf("2024-01-%02d", i+1), point.Date)
		}
		for i, point := range p.SleepSeries {
			assert.Equal(t, fmt.Sprintf("2024-01-%02d", i+1), point.Date)
			assert.Equal(t, ptr(7.0), point.SleepHours)
			assert.Equal(t, ptr(8.0), point.TimeInBedHours)
		}
	})

	t.Run("Success: rows join by date and skip gaps", func(t *testing.T) {
		heart := `{"activities-heart":[
			{"dateTime":"2024-01-02","value":{"restingHeartRate":60}},
			{"dateTime":"2024-01-01","value":{"restingHeartRate":62}},
			{"dateTime":"2024-01-02","value":{"restingHeartRate":99}},
			{"dateTime":"2024-01-03","value":null}]}`
		sleep := `{"sleep":[
			{"dateOfSleep":"2024-01-01","type":"classic","isMainSleep":false,"minutesAsleep":30},
			{"dateOfSleep":"2024-01-01","type":"stages","isMainSleep":true,"efficiency":90,"minutesAsleep":420,"timeInBed":480},
			{"dateOfSleep":"2024-01-02","type":"classic","isMainSleep":true,"efficiency":70,"minutesAsleep":380}]}`
		activity := `{"activities-activityCalories":[
			{"dateTime":"2024-01-01","value":"1000"},
			{"dateTime":"2024-01-02","value":"oops"},
			{"dateTime":"2024-01-03","value":"1200"}]}`

		view, err := services.BuildView(rangeOf(t, "2024-01-01", "2024-01-03"), raw(activity, heart, sleep, `{}`), loadedAt)
		require.NoError(t, err)
		p := view.Period
		require.NotNil(t, p)

		assert.Equal(t, 3, p.DaysWithData, "duplicate dates count once")
		assert.InDelta(t, 61.0, *p.AvgRestingHeartRate, 1e-9, "first entry per date wins")
		assert.InDelta(t, 90.0, *p.AvgSleepEfficiency, 1e-9)
		assert.InDelta(t, 1100.0, *p.AvgActivityCalories, 1e-9)

		require.Len(t, p.Rows, 3)
		assert.Equal(t, domain.PeriodRow{Date: "2024-01-01", RestingHeartRate: ptr(62), MinutesAsleep: ptr(420), ActivityCalories: ptr(1000)}, p.Rows[0])
		assert.Equal(t, domain.PeriodRow{Date: "2024-01-02", RestingHeartRate: ptr(60), MinutesAsleep: ptr(380)}, p.Rows[1])
		assert.Equal(t, domain.PeriodRow{Date: "2024-01-03", ActivityCalories: ptr(1200)}, p.Rows[2])

		assert.Len(t, p.HeartSeries, 2, "days without resting heart rate are not plotted")
		require.Len(t, p.SleepSeries, 1)
		assert.Equal(t, ptr(90), p.SleepSeries[0].Efficiency)
	})

	t.Run("Success: no qualifying entries give nil averages", func(t *testing.T) {
		heart := `{"activities-heart":[
			{"dateTime":"2024-01-01","value":{}},
			{"dateTime":"2024-01-02","value":{"restingHeartRate":0}}]}`
		sleep := `{"sleep":[
			{"dateOfSleep":"2024-01-01","type":"classic","isMainSleep":true,"efficiency":80,"minutesAsleep":400,"timeInBed":450},
			{"dateOfSleep":"2024-01-02","type":"classic","isMainSleep":true,"efficiency":85,"minutesAsleep":410,"timeInBed":460}]}`

		view, err := services.BuildView(rangeOf(t, "2024-01-01", "2024-01-02"), raw(`{}`, heart, sleep, `{}`), loadedAt)
		require.NoError(t, err)

		assert.Equal(t, domain.ModePeriod, view.Mode)
		p := view.Period
		require.NotNil(t, p)

		assert.Equal(t, 2, p.DaysWithData)
		assert.Nil(t, p.AvgRestingHeartRate, "zero and missing resting heart rates do not qualify")
		assert.Nil(t, p.AvgSleepEfficiency, "classic records carry no efficiency average")
		assert.Len(t, p.HeartSeries, 0)
		assert.Len(t, p.SleepSeries, 0)
	})

	t.Run("Success: repeated date is a single day", func(t *testing.T) {
		heart := `{"activities-heart":[
			{"dateTime":"2024-01-01","value":{"restingHeartRate":60}},
			{"dateTime":"2024-01-01","value":{"restingHeartRate":61}}]}`

		view, err := services.BuildView(rangeOf(t, "2024-01-01", "2024-01-02"), raw(`{}`, heart, `{}`, `{}`), loadedAt)
		require.NoError(t, err)

		assert.Equal(t, domain.ModeSingleDay, view.Mode)
		assert.Nil(t, view.Period)
		require.NotNil(t, view.Day)
		assert.Equal(t, ptr(60), view.Day.RestingHeartRate)
	})
}

func TestSelectMode(t *testing.T) {
	oneDay := domain.HeartResponse{ActivitiesHeart: []domain.HeartDay{{DateTime: "2024-01-01"}}}
	twoDays := domain.HeartResponse{ActivitiesHeart: []domain.HeartDay{{DateTime: "2024-01-01"}, {DateTime: "2024-01-02"}}}
	repeated := domain.HeartResponse{ActivitiesHeart: []domain.HeartDay{{DateTime: "2024-01-01"}, {DateTime: "2024-01-01"}, {}}}
	single := domain.SingleDay(day("2024-01-01"))

	assert.Equal(t, domain.ModePeriod, services.SelectMode(rangeOf(t, "2024-01-01", "2024-01-02"), twoDays))
	assert.Equal(t, domain.ModeSingleDay, services.SelectMode(rangeOf(t, "2024-01-01", "2024-01-02"), oneDay), "upstream returned one day")
	assert.Equal(t, domain.ModeSingleDay, services.SelectMode(rangeOf(t, "2024-01-01", "2024-01-02"), repeated), "one distinct date")
	assert.Equal(t, domain.ModeSingleDay, services.SelectMode(&single, twoDays))
	assert.Equal(t, domain.ModeSingleDay, services.SelectMode(nil, twoDays))
}

func TestParseCalories(t *testing.T) {
	cases := []struct {
		in   string
		want *int
	}{
		{"123", ptr(123)},
		{" 45 ", ptr(45)},
		{"0", ptr(0)},
		{"", nil},
		{"abc", nil},
		{"-5", nil},
		{"1.5", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, services.ParseCalories(tc.in), "input %q", tc.in)
	}
}
