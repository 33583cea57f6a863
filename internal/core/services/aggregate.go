package services

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

type decodedMetrics struct {
	activity domain.ActivityResponse
	heart    domain.HeartResponse
	sleep    domain.SleepResponse
	profile  domain.ProfileResponse
}

func decodeMetrics(raw domain.RawMetrics) (*decodedMetrics, error) {
	var m decodedMetrics

	parts := []struct {
		family domain.MetricFamily
		body   json.RawMessage
		dst    any
	}{
		{domain.FamilyActivity, raw.Activity, &m.activity},
		{domain.FamilyHeart, raw.Heart, &m.heart},
		{domain.FamilySleep, raw.Sleep, &m.sleep},
		{domain.FamilyProfile, raw.Profile, &m.profile},
	}

	for _, p := range parts {
		if len(p.body) == 0 {
			continue
		}
		if err := json.Unmarshal(p.body, p.dst); err != nil {
			return nil, &domain.UpstreamError{Family: p.family, Err: fmt.Errorf("decode body: %w", err)}
		}
	}

	return &m, nil
}

// SelectMode picks period mode only when a multi-day range was requested and the heart
// series actually spans more than one distinct day; the upstream may return fewer days
// than asked, or repeat a date.
func SelectMode(dr *domain.DateRange, heart domain.HeartResponse) domain.DisplayMode {
	if dr != nil && !dr.IsSingleDay() && len(dedupHeart(heart.ActivitiesHeart)) > 1 {
		return domain.ModePeriod
	}
	return domain.ModeSingleDay
}

func BuildView(dr *domain.DateRange, raw domain.RawMetrics, now time.Time) (*domain.AggregatedView, error) {
	m, err := decodeMetrics(raw)
	if err != nil {
		return nil, err
	}

	view := &domain.AggregatedView{
		Range:    dr,
		Mode:     SelectMode(dr, m.heart),
		Profile:  m.profile.User,
		LoadedAt: now,
		Raw:      raw,
	}
	if dr != nil {
		view.Start = dr.StartString()
		view.End = dr.EndString()
	}

	if view.Mode == domain.ModePeriod {
		view.Period = buildPeriod(m)
	} else {
		view.Day = buildDay(dr, m)
	}

	return view, nil
}

func buildDay(dr *domain.DateRange, m *decodedMetrics) *domain.DayCards {
	day := &domain.DayCards{}

	if dr != nil {
		day.Date = dr.StartString()
	} else if len(m.heart.ActivitiesHeart) > 0 {
		day.Date = m.heart.ActivitiesHeart[0].DateTime
	}

	if s := m.activity.Summary; s != nil {
		day.Steps = s.Steps
		day.CaloriesOut = s.CaloriesOut
		day.Floors = s.Floors
		day.DistanceKm = totalDistance(s.Distances)
		day.ActivityCalories = s.ActivityCalories
	}
	if day.ActivityCalories == nil && len(m.activity.ActivityCalories) > 0 {
		day.ActivityCalories = ParseCalories(m.activity.ActivityCalories[0].Value)
	}

	if len(m.heart.ActivitiesHeart) > 0 {
		day.RestingHeartRate = m.heart.ActivitiesHeart[0].RestingHeartRate()
	}

	if minutes := totalMinutesAsleep(m.sleep); minutes != nil {
		hm := domain.NewHoursMinutes(float64(*minutes))
		day.Sleep = &hm
	}

	if rec, ok := mainStagesRecord(m.sleep.Sleep); ok {
		day.SleepEfficiency = rec.Efficiency
	}

	return day
}

func buildPeriod(m *decodedMetrics) *domain.PeriodSummary {
	heartDays := dedupHeart(m.heart.ActivitiesHeart)
	sleepByDate := groupSleep(m.sleep.Sleep, false)
	stagesByDate := groupSleep(m.sleep.Sleep, true)
	caloriesByDate, calorieValues := indexCalories(m.activity.ActivityCalories)

	p := &domain.PeriodSummary{
		DaysWithData: len(heartDays),
		Rows:         make([]domain.PeriodRow, 0, len(heartDays)),
		SleepSeries:  make([]domain.SleepPoint, 0, len(stagesByDate)),
		HeartSeries:  make([]domain.HeartPoint, 0, len(heartDays)),
	}

	var resting []int
	for _, h := range heartDays {
		row := domain.PeriodRow{
			Date:             h.DateTime,
			RestingHeartRate: h.RestingHeartRate(),
			ActivityCalories: caloriesByDate[h.DateTime],
		}
		if rec, ok := sleepByDate[h.DateTime]; ok {
			row.MinutesAsleep = rec.Asleep()
		}
		p.Rows = append(p.Rows, row)

		if rhr := h.RestingHeartRate(); rhr != nil {
			resting = append(resting, *rhr)
			p.HeartSeries = append(p.HeartSeries, domain.HeartPoint{
				Date:             h.DateTime,
				RestingHeartRate: *rhr,
				ActivityCalories: caloriesByDate[h.DateTime],
			})
		}
	}
	p.AvgRestingHeartRate = mean(resting)

	var asleep, efficiency []int
	for _, rec := range m.sleep.Sleep {
		if v := rec.Asleep(); v != nil {
			asleep = append(asleep, *v)
		}
		if rec.IsStages() && rec.Efficiency != nil {
			efficiency = append(efficiency, *rec.Efficiency)
		}
	}
	if avg := mean(asleep); avg != nil {
		hm := domain.NewHoursMinutes(*avg)
		p.AvgSleep = &hm
	}
	p.AvgSleepEfficiency = mean(efficiency)
	p.AvgActivityCalories = mean(calorieValues)

	for _, date := range sortedKeys(stagesByDate) {
		rec := stagesByDate[date]
		p.SleepSeries = append(p.SleepSeries, domain.SleepPoint{
			Date:           date,
			SleepHours:     minutesToHours(rec.Asleep()),
			TimeInBedHours: minutesToHours(rec.TimeInBed),
			Efficiency:     rec.Efficiency,
		})
	}

	return p
}

// ParseCalories parses an upstream string-encoded calorie count. Anything that is not a
// non-negative integer yields nil.
func ParseCalories(s string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// dedupHeart keeps the first entry per date and orders the result by date ascending.
func dedupHeart(days []domain.HeartDay) []domain.HeartDay {
	seen := make(map[string]bool, len(days))
	out := make([]domain.HeartDay, 0, len(days))
	for _, d := range days {
		if d.DateTime == "" || seen[d.DateTime] {
			continue
		}
		seen[d.DateTime] = true
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateTime < out[j].DateTime
	})
	return out
}

// groupSleep returns one record per date, preferring the main sleep of the night.
func groupSleep(logs []domain.SleepLog, stagesOnly bool) map[string]domain.SleepLog {
	byDate := make(map[string]domain.SleepLog, len(logs))
	for _, rec := range logs {
		if rec.DateOfSleep == "" || (stagesOnly && !rec.IsStages()) {
			continue
		}
		cur, ok := byDate[rec.DateOfSleep]
		if !ok || (rec.IsMainSleep && !cur.IsMainSleep) {
			byDate[rec.DateOfSleep] = rec
		}
	}
	return byDate
}

func indexCalories(series []domain.TimeSeriesString) (map[string]*int, []int) {
	byDate := make(map[string]*int, len(series))
	var values []int
	for _, point := range series {
		if _, ok := byDate[point.DateTime]; ok {
			continue
		}
		v := ParseCalories(point.Value)
		byDate[point.DateTime] = v
		if v != nil {
			values = append(values, *v)
		}
	}
	return byDate, values
}

func mainStagesRecord(logs []domain.SleepLog) (domain.SleepLog, bool) {
	var found *domain.SleepLog
	for i := range logs {
		if !logs[i].IsStages() {
			continue
		}
		if logs[i].IsMainSleep {
			return logs[i], true
		}
		if found == nil {
			found = &logs[i]
		}
	}
	if found == nil {
		return domain.SleepLog{}, false
	}
	return *found, true
}

func totalMinutesAsleep(sleep domain.SleepResponse) *int {
	if sleep.Summary != nil && sleep.Summary.TotalMinutesAsleep != nil {
		return sleep.Summary.TotalMinutesAsleep
	}
	total, found := 0, false
	for _, rec := range sleep.Sleep {
		if v := rec.Asleep(); v != nil {
			total += *v
			found = true
		}
	}
	if !found {
		return nil
	}
	return &total
}

func totalDistance(distances []domain.ActivityDistance) *float64 {
	for _, d := range distances {
		if d.Activity == "total" {
			v := d.Distance
			return &v
		}
	}
	if len(distances) == 0 {
		return nil
	}
	v := distances[0].Distance
	return &v
}

func mean(values []int) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	avg := float64(sum) / float64(len(values))
	return &avg
}

func minutesToHours(minutes *int) *float64 {
	if minutes == nil {
		return nil
	}
	h := math.Round(float64(*minutes)/60*100) / 100
	return &h
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
