package domain

// Upstream payload shapes. Only the fields the dashboard reads are modelled; the raw
// bodies are relayed verbatim elsewhere.

type ActivityResponse struct {
	Summary          *ActivitySummary   `json:"summary"`
	ActivityCalories []TimeSeriesString `json:"activities-activityCalories"`
}

type ActivitySummary struct {
	Steps            *int               `json:"steps"`
	Floors           *int               `json:"floors"`
	CaloriesOut      *int               `json:"caloriesOut"`
	ActivityCalories *int               `json:"activityCalories"`
	Distances        []ActivityDistance `json:"distances"`
}

type ActivityDistance struct {
	Activity string  `json:"activity"`
	Distance float64 `json:"distance"`
}

// TimeSeriesString is a Fitbit time series point whose value is string encoded.
type TimeSeriesString struct {
	DateTime string `json:"dateTime"`
	Value    string `json:"value"`
}

type HeartResponse struct {
	ActivitiesHeart []HeartDay `json:"activities-heart"`
}

type HeartDay struct {
	DateTime string         `json:"dateTime"`
	Value    *HeartDayValue `json:"value"`
}

type HeartDayValue struct {
	RestingHeartRate *int `json:"restingHeartRate"`
}

// RestingHeartRate returns nil when the day has no recorded resting heart rate.
func (d HeartDay) RestingHeartRate() *int {
	if d.Value == nil || d.Value.RestingHeartRate == nil || *d.Value.RestingHeartRate <= 0 {
		return nil
	}
	return d.Value.RestingHeartRate
}

const SleepTypeStages = "stages"

type SleepResponse struct {
	Sleep   []SleepLog    `json:"sleep"`
	Summary *SleepSummary `json:"summary"`
}

type SleepLog struct {
	DateOfSleep   string `json:"dateOfSleep"`
	Duration      int64  `json:"duration"`
	Efficiency    *int   `json:"efficiency"`
	IsMainSleep   bool   `json:"isMainSleep"`
	MinutesAsleep *int   `json:"minutesAsleep"`
	MinutesAwake  *int   `json:"minutesAwake"`
	TimeInBed     *int   `json:"timeInBed"`
	Type          string `json:"type"`
}

func (l SleepLog) IsStages() bool {
	return l.Type == SleepTypeStages
}

// Asleep returns nil when the record has no positive minutes asleep.
func (l SleepLog) Asleep() *int {
	if l.MinutesAsleep == nil || *l.MinutesAsleep <= 0 {
		return nil
	}
	return l.MinutesAsleep
}

type SleepSummary struct {
	TotalMinutesAsleep *int `json:"totalMinutesAsleep"`
	TotalTimeInBed     *int `json:"totalTimeInBed"`
	TotalSleepRecords  *int `json:"totalSleepRecords"`
}

type ProfileResponse struct {
	User ProfileUser `json:"user"`
}

type ProfileUser struct {
	EncodedID   string `json:"encodedId"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	Timezone    string `json:"timezone"`
}
