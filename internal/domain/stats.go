package domain

// DayStats accumulates per-day OTP counts broken down by country and service.
type DayStats struct {
	Total     int            `json:"total"`
	Countries map[string]int `json:"countries"`
	Services  map[string]int `json:"services"`
}

// DailyStats is the whole-document rollup keyed by "2006-01-02" (UTC).
type DailyStats struct {
	Days map[string]DayStats `json:"days"`
}

// TrafficSummary aggregates stats over a span of days.
type TrafficSummary struct {
	Total     int            `json:"total"`
	Countries map[string]int `json:"countries"`
	Services  map[string]int `json:"services"`
	Dates     []string       `json:"dates,omitempty"`
}
