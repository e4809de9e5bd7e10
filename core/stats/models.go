package stats

import "time"

// Activity is one recorded user-statistics event. This is a separate,
// weaker signal than the Visitor records: retention is derived from it,
// while dashboard visitor totals come from the Visitor collection. The
// two numbers are not interchangeable.
type Activity struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	RecordedAt time.Time `json:"recorded_at"` // UTC
}

// Totals is the dashboard statistics payload.
type Totals struct {
	RetentionRate  float64   `json:"retentionRate"`
	TotalVisitors  int       `json:"totalVisitors"`
	ActiveVisitors int       `json:"activeVisitors"`
	LastUpdated    time.Time `json:"lastUpdated"`
}
