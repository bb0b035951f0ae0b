package statistics

import "time"

// Statistics are the dashboard counters. They are computed on demand and
// carry no staleness guarantee.
type Statistics struct {
	TodayInquiries   int64     `json:"today_inquiries" db:"today_inquiries"`
	PendingApprovals int64     `json:"pending_approvals" db:"pending_approvals"`
	MonthlyCompleted int64     `json:"monthly_completed" db:"monthly_completed"`
	Escalations      int64     `json:"escalations" db:"escalations"`
	GeneratedAt      time.Time `json:"generated_at" db:"-"`
}

// Windows are the time bounds the counters are evaluated against.
type Windows struct {
	DayStart   time.Time
	DayEnd     time.Time
	MonthStart time.Time
	Now        time.Time
}

// WindowsAt computes the local day and month windows containing now.
func WindowsAt(now time.Time, loc *time.Location) Windows {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Windows{
		DayStart:   dayStart,
		DayEnd:     dayStart.AddDate(0, 0, 1),
		MonthStart: time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc),
		Now:        local,
	}
}
