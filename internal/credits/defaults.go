package credits

import "time"

// DailyAllowance is the balance every user is restored to at the first ledger
// access of each calendar day.
const DailyAllowance = 20

// civilDate truncates t to its calendar date in loc, expressed as midnight UTC
// so dates compare equal regardless of zone.
func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func normalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}
