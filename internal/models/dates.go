package models

import "time"

const DateLayout = "2006-01-02"

// DaysUntil returns the whole-day difference between a normalized
// YYYY-MM-DD date and now, ignoring time of day. Negative means the date is
// in the past.
func DaysUntil(date string, now time.Time) (int, error) {
	target, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, err
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(target.Sub(today).Hours() / 24), nil
}

// DateWithOffset formats today+offset days as YYYY-MM-DD.
func DateWithOffset(now time.Time, offset int) string {
	return now.AddDate(0, 0, offset).Format(DateLayout)
}
