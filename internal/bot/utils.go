package bot

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"padelbot/internal/models"
)

// CleanDate normalizes user-entered dates to YYYY-MM-DD. Accepted forms are
// the compact day+month ones like "5DEC", "25DEC" (current year assumed) and
// "25DEC2026", plus an already normalized date.
func CleanDate(raw string, now time.Time) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t.Format(models.DateLayout), nil
	}

	switch len(s) {
	case 4: // 5DEC
		s = "0" + s + fmt.Sprint(now.Year())
	case 5: // 25DEC
		s += fmt.Sprint(now.Year())
	case 8: // 5DEC2026
		s = "0" + s
	case 9: // 25DEC2026
	default:
		return "", fmt.Errorf("unrecognized date %q", raw)
	}

	if len(s) != 9 {
		return "", fmt.Errorf("unrecognized date %q", raw)
	}
	// time.Parse wants the month as "Dec", not "DEC".
	normalized := s[:2] + s[2:3] + strings.ToLower(s[3:5]) + s[5:]
	t, err := time.Parse("02Jan2006", normalized)
	if err != nil {
		return "", fmt.Errorf("unrecognized date %q", raw)
	}
	return t.Format(models.DateLayout), nil
}

// CleanTime normalizes "18h30" style input and checks the result against the
// allowed start times.
func CleanTime(raw string, allowed []string) (string, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.ReplaceAll(s, "h", ":")
	if len(s) == 4 && !strings.Contains(s, ":") {
		s = s[:2] + ":" + s[2:]
	}
	for _, t := range allowed {
		if t == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("%s is not an allowed time (allowed: %s)", raw, strings.Join(allowed, ", "))
}

// agendaLink builds a Google Agenda event-template URL for a booking.
func agendaLink(bk models.RemoteBooking, address string) string {
	endDate := bk.EndDate
	if endDate == "" {
		endDate = bk.Date
	}
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", bk.Title)
	q.Set("details", bk.Description)
	q.Set("location", address)
	q.Set("dates", agendaStamp(bk.Date, bk.Time)+"/"+agendaStamp(endDate, bk.EndTime))
	return "https://calendar.google.com/calendar/render?" + q.Encode()
}

// agendaStamp turns "2026-03-25" and "18:30" into the compact 20260325T183000.
func agendaStamp(date, clock string) string {
	return strings.ReplaceAll(date, "-", "") + "T" + strings.ReplaceAll(clock, ":", "") + "00"
}
