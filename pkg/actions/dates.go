package actions

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Due-date expressions are resolved relative to the meeting's creation
// timestamp, never the wall clock, so re-running extraction later yields the
// same dates.

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var (
	reByWeekday   = regexp.MustCompile(`(?i)\b(?:by|due|before)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	reNextWeekday = regexp.MustCompile(`(?i)\bnext\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	reByDate      = regexp.MustCompile(`(?i)\b(?:by|due|on)\s+(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
	reEndOf       = regexp.MustCompile(`(?i)\b(?:by\s+)?end\s+of\s+(?:the\s+)?(day|week|month)\b`)
	reTomorrow    = regexp.MustCompile(`(?i)\btomorrow\b`)
	reToday       = regexp.MustCompile(`(?i)\btoday\b`)
)

// ResolveDueDate finds the first due-date expression in text and resolves it
// relative to ref. It returns the resolved calendar date (midnight UTC), the
// matched expression for removal from the description, and whether a match
// was found.
func ResolveDueDate(text string, ref time.Time) (*time.Time, string, bool) {
	if m := reByWeekday.FindStringSubmatch(text); m != nil {
		d := nextWeekday(ref, weekdayNames[strings.ToLower(m[1])])
		return &d, m[0], true
	}
	if m := reNextWeekday.FindStringSubmatch(text); m != nil {
		d := nextWeekday(ref, weekdayNames[strings.ToLower(m[1])])
		return &d, m[0], true
	}
	if m := reByDate.FindStringSubmatch(text); m != nil {
		if d, ok := resolveExplicitDate(m, ref); ok {
			return &d, m[0], true
		}
	}
	if m := reEndOf.FindStringSubmatch(text); m != nil {
		d := resolveEndOf(strings.ToLower(m[1]), ref)
		return &d, m[0], true
	}
	if m := reTomorrow.FindString(text); m != "" {
		d := dateOf(ref.AddDate(0, 0, 1))
		return &d, m, true
	}
	if m := reToday.FindString(text); m != "" {
		d := dateOf(ref)
		return &d, m, true
	}
	return nil, "", false
}

// nextWeekday returns the first occurrence of wd strictly after ref's date.
func nextWeekday(ref time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(ref.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return dateOf(ref.AddDate(0, 0, days))
}

func resolveExplicitDate(m []string, ref time.Time) (time.Time, bool) {
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	year := ref.Year()
	if m[3] != "" {
		y, _ := strconv.Atoi(m[3])
		if y < 100 {
			y += 2000
		}
		year = y
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// A bare M/D that already passed this year means next year.
	if m[3] == "" && d.Before(dateOf(ref)) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}

func resolveEndOf(unit string, ref time.Time) time.Time {
	switch unit {
	case "day":
		return dateOf(ref)
	case "week":
		days := (int(time.Sunday) - int(ref.Weekday()) + 7) % 7
		return dateOf(ref.AddDate(0, 0, days))
	case "month":
		firstOfNext := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return firstOfNext.AddDate(0, 0, -1)
	}
	return dateOf(ref)
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
