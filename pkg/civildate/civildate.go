// Package civildate handles civil calendar dates as YYYY-MM-DD strings.
// Dates carry no time component and no zone; every value is anchored to
// UTC midnight so the calendar day never shifts with the host timezone.
package civildate

import "time"

const Layout = "2006-01-02"

// Parse converts a YYYY-MM-DD string to a date. ok is false for empty,
// malformed, or impossible calendar input; callers treat that as "unknown",
// not as an error.
func Parse(text string) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(Layout, text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParsePtr is Parse for nullable call sites.
func ParsePtr(text string) *time.Time {
	t, ok := Parse(text)
	if !ok {
		return nil
	}
	return &t
}

// Format renders a date back to YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// FormatPtr renders a nullable date; nil in, nil out.
func FormatPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(Layout)
	return &s
}

// Display renders a stored date string for humans: "TBD" when empty, the
// raw input when unparseable, otherwise e.g. "Jun 1, 2025". Never fails.
func Display(text string) string {
	if text == "" {
		return "TBD"
	}
	t, ok := Parse(text)
	if !ok {
		return text
	}
	return t.Format("Jan 2, 2006")
}

// AddDays moves a date by whole calendar days with exact month/year
// rollover.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}
