// Package export builds the calendar-facing renditions of a deal's derived
// timeline: an ICS document and per-event Google Calendar links. It reads
// events read-only and never recomputes dates; events without a date are
// excluded here and listed as TBD by the UI instead.
package export

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
	"github.com/615RealtyGuy/rf401-timeline/pkg/civildate"
)

const icsDateLayout = "20060102"

func icsEscape(text string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return r.Replace(text)
}

// shortAddress trims a property address to its street line for compact
// event titles, falling back to the deal name.
func shortAddress(deal types.Deal) string {
	if deal.PropertyAddress != "" {
		first, _, _ := strings.Cut(deal.PropertyAddress, ",")
		return strings.TrimSpace(first)
	}
	return deal.Name
}

// GenerateICS renders the deal's dated events as all-day VEVENTs in a
// VCALENDAR document with CRLF line endings. Undated events are skipped.
func GenerateICS(deal types.Deal) string {
	addr := shortAddress(deal)

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//SixOneFive//RF401 Contract Timeline//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:" + icsEscape(deal.Name) + " - Timeline",
	}

	for idx, event := range deal.Events {
		if event.EventDate == nil {
			continue
		}
		start, ok := civildate.Parse(*event.EventDate)
		if !ok {
			continue
		}
		end := civildate.AddDays(start, 1)

		uid := fmt.Sprintf("rf401-deal-%s-evt-%d@rf401.local", deal.DealUUID, idx)
		typeLabel := strings.ToUpper(event.EventType)

		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+uid,
			"DTSTART;VALUE=DATE:"+start.Format(icsDateLayout),
			"DTEND;VALUE=DATE:"+end.Format(icsDateLayout),
			"SUMMARY:"+icsEscape(addr)+" — ["+typeLabel+"] "+icsEscape(event.Title),
			"DESCRIPTION:"+icsEscape(deal.Name)+" - "+icsEscape(event.Title),
			"END:VEVENT",
		)
	}

	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

// ICSFilename derives a download filename from the deal name, keeping only
// characters that are safe across platforms.
func ICSFilename(deal types.Deal) string {
	var b strings.Builder
	for _, r := range deal.Name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	safe := strings.TrimSpace(b.String())
	if safe == "" {
		safe = "deal"
	}
	return safe + "_timeline.ics"
}

// BuildGCalURL returns a Google Calendar "render" link for one dated
// event, or "" when the event has no date.
func BuildGCalURL(event types.DerivedEvent, deal types.Deal) string {
	if event.EventDate == nil {
		return ""
	}
	start, ok := civildate.Parse(*event.EventDate)
	if !ok {
		return ""
	}
	end := civildate.AddDays(start, 1)

	addr := shortAddress(deal)
	title := addr + " — [" + strings.ToUpper(event.EventType) + "] " + event.Title
	details := deal.Name + " — " + event.Title

	return "https://calendar.google.com/calendar/render?action=TEMPLATE" +
		"&text=" + url.QueryEscape(title) +
		"&dates=" + start.Format(icsDateLayout) + "/" + end.Format(icsDateLayout) +
		"&details=" + url.QueryEscape(details)
}

// CalendarLink pairs a derived event with its Google Calendar URL for the
// calendar-links API response.
type CalendarLink struct {
	EventUUID string `json:"event_id"`
	Title     string `json:"title"`
	EventDate string `json:"event_date"`
	URL       string `json:"url"`
}

// BuildCalendarLinks returns one link per dated event, deduplicated by URL
// in event order.
func BuildCalendarLinks(deal types.Deal) []CalendarLink {
	links := make([]CalendarLink, 0, len(deal.Events))
	seen := make(map[string]bool)
	for _, event := range deal.Events {
		u := BuildGCalURL(event, deal)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		links = append(links, CalendarLink{
			EventUUID: event.EventUUID,
			Title:     event.Title,
			EventDate: *event.EventDate,
			URL:       u,
		})
	}
	return links
}
