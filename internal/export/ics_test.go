package export

import (
	"strings"
	"testing"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
)

func strPtr(s string) *string { return &s }

func sampleDeal() types.Deal {
	return types.Deal{
		DealUUID:        "d1",
		Name:            "Smith Purchase",
		PropertyAddress: "123 Main St, Nashville, TN 37201",
		Events: []types.DerivedEvent{
			{EventUUID: "e1", Title: "Binding Agreement Date", EventDate: strPtr("2025-01-15"), EventType: types.EventTypeMilestone},
			{EventUUID: "e2", Title: "Inspection; Period, Part 1", EventDate: strPtr("2025-01-25"), EventType: types.EventTypeDeadline},
			{EventUUID: "e3", Title: "No Date Yet", EventDate: nil, EventType: types.EventTypeDeadline},
		},
	}
}

func TestGenerateICS(t *testing.T) {
	t.Parallel()

	ics := GenerateICS(sampleDeal())

	if !strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n") {
		t.Fatalf("bad prefix: %q", ics[:30])
	}
	if !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Fatalf("bad suffix: %q", ics[len(ics)-30:])
	}
	if !strings.Contains(ics, "PRODID:-//SixOneFive//RF401 Contract Timeline//EN\r\n") {
		t.Fatal("missing PRODID")
	}
	if !strings.Contains(ics, "X-WR-CALNAME:Smith Purchase - Timeline\r\n") {
		t.Fatal("missing calendar name")
	}

	// Undated events are skipped.
	if strings.Count(ics, "BEGIN:VEVENT") != 2 {
		t.Fatalf("vevents=%d", strings.Count(ics, "BEGIN:VEVENT"))
	}
	if strings.Contains(ics, "No Date Yet") {
		t.Fatal("undated event rendered")
	}

	if !strings.Contains(ics, "UID:rf401-deal-d1-evt-0@rf401.local\r\n") {
		t.Fatal("missing uid")
	}
	if !strings.Contains(ics, "DTSTART;VALUE=DATE:20250115\r\n") || !strings.Contains(ics, "DTEND;VALUE=DATE:20250116\r\n") {
		t.Fatal("missing all-day dates")
	}
	if !strings.Contains(ics, "SUMMARY:123 Main St — [MILESTONE] Binding Agreement Date\r\n") {
		t.Fatal("missing summary with short address")
	}
	// Reserved characters are escaped.
	if !strings.Contains(ics, `Inspection\; Period\, Part 1`) {
		t.Fatal("missing escaped title")
	}
}

func TestICSFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want string
	}{
		{"Smith Purchase", "Smith Purchase_timeline.ics"},
		{"a/b:c*d", "abcd_timeline.ics"},
		{"///", "deal_timeline.ics"},
	}
	for _, tc := range cases {
		if got := ICSFilename(types.Deal{Name: tc.name}); got != tc.want {
			t.Fatalf("name=%q got=%q want=%q", tc.name, got, tc.want)
		}
	}
}

func TestBuildGCalURL(t *testing.T) {
	t.Parallel()

	deal := sampleDeal()
	u := BuildGCalURL(deal.Events[0], deal)
	if !strings.HasPrefix(u, "https://calendar.google.com/calendar/render?action=TEMPLATE") {
		t.Fatalf("url=%q", u)
	}
	if !strings.Contains(u, "&dates=20250115/20250116") {
		t.Fatalf("url=%q", u)
	}
	if BuildGCalURL(deal.Events[2], deal) != "" {
		t.Fatal("undated event should yield empty url")
	}
}

func TestBuildCalendarLinks(t *testing.T) {
	t.Parallel()

	deal := sampleDeal()
	// Duplicate of the first event produces the same URL and is dropped.
	deal.Events = append(deal.Events, deal.Events[0])

	links := BuildCalendarLinks(deal)
	if len(links) != 2 {
		t.Fatalf("links=%d", len(links))
	}
	if links[0].EventUUID != "e1" || links[0].EventDate != "2025-01-15" {
		t.Fatalf("link=%+v", links[0])
	}
}

func TestShortAddress_FallsBackToName(t *testing.T) {
	t.Parallel()

	if got := shortAddress(types.Deal{Name: "Some Deal"}); got != "Some Deal" {
		t.Fatalf("got=%q", got)
	}
}
