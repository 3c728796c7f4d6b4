package civildate

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "2025-06-01", want: "2025-06-01", ok: true},
		{in: "2024-02-29", want: "2024-02-29", ok: true},
		{in: "2025-02-29", ok: false},
		{in: "2025-13-01", ok: false},
		{in: "not-a-date", ok: false},
		{in: "2025-06", ok: false},
		{in: "", ok: false},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.in)
		if ok != tc.ok {
			t.Fatalf("Parse(%q) ok=%v want=%v", tc.in, ok, tc.ok)
		}
		if ok && Format(got) != tc.want {
			t.Fatalf("Parse(%q)=%q want=%q", tc.in, Format(got), tc.want)
		}
	}
}

func TestParseIsZoneIndependent(t *testing.T) {
	got, ok := Parse("2025-06-01")
	if !ok {
		t.Fatal("parse failed")
	}
	if got.Location() != time.UTC {
		t.Fatalf("location=%v want UTC", got.Location())
	}
	y, m, d := got.Date()
	if y != 2025 || m != time.June || d != 1 {
		t.Fatalf("components=%d-%d-%d", y, m, d)
	}
}

func TestFormatPtr(t *testing.T) {
	if FormatPtr(nil) != nil {
		t.Fatal("nil in must be nil out")
	}
	d := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := FormatPtr(&d); got == nil || *got != "2025-01-15" {
		t.Fatalf("got=%v", got)
	}
}

func TestDisplay(t *testing.T) {
	cases := []struct{ in, want string }{
		{in: "", want: "TBD"},
		{in: "garbage", want: "garbage"},
		{in: "2025-06-01", want: "Jun 1, 2025"},
		{in: "2025-12-25", want: "Dec 25, 2025"},
	}
	for _, tc := range cases {
		if got := Display(tc.in); got != tc.want {
			t.Fatalf("Display(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestAddDaysRollover(t *testing.T) {
	cases := []struct {
		start string
		days  int
		want  string
	}{
		{start: "2025-01-31", days: 1, want: "2025-02-01"},
		{start: "2025-12-31", days: 1, want: "2026-01-01"},
		{start: "2024-02-28", days: 1, want: "2024-02-29"},
		{start: "2025-03-01", days: -1, want: "2025-02-28"},
		{start: "2025-01-15", days: 45, want: "2025-03-01"},
	}
	for _, tc := range cases {
		start, _ := Parse(tc.start)
		if got := Format(AddDays(start, tc.days)); got != tc.want {
			t.Fatalf("AddDays(%s,%d)=%s want=%s", tc.start, tc.days, got, tc.want)
		}
	}
}
