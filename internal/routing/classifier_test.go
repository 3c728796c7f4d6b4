package routing

import "testing"

func testAllowlist() Allowlist {
	return Allowlist{
		Version: 1,
		Entrypoints: map[string]Entrypoint{
			"server": {Routes: []Route{{Path: "/healthz", Methods: []string{"GET"}, RouteClass: "ops"}}},
		},
	}
}

func TestClassifier_SegmentBoundary(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier(testAllowlist(), "server")
	if err != nil {
		t.Fatal(err)
	}

	if got := c.Classify("/api/deals"); got != RouteClassPublicAPI {
		t.Fatalf("got=%q", got)
	}
	if got := c.Classify("/apix/deals"); got == RouteClassPublicAPI {
		t.Fatalf("unexpected public api: %q", got)
	}
	if got := c.Classify("/api/internal/rules/evaluate"); got != RouteClassInternalAPI {
		t.Fatalf("got=%q", got)
	}
	if got := c.Classify("/api/internalx"); got == RouteClassInternalAPI {
		t.Fatalf("unexpected internal api: %q", got)
	}
	if got := c.Classify("/api/deals/abc/export/ics"); got != RouteClassExport {
		t.Fatalf("got=%q", got)
	}
	if got := c.Classify("/api/deals/abc/exportx"); got == RouteClassExport {
		t.Fatalf("unexpected export: %q", got)
	}

	if got := c.Classify("/"); got != RouteClassUI {
		t.Fatalf("got=%q", got)
	}
}

func TestNewClassifier_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewClassifier(Allowlist{Version: 1, Entrypoints: map[string]Entrypoint{"server": {Routes: nil}}}, "server")
	if err == nil {
		t.Fatal("expected empty routes error")
	}

	_, err = NewClassifier(Allowlist{Version: 1, Entrypoints: map[string]Entrypoint{"server": {Routes: []Route{{}}}}}, "server")
	if err == nil {
		t.Fatal("expected invalid route error")
	}
}

func TestClassifier_AllClasses(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier(testAllowlist(), "server")
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]RouteClass{
		"/healthz":                  RouteClassOps,
		"/readyz":                   RouteClassOps,
		"/api/clause-map":           RouteClassPublicAPI,
		"/api/internal/rules/x":     RouteClassInternalAPI,
		"/api/deals/d1/export/ics":  RouteClassExport,
		"/assets/x":                 RouteClassStatic,
		"/static/x":                 RouteClassStatic,
		"/anything-else":            RouteClassUI,
		"/api/deals/d1/export/icsx": RouteClassExport,
	}
	for path, want := range cases {
		if got := c.Classify(path); got != want {
			t.Fatalf("path=%s got=%q want=%q", path, got, want)
		}
	}
}

func TestClassifier_PathPattern(t *testing.T) {
	t.Parallel()

	a := Allowlist{
		Version: 1,
		Entrypoints: map[string]Entrypoint{
			"server": {Routes: []Route{
				{Path: "/healthz", Methods: []string{"GET"}, RouteClass: "ops"},
				{Path: "/api/deals/{deal_id}/calendar-links", Methods: []string{"GET"}, RouteClass: "public_api"},
			}},
		},
	}
	c, err := NewClassifier(a, "server")
	if err != nil {
		t.Fatal(err)
	}

	if got := c.Classify("/api/deals/abc/calendar-links"); got != RouteClassPublicAPI {
		t.Fatalf("got=%q", got)
	}
}
