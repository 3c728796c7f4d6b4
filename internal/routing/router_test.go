package routing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testRouter(t *testing.T) *Router {
	t.Helper()
	c, err := NewClassifier(testAllowlist(), "server")
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(c)
}

func TestRouter_PanicBecomes500JSON(t *testing.T) {
	t.Parallel()

	r := testRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/api/panic", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/panic", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("content-type=%q", rec.Header().Get("Content-Type"))
	}
}

func TestRouter_MethodNotAllowed_JSONOnly(t *testing.T) {
	t.Parallel()

	r := testRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/api/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("content-type=%q", rec.Header().Get("Content-Type"))
	}
}

func TestRouter_PatternRouteParams(t *testing.T) {
	t.Parallel()

	r := testRouter(t)
	var gotDeal, gotTask string
	r.Handle(RouteClassPublicAPI, http.MethodPost, "/api/deals/{deal_id}/tasks/{task_id}/status", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotDeal = PathParam(req, "deal_id")
		gotTask = PathParam(req, "task_id")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/deals/d-42/tasks/t-7/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if gotDeal != "d-42" || gotTask != "t-7" {
		t.Fatalf("params deal=%q task=%q", gotDeal, gotTask)
	}
}

func TestRouter_PatternRouteMethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := testRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/api/deals/{deal_id}", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPut, "/api/deals/d-42", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestRouter_ExactRouteWinsOverPattern(t *testing.T) {
	t.Parallel()

	r := testRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/api/deals/{deal_id}", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/api/deals/summary", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/deals/summary", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestEntrypointClass_Fallback(t *testing.T) {
	t.Parallel()

	if got := entrypointClass(map[string]routeEntry{}, RouteClassUI); got != RouteClassUI {
		t.Fatalf("got=%q", got)
	}
}
