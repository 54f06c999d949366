package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"costwatch/connectors/anthropic"
	"costwatch/domain/auth"
	"costwatch/domain/report"
)

type stubBuilder struct {
	report *report.Report
	err    error
}

func (s stubBuilder) BuildReport(ctx context.Context, start, end string) (*report.Report, error) {
	return s.report, s.err
}

type stubProber struct{}

func (stubProber) Probe(ctx context.Context) anthropic.ProbeResult {
	return anthropic.ProbeResult{KeyPresent: true, KeyLength: 10}
}

func testServer(b reportBuilder) (*server, *auth.Sessions) {
	sessions := auth.NewSessions("test-secret", []string{"alice"}, time.Hour)
	return &server{
		agg:      b,
		sessions: sessions,
		probe:    stubProber{},
	}, sessions
}

func doRequest(t *testing.T, s *server, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := s.requireUser(s.handleCosts)
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func sessionCookieFor(t *testing.T, sessions *auth.Sessions, login string) *http.Cookie {
	t.Helper()
	tok, err := sessions.Token(auth.Principal{Login: login})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	return &http.Cookie{Name: sessionCookie, Value: tok}
}

func TestCostsRequiresSession(t *testing.T) {
	s, sessions := testServer(stubBuilder{report: &report.Report{APIAvailable: true}})

	rec := doRequest(t, s, "/api/costs", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no cookie: status = %d, want 401", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "Unauthorized" {
		t.Errorf(`body = %v, want {"error":"Unauthorized"}`, body)
	}

	rec = doRequest(t, s, "/api/costs", &http.Cookie{Name: sessionCookie, Value: "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	rec = doRequest(t, s, "/api/costs", sessionCookieFor(t, sessions, "mallory"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("non-allowlisted: status = %d, want 401", rec.Code)
	}
}

func TestCostsReturnsReport(t *testing.T) {
	want := &report.Report{
		APIAvailable: true,
		Totals:       report.Totals{USD: 12.34, BudgetBRL: 536500},
	}
	s, sessions := testServer(stubBuilder{report: want})

	rec := doRequest(t, s, "/api/costs?start=2025-10-01&end=2025-12-31", sessionCookieFor(t, sessions, "alice"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got report.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Totals.USD != 12.34 {
		t.Errorf("Totals.USD = %v", got.Totals.USD)
	}
}

func TestCostsDegradedStill200(t *testing.T) {
	s, sessions := testServer(stubBuilder{report: &report.Report{APIAvailable: false}})

	rec := doRequest(t, s, "/api/costs", sessionCookieFor(t, sessions, "alice"))
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded report: status = %d, want 200", rec.Code)
	}

	var got report.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.APIAvailable {
		t.Error("api_available = true, want false")
	}
}

func TestCostsInvalidPeriodIs400(t *testing.T) {
	s, sessions := testServer(stubBuilder{err: report.ErrInvalidPeriod})

	rec := doRequest(t, s, "/api/costs?start=garbage", sessionCookieFor(t, sessions, "alice"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMeEndpoint(t *testing.T) {
	s, sessions := testServer(stubBuilder{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(sessionCookieFor(t, sessions, "alice"))
	rec := httptest.NewRecorder()
	if err := s.handleMe(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Authenticated bool           `json:"authenticated"`
		User          auth.Principal `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Authenticated || body.User.Login != "alice" {
		t.Errorf("body = %+v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec = httptest.NewRecorder()
	if err := s.handleMe(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /me status = %d, want 401", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	s, _ := testServer(stubBuilder{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	if err := s.handleLogout(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	cookies := rec.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == sessionCookie {
			found = true
			if c.Value != "" || c.MaxAge >= 0 {
				t.Errorf("session cookie not cleared: %+v", c)
			}
		}
	}
	if !found {
		t.Error("no session cookie in logout response")
	}
}
