package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"costwatch/connectors/anthropic"
	gh "costwatch/connectors/github"
	"costwatch/domain/auth"
	"costwatch/domain/report"
)

const (
	sessionCookie = "session"
	stateCookie   = "oauth_state"
)

// reportBuilder is the aggregator surface the handlers need.
type reportBuilder interface {
	BuildReport(ctx context.Context, start, end string) (*report.Report, error)
}

// prober is the debug surface of the billing client.
type prober interface {
	Probe(ctx context.Context) anthropic.ProbeResult
}

type server struct {
	agg      reportBuilder
	sessions *auth.Sessions
	login    *gh.OAuth
	probe    prober
}

// requireUser verifies the session cookie and allowlist. The only hard
// reject in the system: everything past this point degrades instead of
// failing.
func (s *server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := s.principal(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		c.Set("user", p)
		return next(c)
	}
}

func (s *server) principal(c echo.Context) (*auth.Principal, error) {
	cookie, err := c.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, auth.ErrUnauthorized
	}
	return s.sessions.Verify(cookie.Value)
}

// handleCosts serves the aggregate report. Upstream failures never fail the
// request; the api_available flag is the sole degradation signal.
func (s *server) handleCosts(c echo.Context) error {
	r, err := s.agg.BuildReport(c.Request().Context(), c.QueryParam("start"), c.QueryParam("end"))
	if err != nil {
		if errors.Is(err, report.ErrInvalidPeriod) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		slog.Error("costs.report.failed", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, r)
}

func (s *server) handleDebug(c echo.Context) error {
	return c.JSON(http.StatusOK, s.probe.Probe(c.Request().Context()))
}

func (s *server) handleMe(c echo.Context) error {
	p, err := s.principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]any{"authenticated": false})
	}
	return c.JSON(http.StatusOK, map[string]any{"authenticated": true, "user": p})
}

func (s *server) handleLogin(c echo.Context) error {
	state, err := randomState()
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secureCookies(c),
	})
	return c.Redirect(http.StatusFound, s.login.AuthURL(state))
}

func (s *server) handleCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return c.Redirect(http.StatusFound, "/?error=no_code")
	}
	if st, err := c.Cookie(stateCookie); err != nil || st.Value == "" || st.Value != c.QueryParam("state") {
		return c.Redirect(http.StatusFound, "/?error=bad_state")
	}

	p, err := s.login.UserForCode(c.Request().Context(), code)
	if err != nil {
		slog.Error("auth.callback.failed", "err", err)
		return c.Redirect(http.StatusFound, "/?error=token_failed")
	}
	if !s.sessions.Allowed(p.Login) {
		slog.Warn("auth.login.denied", "login", p.Login)
		return c.Redirect(http.StatusFound, "/?error=unauthorized")
	}

	token, err := s.sessions.Token(*p)
	if err != nil {
		slog.Error("auth.token.failed", "err", err)
		return c.Redirect(http.StatusFound, "/?error=server_error")
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secureCookies(c),
	})
	return c.Redirect(http.StatusFound, "/")
}

func (s *server) handleLogout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secureCookies(c),
	})
	return c.Redirect(http.StatusFound, "/")
}

// secureCookies disables the Secure flag for localhost development.
func secureCookies(c echo.Context) bool {
	host := c.Request().Host
	return host != "" &&
		!strings.HasPrefix(host, "localhost") &&
		!strings.HasPrefix(host, "127.0.0.1")
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
