package web

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"costwatch/connectors/anthropic"
	"costwatch/connectors/config"
	gh "costwatch/connectors/github"
	"costwatch/domain/auth"
	"costwatch/domain/money"
	"costwatch/domain/report"
	"costwatch/domain/schedule"
	"costwatch/metrics"
)

// Run starts the Echo web server serving the cost dashboard API and an
// optional SPA dashboard.
//
// Usage:
//
//	costwatch web [-addr :8080] [-ui ./ui/dist]
//
// Endpoints:
//
//	GET /api/costs?start=YYYY-MM-DD&end=YYYY-MM-DD -> cost report (auth required)
//	GET /api/costs/debug                           -> admin-key probe (auth required)
//	GET /api/auth/me                               -> session principal (auth required)
//	GET /auth/login | /auth/callback | /auth/logout -> GitHub OAuth flow
//	GET /metrics                                   -> Prometheus metrics
//
// Config comes from CONFIG_PATH (default ./config.yml); secrets from env.
func Run(args []string) error {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	addr := fs.String("addr", "", "http listen address (host:port), overrides config")
	uiDir := fs.String("ui", "", "directory containing built UI, overrides config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *uiDir != "" {
		cfg.UIDir = *uiDir
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("web: JWT_SECRET is required")
	}

	projectStart, err := cfg.ProjectStart()
	if err != nil {
		return err
	}
	sched, err := schedule.New(cfg.FixedCosts)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	mtr := metrics.New(reg)

	client := anthropic.NewClient(cfg.Anthropic.APIKey, anthropic.Options{
		BaseURL:     cfg.Anthropic.BaseURL,
		Retries:     cfg.Anthropic.Retries,
		BackoffBase: cfg.Backoff(),
		BucketWidth: cfg.Anthropic.BucketWidth,
	})

	agg := report.NewAggregator(
		client,
		sched,
		money.Converter{USDRate: cfg.Exchange.USDBRL, TaxRate: cfg.Exchange.IOFRate},
		report.NewCache(cfg.CacheTTL()),
		report.NewCooldown(),
		mtr,
		report.Config{
			ProjectStart: projectStart,
			BudgetBRL:    cfg.Project.BudgetBRL,
			Cooldown:     cfg.CooldownDuration(),
		},
	)

	s := &server{
		agg:      agg,
		sessions: auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.AllowedUsers, 7*24*time.Hour),
		login:    gh.NewOAuth(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.Auth.CallbackURL),
		probe:    client,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(requestMetrics(mtr))

	e.GET("/api/costs", s.handleCosts, s.requireUser)
	e.GET("/api/costs/debug", s.handleDebug, s.requireUser)
	e.GET("/api/auth/me", s.handleMe)
	e.GET("/auth/login", s.handleLogin)
	e.GET("/auth/callback", s.handleCallback)
	e.GET("/auth/logout", s.handleLogout)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	mountUI(e, cfg.UIDir)

	return e.Start(cfg.Listen)
}

// requestMetrics counts requests by method, route, and status.
func requestMetrics(mtr *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			mtr.RequestsTotal.WithLabelValues(c.Request().Method, c.Path(), fmt.Sprint(status)).Inc()
			return err
		}
	}
}

// mountUI serves a built SPA when index.html exists, with index fallback
// for non-API 404s so client-side routing keeps working.
func mountUI(e *echo.Echo, dir string) {
	indexPath := filepath.Join(dir, "index.html")
	fi, err := os.Stat(indexPath)
	if err != nil || fi.IsDir() {
		return
	}

	e.Static("/", dir)
	e.GET("/", func(c echo.Context) error { return c.File(indexPath) })

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if he, ok := err.(*echo.HTTPError); ok && he.Code == http.StatusNotFound {
			p := c.Request().URL.Path
			if !strings.HasPrefix(p, "/api") && !strings.HasPrefix(p, "/auth") {
				_ = c.File(indexPath)
				return
			}
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}
