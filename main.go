package main

import (
	"fmt"
	"log/slog"
	"os"

	cmdreport "costwatch/command/report"
	cmdweb "costwatch/command/web"
)

// costwatch is a small internal cost-observability endpoint: it aggregates
// Anthropic API spend with fixed recurring subscription charges, converts
// everything to BRL with IOF, and reports budget-vs-actual.
//
// Usage:
//
//	costwatch web [-addr :8080] [-ui ./ui/dist]
//	costwatch report [-start 2025-10-01] [-end 2025-12-31] [-out costs.csv] [-json]
//
// ENV: CONFIG_PATH points to the YAML config (default ./config.yml);
// ANTHROPIC_ADMIN_API_KEY, JWT_SECRET, GITHUB_CLIENT_ID/SECRET, and
// ALLOWED_GITHUB_USERS override their config counterparts.
func main() {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(h))

	args := os.Args
	if len(args) > 1 {
		sub := args[1]
		rest := append([]string{}, args[2:]...)
		switch sub {
		case "web":
			if err := cmdweb.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "report":
			if err := cmdreport.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: costwatch web [-addr :8080] [-ui ./ui/dist] | report [-start <date>] [-end <date>] [-out <csv>] [-json]\nENV: set CONFIG_PATH to point to a YAML config file (default ./config.yml)")
	os.Exit(2)
}
