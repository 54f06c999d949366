// Package report implements the one-shot report subcommand: build the cost
// report for a period and print it, without going through HTTP or auth.
package report

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"costwatch/connectors/anthropic"
	"costwatch/connectors/config"
	ccsv "costwatch/connectors/csv"
	"costwatch/domain/money"
	"costwatch/domain/report"
	"costwatch/domain/schedule"
)

// Run executes the report subcommand.
//
// Usage:
//
//	costwatch report [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-out costs.csv] [-json]
func Run(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	start := fs.String("start", "", "period start (YYYY-MM-DD), default project start")
	end := fs.String("end", "", "period end (YYYY-MM-DD), default today")
	out := fs.String("out", "", "write line items to this CSV file")
	asJSON := fs.Bool("json", false, "print the full report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	projectStart, err := cfg.ProjectStart()
	if err != nil {
		return err
	}
	sched, err := schedule.New(cfg.FixedCosts)
	if err != nil {
		return err
	}

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
		nil,
		report.Config{
			ProjectStart: projectStart,
			BudgetBRL:    cfg.Project.BudgetBRL,
			Cooldown:     cfg.CooldownDuration(),
		},
	)

	r, err := agg.BuildReport(context.Background(), *start, *end)
	if err != nil {
		return err
	}

	if *asJSON {
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
	} else {
		printTable(r)
	}

	if *out != "" {
		if err := ccsv.WriteReportCSV(*out, r); err != nil {
			return fmt.Errorf("writing %s: %w", *out, err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *out)
	}
	return nil
}

func printTable(r *report.Report) {
	fmt.Printf("Period %s .. %s  (USD/BRL %.2f, IOF %.1f%%)\n\n",
		r.Period.Start, r.Period.End, r.Exchange.USDBRL, r.Exchange.IOFRate*100)

	fmt.Printf("%-28s %7s %12s %12s %10s %14s\n", "item", "months", "usd", "brl", "iof", "total_brl")
	fmt.Printf("%-28s %7s %12.2f %12.2f %10.2f %14.2f\n",
		"Anthropic API usage", "-", r.APITokens.USD, r.APITokens.BRL, r.APITokens.IOF, r.APITokens.TotalBRL)
	if !r.APIAvailable {
		fmt.Printf("%-28s (live usage unavailable, showing zero)\n", "")
	}
	for _, it := range r.FixedCosts {
		fmt.Printf("%-28s %7d %12.2f %12.2f %10.2f %14.2f\n",
			it.Label, it.Months, it.USD, it.BRL, it.IOF, it.TotalBRL)
	}

	fmt.Printf("\nTotal: USD %.2f / BRL %.2f | budget BRL %.0f (%.2f%% used)\n",
		r.Totals.USD, r.Totals.BRL, r.Totals.BudgetBRL, r.Totals.BudgetPct)
}
