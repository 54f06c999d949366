// Package report assembles the budget-vs-actual cost summary: live API
// spend blended with fixed subscription charges, converted to BRL.
package report

import "time"

// Period is the reported date range, inclusive on both ends.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Exchange echoes the fixed conversion constants used for the report.
type Exchange struct {
	USDBRL  float64 `json:"usd_brl"`
	IOFRate float64 `json:"iof_rate"`
}

// UsageCosts is the converted live API spend.
type UsageCosts struct {
	USD      float64 `json:"usd"`
	BRL      float64 `json:"brl"`
	IOF      float64 `json:"iof"`
	TotalBRL float64 `json:"total_brl"`
}

// LineItem is one resolved fixed charge.
type LineItem struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Months   int     `json:"months"`
	USD      float64 `json:"usd"`
	BRL      float64 `json:"brl"`
	IOF      float64 `json:"iof"`
	TotalBRL float64 `json:"total_brl"`
}

// Totals are the blended grand totals against the project budget.
type Totals struct {
	USD       float64 `json:"usd"`
	BRL       float64 `json:"brl"`
	BudgetBRL float64 `json:"budget_brl"`
	BudgetPct float64 `json:"budget_pct"`
}

// Report is the final output of the aggregator. APIAvailable false marks a
// degraded report: live usage could not be obtained and zero was
// substituted. Cached marks a cache-sourced response.
type Report struct {
	Period       Period     `json:"period"`
	Exchange     Exchange   `json:"exchange"`
	APITokens    UsageCosts `json:"api_tokens"`
	APIAvailable bool       `json:"api_available"`
	FixedCosts   []LineItem `json:"fixed_costs"`
	Totals       Totals     `json:"totals"`
	FetchedAt    time.Time  `json:"fetched_at"`
	Cached       bool       `json:"_cached"`
}
