// Package csv writes cost reports as CSV for spreadsheet import.
package csv

import (
	"encoding/csv"
	"os"
	"strconv"

	"costwatch/domain/report"
)

// WriteReportCSV writes the report's line items (live API spend plus fixed
// costs) to path. Figures are the already-rounded display values.
func WriteReportCSV(path string, r *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"id", "label", "months", "usd", "brl", "iof", "total_brl"}); err != nil {
		return err
	}

	usage := []string{
		"api_tokens", "Anthropic API usage", "",
		fmtAmount(r.APITokens.USD), fmtAmount(r.APITokens.BRL),
		fmtAmount(r.APITokens.IOF), fmtAmount(r.APITokens.TotalBRL),
	}
	if err := w.Write(usage); err != nil {
		return err
	}

	for _, it := range r.FixedCosts {
		row := []string{
			it.ID, it.Label, strconv.Itoa(it.Months),
			fmtAmount(it.USD), fmtAmount(it.BRL), fmtAmount(it.IOF), fmtAmount(it.TotalBRL),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	totals := []string{
		"total", "Total", "",
		fmtAmount(r.Totals.USD), "", "", fmtAmount(r.Totals.BRL),
	}
	if err := w.Write(totals); err != nil {
		return err
	}

	return w.Error()
}

func fmtAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
