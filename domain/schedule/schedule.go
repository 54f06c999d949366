// Package schedule resolves the static table of recurring and one-off
// subscription charges for an arbitrary query period.
package schedule

import (
	"fmt"
	"time"
)

// Item is one fixed charge. Two shapes are supported and may coexist in a
// single schedule:
//
//   - window-recurring: MonthlyUSD (or YearlyUSD for annual billing) with a
//     validity window [Start, End]; End empty means open-ended.
//   - explicit-entry: Month pinned to one calendar month with an exact
//     invoiced amount (USD or BRL), used when the real invoice is known and
//     must not be reconstructed from a monthly rate.
//
// Month set selects the explicit shape. Items are defined at process start
// and never mutated. IDs are stable service identifiers, not unique across
// months.
type Item struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`

	MonthlyUSD float64 `yaml:"monthly_usd,omitempty"`
	YearlyUSD  float64 `yaml:"yearly_usd,omitempty"`
	Start      string  `yaml:"start,omitempty"` // YYYY-MM
	End        string  `yaml:"end,omitempty"`   // YYYY-MM inclusive, empty = open

	Month     string  `yaml:"month,omitempty"` // YYYY-MM
	AmountUSD float64 `yaml:"usd,omitempty"`
	AmountBRL float64 `yaml:"brl,omitempty"` // already billed in BRL, bypasses tax
}

// Resolved is an Item resolved against a query period with its month count
// and native charge.
type Resolved struct {
	ID     string
	Label  string
	Months int
	USD    float64
	BRL    float64 // nonzero only for explicit entries billed in BRL
}

// Schedule holds the fixed-cost table.
type Schedule struct {
	items []Item
}

// New builds a schedule, rejecting items that declare neither shape.
func New(items []Item) (*Schedule, error) {
	for _, it := range items {
		if it.Month == "" && it.Start == "" {
			return nil, fmt.Errorf("schedule: item %q declares neither a validity window nor an explicit month", it.ID)
		}
		if it.Month == "" && it.MonthlyUSD == 0 && it.YearlyUSD == 0 {
			return nil, fmt.Errorf("schedule: windowed item %q has no monthly_usd or yearly_usd", it.ID)
		}
	}
	return &Schedule{items: items}, nil
}

// CostsForPeriod resolves every item against [start, end]. Pure; always
// succeeds. Items with no overlap are excluded.
func (s *Schedule) CostsForPeriod(start, end time.Time) []Resolved {
	var out []Resolved
	for _, it := range s.items {
		if it.Month != "" {
			if r, ok := resolveExplicit(it, start, end); ok {
				out = append(out, r)
			}
			continue
		}
		if r, ok := resolveWindow(it, start, end); ok {
			out = append(out, r)
		}
	}
	return out
}

// resolveWindow counts whole months of overlap between the query period and
// the item's validity window by walking month boundaries from the later of
// the two starts. A partial month counts as one full month: this mirrors
// simple billing-cycle semantics, not pro-rata by day.
func resolveWindow(it Item, start, end time.Time) (Resolved, bool) {
	itemStart, err := parseMonth(it.Start)
	if err != nil {
		return Resolved{}, false
	}

	itemEnd := end
	if it.End != "" {
		m, err := parseMonth(it.End)
		if err != nil {
			return Resolved{}, false
		}
		// Day 28 keeps the inclusive end month counted without ever
		// spilling into the next one.
		itemEnd = m.AddDate(0, 0, 27)
	}

	d := start
	if itemStart.After(d) {
		d = itemStart
	}
	stop := end
	if itemEnd.Before(stop) {
		stop = itemEnd
	}

	months := 0
	for !d.After(stop) {
		months++
		d = d.AddDate(0, 1, 0)
	}
	if months == 0 {
		return Resolved{}, false
	}

	usd := it.YearlyUSD
	if it.MonthlyUSD != 0 {
		usd = it.MonthlyUSD * float64(months)
	}
	return Resolved{ID: it.ID, Label: it.Label, Months: months, USD: usd}, true
}

// resolveExplicit includes the entry when its calendar month overlaps the
// query period at all.
func resolveExplicit(it Item, start, end time.Time) (Resolved, bool) {
	m, err := parseMonth(it.Month)
	if err != nil {
		return Resolved{}, false
	}
	monthEnd := m.AddDate(0, 1, -1)
	if monthEnd.Before(start) || m.After(end) {
		return Resolved{}, false
	}
	return Resolved{
		ID:     it.ID,
		Label:  it.Label,
		Months: 1,
		USD:    it.AmountUSD,
		BRL:    it.AmountBRL,
	}, true
}

func parseMonth(s string) (time.Time, error) {
	return time.Parse("2006-01", s)
}
