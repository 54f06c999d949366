// Package money converts USD amounts into the reporting currency (BRL),
// applying the IOF transaction tax on converted charges.
package money

import "math"

// Amount is a converted monetary value. Immutable once computed.
// Invariant: Total == Local + Tax.
type Amount struct {
	USD   float64
	Local float64
	Tax   float64
	Total float64
}

// Converter applies a fixed USD exchange rate and transaction tax rate.
// The rates are constants for the lifetime of the process; there is no
// live-rate lookup.
type Converter struct {
	USDRate float64 // reporting-currency units per USD
	TaxRate float64 // e.g. 0.035 for IOF
}

// Convert converts a USD amount into the reporting currency with tax.
// Values are kept at full precision; round only at the point of exposure
// (see Round2) so that summing many line items does not compound error.
func (c Converter) Convert(usd float64) Amount {
	local := usd * c.USDRate
	tax := local * c.TaxRate
	return Amount{USD: usd, Local: local, Tax: tax, Total: local + tax}
}

// ConvertLocal handles a charge already billed and taxed in the reporting
// currency. No tax is applied again; the USD figure is derived for display.
func (c Converter) ConvertLocal(local float64) Amount {
	return Amount{USD: local / c.USDRate, Local: local, Tax: 0, Total: local}
}

// Round2 rounds half-up to two decimal places.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
