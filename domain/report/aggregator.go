package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"costwatch/connectors/anthropic"
	"costwatch/domain/money"
	"costwatch/domain/schedule"
	"costwatch/metrics"
)

// ErrInvalidPeriod indicates an unparseable or inverted query period.
// The only aggregator error surfaced to callers; everything upstream
// degrades into a flagged report instead.
var ErrInvalidPeriod = errors.New("report: invalid period")

const dateLayout = "2006-01-02"

// UsageFetcher obtains the live USD spend for a date range.
type UsageFetcher interface {
	FetchCosts(ctx context.Context, start, end time.Time) (float64, error)
}

// Config holds the aggregator's tunables. One configurable implementation;
// historical behavioral variants (retry counts, fallback tables) are all
// expressed through these fields.
type Config struct {
	ProjectStart time.Time     // default period start
	BudgetBRL    float64       // total project budget
	Cooldown     time.Duration // upstream suppression after rate-limit exhaustion
}

// Aggregator orchestrates the usage fetcher, fixed-cost schedule, money
// converter, and result cache into the final report. It owns the
// degradation policy: any upstream failure yields a zero-usage report
// flagged APIAvailable=false, never an error.
type Aggregator struct {
	fetcher  UsageFetcher
	sched    *schedule.Schedule
	conv     money.Converter
	cache    *Cache
	cooldown *Cooldown
	mtr      *metrics.Collector
	cfg      Config
	now      func() time.Time
}

// NewAggregator wires the collaborators. mtr may be nil.
func NewAggregator(fetcher UsageFetcher, sched *schedule.Schedule, conv money.Converter, cache *Cache, cooldown *Cooldown, mtr *metrics.Collector, cfg Config) *Aggregator {
	return &Aggregator{
		fetcher:  fetcher,
		sched:    sched,
		conv:     conv,
		cache:    cache,
		cooldown: cooldown,
		mtr:      mtr,
		cfg:      cfg,
		now:      time.Now,
	}
}

// BuildReport builds the report for the requested period. Empty start and
// end default to the project start date and today. Returns ErrInvalidPeriod
// for malformed dates or start after end; never fails on upstream errors.
func (a *Aggregator) BuildReport(ctx context.Context, startStr, endStr string) (*Report, error) {
	start, end, err := a.resolvePeriod(startStr, endStr)
	if err != nil {
		return nil, err
	}

	key := start.Format(dateLayout) + "_" + end.Format(dateLayout)
	if cached, ok := a.cache.Get(key); ok {
		a.count(func(m *metrics.Collector) { m.CacheHits.Inc() })
		cached.Cached = true
		return &cached, nil
	}
	a.count(func(m *metrics.Collector) { m.CacheMisses.Inc() })

	usageUSD, available := a.fetchUsage(ctx, start, end)

	r := a.assemble(start, end, usageUSD, available)
	if available {
		a.cache.Put(key, *r)
	}
	return r, nil
}

// fetchUsage wraps the upstream call with the cooldown gate and the
// degradation policy. Returns the USD total and whether live data was
// obtained.
func (a *Aggregator) fetchUsage(ctx context.Context, start, end time.Time) (float64, bool) {
	if a.cooldown.Active() {
		a.count(func(m *metrics.Collector) { m.CooldownSkips.Inc() })
		slog.Info("report.fetch.cooldown", "until_active", true)
		return 0, false
	}

	began := a.now()
	usd, err := a.fetcher.FetchCosts(ctx, start, end)
	a.count(func(m *metrics.Collector) { m.FetchDuration.Observe(a.now().Sub(began).Seconds()) })

	if err == nil {
		return usd, true
	}

	a.count(func(m *metrics.Collector) { m.FetchFailures.Inc() })
	if errors.Is(err, anthropic.ErrRateLimited) {
		a.count(func(m *metrics.Collector) { m.RateLimitHits.Inc() })
		a.cooldown.Open(a.cfg.Cooldown)
		slog.Warn("report.cooldown.opened", "duration", a.cfg.Cooldown)
	}
	slog.Warn("report.usage.unavailable", "err", err)
	return 0, false
}

// assemble converts and sums all lines. Sums run at full precision and each
// figure is rounded exactly once on the way out.
func (a *Aggregator) assemble(start, end time.Time, usageUSD float64, available bool) *Report {
	usage := a.conv.Convert(usageUSD)

	resolved := a.sched.CostsForPeriod(start, end)
	amounts := lo.Map(resolved, func(r schedule.Resolved, _ int) money.Amount {
		if r.BRL != 0 {
			return a.conv.ConvertLocal(r.BRL)
		}
		return a.conv.Convert(r.USD)
	})

	items := make([]LineItem, len(resolved))
	for i, r := range resolved {
		amt := amounts[i]
		items[i] = LineItem{
			ID:       r.ID,
			Label:    r.Label,
			Months:   r.Months,
			USD:      money.Round2(amt.USD),
			BRL:      money.Round2(amt.Local),
			IOF:      money.Round2(amt.Tax),
			TotalBRL: money.Round2(amt.Total),
		}
	}

	fixedUSD := lo.SumBy(amounts, func(amt money.Amount) float64 { return amt.USD })
	fixedTotalBRL := lo.SumBy(amounts, func(amt money.Amount) float64 { return amt.Total })

	totalUSD := usage.USD + fixedUSD
	totalBRL := usage.Total + fixedTotalBRL

	return &Report{
		Period:   Period{Start: start.Format(dateLayout), End: end.Format(dateLayout)},
		Exchange: Exchange{USDBRL: a.conv.USDRate, IOFRate: a.conv.TaxRate},
		APITokens: UsageCosts{
			USD:      money.Round2(usage.USD),
			BRL:      money.Round2(usage.Local),
			IOF:      money.Round2(usage.Tax),
			TotalBRL: money.Round2(usage.Total),
		},
		APIAvailable: available,
		FixedCosts:   items,
		Totals: Totals{
			USD:       money.Round2(totalUSD),
			BRL:       money.Round2(totalBRL),
			BudgetBRL: a.cfg.BudgetBRL,
			BudgetPct: money.Round2(totalBRL / a.cfg.BudgetBRL * 100),
		},
		FetchedAt: a.now().UTC(),
	}
}

func (a *Aggregator) resolvePeriod(startStr, endStr string) (time.Time, time.Time, error) {
	start := a.cfg.ProjectStart
	if startStr != "" {
		var err error
		start, err = time.Parse(dateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start %q", ErrInvalidPeriod, startStr)
		}
	}

	end := a.now().UTC().Truncate(24 * time.Hour)
	if endStr != "" {
		var err error
		end, err = time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end %q", ErrInvalidPeriod, endStr)
		}
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidPeriod, start.Format(dateLayout), end.Format(dateLayout))
	}
	return start, end, nil
}

func (a *Aggregator) count(fn func(*metrics.Collector)) {
	if a.mtr != nil {
		fn(a.mtr)
	}
}
