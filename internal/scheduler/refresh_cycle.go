package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"livefolio/internal/domain"
	"livefolio/internal/modules/benchmarks"
	"livefolio/internal/modules/marketdata"
	"livefolio/internal/modules/options"
	"livefolio/internal/modules/schema"
	"livefolio/internal/modules/sectors"
	"livefolio/internal/modules/valuation"
)

// RefreshCycle builds one complete PortfolioSnapshot: load and validate the
// CSV sources, resolve one quote set for the full distinct symbol batch, then
// run valuation, options P&L, sector rollup, futures, and benchmarks against
// that single point-in-time quote mapping.
type RefreshCycle struct {
	log        zerolog.Logger
	sources    *schema.Sources
	market     *marketdata.Service
	valuation  *valuation.Service
	options    *options.Service
	sectors    *sectors.Service
	benchmarks *benchmarks.Service
	futures    []string
	benchSyms  []string
	timezone   *time.Location
}

// RefreshCycleConfig holds refresh cycle dependencies
type RefreshCycleConfig struct {
	Log              zerolog.Logger
	Sources          *schema.Sources
	Market           *marketdata.Service
	Valuation        *valuation.Service
	Options          *options.Service
	Sectors          *sectors.Service
	Benchmarks       *benchmarks.Service
	Futures          []string
	BenchmarkSymbols []string
	Timezone         *time.Location
}

// NewRefreshCycle creates a new refresh cycle
func NewRefreshCycle(cfg RefreshCycleConfig) *RefreshCycle {
	return &RefreshCycle{
		log:        cfg.Log.With().Str("job", "refresh_cycle").Logger(),
		sources:    cfg.Sources,
		market:     cfg.Market,
		valuation:  cfg.Valuation,
		options:    cfg.Options,
		sectors:    cfg.Sectors,
		benchmarks: cfg.Benchmarks,
		futures:    cfg.Futures,
		benchSyms:  cfg.BenchmarkSymbols,
		timezone:   cfg.Timezone,
	}
}

// Run executes one full cycle and returns the snapshot. Every failure mode
// short of total source loss degrades to a snapshot annotation; Run never
// returns an error.
func (c *RefreshCycle) Run(ctx context.Context, setPhase func(Phase)) domain.PortfolioSnapshot {
	start := time.Now()
	c.log.Info().Msg("Starting refresh cycle")

	snap := domain.PortfolioSnapshot{ID: uuid.New()}

	setPhase(PhaseFetching)

	equities := c.loadEquities(ctx, &snap)
	optionPositions := c.loadOptions(ctx, &snap)
	sectorMap := c.loadSectors(ctx, &snap)

	// One quote batch for the whole cycle: equities, option underlyings and
	// the futures panel. Benchmarks use the chart API separately.
	symbols := make([]string, 0, len(equities)+len(optionPositions)+len(c.futures))
	for _, pos := range equities {
		symbols = append(symbols, pos.Ticker)
	}
	for _, pos := range optionPositions {
		symbols = append(symbols, pos.Underlying)
	}
	symbols = append(symbols, c.futures...)

	quotes := c.market.Resolve(ctx, symbols)
	snap.PartialFailures = append(snap.PartialFailures, quotes.Failures...)

	snap.Benchmarks = c.benchmarks.Returns(ctx, c.benchSyms)

	setPhase(PhaseComputing)

	equityQuotes := make(map[string]domain.PriceQuote, len(equities))
	for _, pos := range equities {
		if q, ok := quotes.Quotes[marketdata.Normalize(pos.Ticker)]; ok {
			equityQuotes[pos.Ticker] = q
		}
	}

	rows, totals, valuationFailures := c.valuation.Value(equities, equityQuotes, c.market.LastKnown)
	snap.EquityRows = rows
	snap.Totals = totals
	snap.PartialFailures = append(snap.PartialFailures, valuationFailures...)

	annotateSectors(snap.EquityRows, sectorMap)
	snap.SectorBreakdown = c.sectors.Breakdown(snap.EquityRows, sectorMap)

	snap.Movers = valuation.Movers(snap.EquityRows, valuation.MoversCount)
	snap.TopGainers = valuation.TopGainers(snap.EquityRows, valuation.GainersCount)
	snap.TopLosers = valuation.TopLosers(snap.EquityRows, valuation.GainersCount)

	snap.OptionRows, snap.Options = c.options.Value(optionPositions)

	snap.Futures = c.valueFutures(quotes)

	snap.GeneratedAt = time.Now().In(c.timezone)

	c.log.Info().
		Dur("duration", time.Since(start)).
		Int("equities", len(snap.EquityRows)).
		Int("option_contracts", len(snap.OptionRows)).
		Int("partial_failures", len(snap.PartialFailures)).
		Msg("Refresh cycle completed")

	return snap
}

// loadEquities loads the required source. Absence is a config error on the
// snapshot; an unreadable source or zero valid rows is a source-level failure.
func (c *RefreshCycle) loadEquities(ctx context.Context, snap *domain.PortfolioSnapshot) []domain.EquityPosition {
	rawRows, err := c.sources.Rows(ctx, schema.KindEquities)
	if err != nil {
		if errors.Is(err, schema.ErrNotConfigured) {
			snap.ConfigError = "no equities source configured (set EQUITIES_CSV_URL or upload a CSV)"
			return nil
		}
		snap.PartialFailures = append(snap.PartialFailures, domain.PartialFailure{
			Subject: string(schema.KindEquities),
			Kind:    domain.FailureDataFetch,
			Reason:  err.Error(),
		})
		return nil
	}

	positions, failures, err := schema.ParseEquities(rawRows)
	if err != nil {
		snap.PartialFailures = append(snap.PartialFailures, domain.PartialFailure{
			Subject: string(schema.KindEquities),
			Kind:    domain.FailureSchema,
			Reason:  err.Error(),
		})
		return nil
	}
	snap.PartialFailures = append(snap.PartialFailures, failures...)

	if len(positions) == 0 {
		snap.PartialFailures = append(snap.PartialFailures, domain.PartialFailure{
			Subject: string(schema.KindEquities),
			Kind:    domain.FailureSchema,
			Reason:  "no valid equity rows remain",
		})
	}

	return positions
}

// loadOptions loads the optional options source; total absence just yields an
// empty options P&L.
func (c *RefreshCycle) loadOptions(ctx context.Context, snap *domain.PortfolioSnapshot) []domain.OptionPosition {
	rawRows, err := c.sources.Rows(ctx, schema.KindOptions)
	if err != nil {
		if !errors.Is(err, schema.ErrNotConfigured) {
			snap.PartialFailures = append(snap.PartialFailures, domain.PartialFailure{
				Subject: string(schema.KindOptions),
				Kind:    domain.FailureDataFetch,
				Reason:  err.Error(),
			})
		}
		return nil
	}

	positions, failures, err := schema.ParseOptions(rawRows)
	if err != nil {
		snap.PartialFailures = append(snap.PartialFailures, domain.PartialFailure{
			Subject: string(schema.KindOptions),
			Kind:    domain.FailureSchema,
			Reason:  err.Error(),
		})
		return nil
	}
	snap.PartialFailures = append(snap.PartialFailures, failures...)

	return positions
}

// loadSectors loads the optional sector map; absence yields an all-"Unmapped"
// breakdown.
func (c *RefreshCycle) loadSectors(ctx context.Context, snap *domain.PortfolioSnapshot) []domain.SectorMapEntry {
	rawRows, err := c.sources.Rows(ctx, schema.KindSectors)
	if err != nil {
		if !errors.Is(err, schema.ErrNotConfigured) {
			snap.PartialFailures = append(snap.PartialFailures, domain.PartialFailure{
				Subject: string(schema.KindSectors),
				Kind:    domain.FailureDataFetch,
				Reason:  err.Error(),
			})
		}
		return nil
	}

	entries, failures, err := schema.ParseSectors(rawRows)
	if err != nil {
		snap.PartialFailures = append(snap.PartialFailures, domain.PartialFailure{
			Subject: string(schema.KindSectors),
			Kind:    domain.FailureSchema,
			Reason:  err.Error(),
		})
		return nil
	}
	snap.PartialFailures = append(snap.PartialFailures, failures...)

	return entries
}

func (c *RefreshCycle) valueFutures(result marketdata.Result) []domain.ValuedFuture {
	out := make([]domain.ValuedFuture, 0, len(c.futures))
	for _, sym := range c.futures {
		q, ok := result.Quotes[marketdata.Normalize(sym)]
		if !ok {
			// Already reported by the market data client
			continue
		}
		out = append(out, domain.ValuedFuture{
			Symbol:  q.Ticker,
			Price:   q.Price,
			AsOf:    q.AsOf,
			Session: q.Session,
		})
	}
	return out
}

func annotateSectors(rows []domain.ValuedEquity, mapping []domain.SectorMapEntry) {
	bySector := make(map[string]string, len(mapping))
	for _, entry := range mapping {
		bySector[entry.Ticker] = entry.Sector
	}
	for i := range rows {
		if sector, ok := bySector[rows[i].Ticker]; ok {
			rows[i].Sector = sector
		} else {
			rows[i].Sector = sectors.UnmappedSector
		}
	}
}
