package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"livefolio/internal/domain"
)

// QuoteRepository persists the last successfully fetched price per symbol.
// It exists only so that a position whose ticker cannot be priced in the
// current cycle can still be annotated with its last-known price; it is not a
// snapshot history store.
type QuoteRepository struct {
	*BaseRepository
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *sql.DB, log zerolog.Logger) *QuoteRepository {
	return &QuoteRepository{
		BaseRepository: NewBase(db, log.With().Str("repo", "quotes").Logger()),
	}
}

// Upsert records the latest quote for a symbol. Prices are stored as text to
// keep decimal exactness through the round trip.
func (r *QuoteRepository) Upsert(q domain.PriceQuote) error {
	query := `
		INSERT INTO last_quotes (symbol, price, as_of)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET price = excluded.price, as_of = excluded.as_of
	`

	if _, err := r.db.Exec(query, q.Ticker, q.Price.String(), q.AsOf.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to upsert quote for %s: %w", q.Ticker, err)
	}
	return nil
}

// LastKnown returns the most recently stored price for a symbol, or ok=false
// when the symbol has never been priced.
func (r *QuoteRepository) LastKnown(symbol string) (decimal.Decimal, time.Time, bool) {
	var priceStr, asOfStr string
	err := r.db.QueryRow(`SELECT price, as_of FROM last_quotes WHERE symbol = ?`, symbol).
		Scan(&priceStr, &asOfStr)
	if err != nil {
		if err != sql.ErrNoRows {
			r.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read last-known quote")
		}
		return decimal.Zero, time.Time{}, false
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("Corrupt last-known price, ignoring")
		return decimal.Zero, time.Time{}, false
	}

	asOf, _ := time.Parse(time.RFC3339, asOfStr)
	return price, asOf, true
}

// PruneOlderThan deletes last-known quotes not refreshed since the cutoff.
// Run from the maintenance job so symbols removed from the portfolio do not
// accumulate forever.
func (r *QuoteRepository) PruneOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM last_quotes WHERE as_of < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune quotes: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
