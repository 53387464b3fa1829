package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"livefolio/internal/domain"
	"livefolio/pkg/formulas"
)

// expiryFormats are the accepted option expiry layouts, tried in order
var expiryFormats = []string{
	"2006-01-02",
	"Jan-2006",
	"2-Jan-2006",
	"01/02/2006",
}

// header maps lowercased column names to their index in the header row
type header map[string]int

func parseHeader(rows [][]string, required ...string) (header, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("source is empty (header row is mandatory)")
	}

	h := make(header, len(rows[0]))
	for i, name := range rows[0] {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := h[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	return h, nil
}

// cell returns the named column's value for a row, "" when the column is
// absent or the row is short.
func (h header) cell(row []string, name string) string {
	idx, ok := h[strings.ToLower(name)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func rowFailure(kind Kind, rowNum int, reason string) domain.PartialFailure {
	return domain.PartialFailure{
		Subject: fmt.Sprintf("%s:row %d", kind, rowNum),
		Kind:    domain.FailureSchema,
		Reason:  reason,
	}
}

// ParseEquities validates equity rows into positions. Duplicate tickers are
// merged into one position: shares summed, average buy price share-weighted.
// Row numbers in failures are 1-based source rows (header is row 1).
// Returns a non-nil error only when the source as a whole is unusable.
func ParseEquities(rows [][]string) ([]domain.EquityPosition, []domain.PartialFailure, error) {
	h, err := parseHeader(rows, "Ticker", "Shares", "AvgBuy")
	if err != nil {
		return nil, nil, fmt.Errorf("equities: %w", err)
	}

	var failures []domain.PartialFailure
	byTicker := make(map[string]*domain.EquityPosition)
	var order []string

	for i, row := range rows[1:] {
		rowNum := i + 2

		ticker := strings.ToUpper(h.cell(row, "Ticker"))
		if ticker == "" {
			failures = append(failures, rowFailure(KindEquities, rowNum, "Ticker is empty"))
			continue
		}

		shares, err := decimal.NewFromString(h.cell(row, "Shares"))
		if err != nil {
			failures = append(failures, rowFailure(KindEquities, rowNum,
				fmt.Sprintf("Shares %q is not numeric", h.cell(row, "Shares"))))
			continue
		}
		if shares.IsZero() {
			failures = append(failures, rowFailure(KindEquities, rowNum, "Shares must be non-zero"))
			continue
		}

		avgBuy, err := decimal.NewFromString(h.cell(row, "AvgBuy"))
		if err != nil {
			failures = append(failures, rowFailure(KindEquities, rowNum,
				fmt.Sprintf("AvgBuy %q is not numeric", h.cell(row, "AvgBuy"))))
			continue
		}
		if avgBuy.IsNegative() {
			failures = append(failures, rowFailure(KindEquities, rowNum, "AvgBuy must be >= 0"))
			continue
		}

		if existing, ok := byTicker[ticker]; ok {
			existing.AvgBuy = formulas.WeightedAverageCost(existing.Shares, existing.AvgBuy, shares, avgBuy)
			existing.Shares = existing.Shares.Add(shares)
			continue
		}

		byTicker[ticker] = &domain.EquityPosition{Ticker: ticker, Shares: shares, AvgBuy: avgBuy}
		order = append(order, ticker)
	}

	positions := make([]domain.EquityPosition, 0, len(order))
	for _, ticker := range order {
		positions = append(positions, *byTicker[ticker])
	}

	return positions, failures, nil
}

// ParseOptions validates option rows. Side is authoritative for direction;
// a signed Qty that disagrees with Side is flagged and its absolute value used.
func ParseOptions(rows [][]string) ([]domain.OptionPosition, []domain.PartialFailure, error) {
	h, err := parseHeader(rows, "Underlying", "Expiry", "Strike", "C/P", "Side", "Qty", "PremiumOpen")
	if err != nil {
		return nil, nil, fmt.Errorf("options: %w", err)
	}

	var positions []domain.OptionPosition
	var failures []domain.PartialFailure

	for i, row := range rows[1:] {
		rowNum := i + 2

		underlying := strings.ToUpper(h.cell(row, "Underlying"))
		if underlying == "" {
			failures = append(failures, rowFailure(KindOptions, rowNum, "Underlying is empty"))
			continue
		}

		expiry, err := parseExpiry(h.cell(row, "Expiry"))
		if err != nil {
			failures = append(failures, rowFailure(KindOptions, rowNum, err.Error()))
			continue
		}

		strike, err := decimal.NewFromString(h.cell(row, "Strike"))
		if err != nil || !strike.IsPositive() {
			failures = append(failures, rowFailure(KindOptions, rowNum,
				fmt.Sprintf("Strike %q must be a positive number", h.cell(row, "Strike"))))
			continue
		}

		optType, err := parseOptionType(h.cell(row, "C/P"))
		if err != nil {
			failures = append(failures, rowFailure(KindOptions, rowNum, err.Error()))
			continue
		}

		side, err := parseSide(h.cell(row, "Side"))
		if err != nil {
			failures = append(failures, rowFailure(KindOptions, rowNum, err.Error()))
			continue
		}

		qty, err := strconv.ParseInt(h.cell(row, "Qty"), 10, 64)
		if err != nil || qty == 0 {
			failures = append(failures, rowFailure(KindOptions, rowNum,
				fmt.Sprintf("Qty %q must be a non-zero integer", h.cell(row, "Qty"))))
			continue
		}

		premiumOpen, err := decimal.NewFromString(h.cell(row, "PremiumOpen"))
		if err != nil || premiumOpen.IsNegative() {
			failures = append(failures, rowFailure(KindOptions, rowNum,
				fmt.Sprintf("PremiumOpen %q must be a number >= 0", h.cell(row, "PremiumOpen"))))
			continue
		}

		var premiumCurrent *decimal.Decimal
		if raw := h.cell(row, "PremiumCurrent"); raw != "" {
			p, err := decimal.NewFromString(raw)
			if err != nil || p.IsNegative() {
				failures = append(failures, rowFailure(KindOptions, rowNum,
					fmt.Sprintf("PremiumCurrent %q must be a number >= 0", raw)))
				continue
			}
			premiumCurrent = &p
		}

		// Side is authoritative; a negative Qty on a Short row is the common
		// spreadsheet convention, so only a Long row with negative Qty (or a
		// Short row with positive Qty) counts as a conflict worth flagging.
		signConflict := (qty < 0 && side == domain.SideLong) || (qty > 0 && side == domain.SideShort)
		if signConflict {
			failures = append(failures, rowFailure(KindOptions, rowNum,
				fmt.Sprintf("Qty sign (%d) conflicts with Side=%s; using Side", qty, side)))
		}
		if qty < 0 {
			qty = -qty
		}

		positions = append(positions, domain.OptionPosition{
			Underlying:     underlying,
			Expiry:         expiry,
			Strike:         strike,
			Type:           optType,
			Side:           side,
			Qty:            qty,
			PremiumOpen:    premiumOpen,
			PremiumCurrent: premiumCurrent,
			SignConflict:   signConflict,
		})
	}

	return positions, failures, nil
}

// ParseSectors validates sector-map rows. Later rows win on duplicate tickers.
func ParseSectors(rows [][]string) ([]domain.SectorMapEntry, []domain.PartialFailure, error) {
	h, err := parseHeader(rows, "Ticker", "Sector")
	if err != nil {
		return nil, nil, fmt.Errorf("sectors: %w", err)
	}

	var entries []domain.SectorMapEntry
	var failures []domain.PartialFailure
	seen := make(map[string]int)

	for i, row := range rows[1:] {
		rowNum := i + 2

		ticker := strings.ToUpper(h.cell(row, "Ticker"))
		sector := h.cell(row, "Sector")
		if ticker == "" || sector == "" {
			failures = append(failures, rowFailure(KindSectors, rowNum, "Ticker and Sector are both required"))
			continue
		}

		if idx, ok := seen[ticker]; ok {
			entries[idx].Sector = sector
			continue
		}
		seen[ticker] = len(entries)
		entries = append(entries, domain.SectorMapEntry{Ticker: ticker, Sector: sector})
	}

	return entries, failures, nil
}

func parseExpiry(raw string) (time.Time, error) {
	for _, layout := range expiryFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("Expiry %q is not a recognized date (expected e.g. 2026-01-16 or Jan-2026)", raw)
}

func parseOptionType(raw string) (domain.OptionType, error) {
	switch strings.ToUpper(raw) {
	case "C", "CALL":
		return domain.OptionCall, nil
	case "P", "PUT":
		return domain.OptionPut, nil
	}
	return "", fmt.Errorf("C/P %q must be C or P", raw)
}

func parseSide(raw string) (domain.Side, error) {
	switch strings.ToLower(raw) {
	case "long":
		return domain.SideLong, nil
	case "short":
		return domain.SideShort, nil
	}
	return "", fmt.Errorf("Side %q must be Long or Short", raw)
}
