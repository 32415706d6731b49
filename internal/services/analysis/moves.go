// Package analysis turns quote snapshots into ranked, thresholded reports.
// Everything here is a pure function of its input.
package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"ETFWatch/internal/domain/models"
)

var hundred = decimal.NewFromInt(100)

// PctChange returns ((last-prev)/prev)*100 rounded to 2 places.
// ok is false when prev is zero.
func PctChange(prev, last decimal.Decimal) (pct decimal.Decimal, ok bool) {
	if prev.IsZero() {
		return decimal.Zero, false
	}
	return last.Sub(prev).Mul(hundred).DivRound(prev, 2), true
}

// AnalyzeMoves computes the percentage change of every present quote, ranks them by
// magnitude and picks the movers whose |change| reaches threshold.
// Absent quotes and quotes with a zero previous close are left out.
func AnalyzeMoves(snap *models.PriceSnapshot, threshold decimal.Decimal) models.PriceReport {
	all := make([]models.MoveResult, 0, snap.Len())
	for _, e := range snap.Entries() {
		q, ok := e.Data.Get()
		if !ok {
			continue
		}
		pct, ok := PctChange(q.PrevClose, q.LastClose)
		if !ok {
			continue
		}
		if q.Ticker == "" {
			q.Ticker = e.Ticker
		}
		dir := models.Gain
		if pct.IsNegative() {
			dir = models.Loss
		}
		all = append(all, models.MoveResult{QuoteRecord: q, PctChange: pct, Direction: dir})
	}

	// stable: equal magnitudes keep snapshot order
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PctChange.Abs().GreaterThan(all[j].PctChange.Abs())
	})

	movers := make([]models.MoveResult, 0, len(all))
	for _, r := range all {
		if r.PctChange.Abs().GreaterThanOrEqual(threshold) {
			movers = append(movers, r)
		}
	}

	return models.PriceReport{
		All:       all,
		Movers:    movers,
		HasAlert:  len(movers) > 0,
		Threshold: threshold,
	}
}
