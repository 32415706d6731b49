package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"ETFWatch/internal/domain/models"
)

// AnalyzeValuations classifies each present P/E ratio against threshold.
// A ratio equal to the threshold counts as below. Absent quotes are reported in Skipped.
// HasAlert only requires that some ratio was retrieved.
func AnalyzeValuations(snap *models.PESnapshot, threshold decimal.Decimal) models.PEReport {
	var (
		above   = make([]models.PEResult, 0)
		below   = make([]models.PEResult, 0)
		all     = make([]models.PEResult, 0, snap.Len())
		skipped = make([]string, 0)
	)

	for _, e := range snap.Entries() {
		q, ok := e.Data.Get()
		if !ok {
			skipped = append(skipped, e.Ticker)
			continue
		}
		if q.Ticker == "" {
			q.Ticker = e.Ticker
		}
		r := models.PEResult{PEQuote: q, IsAbove: q.PERatio.GreaterThan(threshold), Class: models.Below}
		if r.IsAbove {
			r.Class = models.Above
			above = append(above, r)
		} else {
			below = append(below, r)
		}
		all = append(all, r)
	}

	sortByRatio(above, true)
	sortByRatio(below, false)
	sortByRatio(all, true)

	return models.PEReport{
		Above:     above,
		Below:     below,
		All:       all,
		Skipped:   skipped,
		HasAlert:  len(all) > 0,
		Threshold: threshold,
	}
}

func sortByRatio(rs []models.PEResult, desc bool) {
	sort.SliceStable(rs, func(i, j int) bool {
		if desc {
			return rs[i].PERatio.GreaterThan(rs[j].PERatio)
		}
		return rs[i].PERatio.LessThan(rs[j].PERatio)
	})
}
