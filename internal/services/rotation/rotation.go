// Package rotation splits a watchlist into daily groups so a quota-limited provider is only
// asked about one group per day.
package rotation

import (
	"fmt"
	"time"

	"ETFWatch/internal/domain/models"
)

// DefaultGroups is the number of daily groups used when none is configured.
const DefaultGroups = 3

// Group is the slice of the watchlist checked on one calendar day.
type Group struct {
	Index       int // zero based
	Count       int
	Instruments []models.Instrument
}

// Descriptor renders the group as "Group n/G".
func (g Group) Descriptor() string {
	return fmt.Sprintf("Group %d/%d", g.Index+1, g.Count)
}

// Tickers returns the group's tickers in watchlist order.
func (g Group) Tickers() []string {
	out := make([]string, len(g.Instruments))
	for i, in := range g.Instruments {
		out[i] = in.Ticker
	}
	return out
}

// Select returns the group for day. The group index is day.YearDay() mod groups, where
// YearDay is 1-based in day's own location; callers pick the location.
// Instruments are striped: every groups-th entry starting at the index.
func Select(watchlist []models.Instrument, groups int, day time.Time) Group {
	if groups < 1 {
		groups = 1
	}
	idx := day.YearDay() % groups

	picked := make([]models.Instrument, 0, len(watchlist)/groups+1)
	for i := idx; i < len(watchlist); i += groups {
		picked = append(picked, watchlist[i])
	}
	return Group{Index: idx, Count: groups, Instruments: picked}
}

// Cycle returns the groups selected on the groups consecutive days starting at from.
// Within one calendar year their union is the whole watchlist, each entry once. A window
// crossing Jan 1 restarts the day count, so some groups repeat and others are skipped;
// use Uncovered to find what such a window misses.
func Cycle(watchlist []models.Instrument, groups int, from time.Time) []Group {
	if groups < 1 {
		groups = 1
	}
	out := make([]Group, 0, groups)
	for i := 0; i < groups; i++ {
		out = append(out, Select(watchlist, groups, from.AddDate(0, 0, i)))
	}
	return out
}

// Today selects the group for the current calendar day in loc.
func Today(watchlist []models.Instrument, groups int, now time.Time, loc *time.Location) Group {
	if loc == nil {
		loc = time.UTC
	}
	return Select(watchlist, groups, now.In(loc))
}

// Uncovered returns the watchlist tickers that none of groups selects, in watchlist order.
func Uncovered(watchlist []models.Instrument, groups []Group) []string {
	seen := make(map[string]struct{}, len(watchlist))
	for _, g := range groups {
		for _, in := range g.Instruments {
			seen[in.Ticker] = struct{}{}
		}
	}
	var out []string
	for _, in := range watchlist {
		if _, ok := seen[in.Ticker]; !ok {
			out = append(out, in.Ticker)
		}
	}
	return out
}
