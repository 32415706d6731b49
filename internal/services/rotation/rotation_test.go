package rotation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ETFWatch/internal/domain/models"
)

func watchlist(n int) []models.Instrument {
	out := make([]models.Instrument, n)
	for i := range out {
		out[i] = models.Instrument{Ticker: fmt.Sprintf("T%d", i), Name: fmt.Sprintf("Fund %d", i)}
	}
	return out
}

func TestSelectStripesByDayOfYear(t *testing.T) {
	wl := watchlist(7)
	// 2026-01-01 is day 1 -> index 1
	g := Select(wl, 3, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))

	assert.Equal(t, 1, g.Index)
	assert.Equal(t, []string{"T1", "T4"}, g.Tickers())
	assert.Equal(t, "Group 2/3", g.Descriptor())

	// day 3 -> index 0
	g = Select(wl, 3, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"T0", "T3", "T6"}, g.Tickers())
	assert.Equal(t, "Group 1/3", g.Descriptor())
}

func TestSelectIsIdempotentPerDay(t *testing.T) {
	wl := watchlist(10)
	morning := time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)

	a := Select(wl, 3, morning)
	b := Select(wl, 3, evening)
	c := Select(wl, 3, morning)

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestCycleCoversWatchlistOnce(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 7, 10, 11} {
		wl := watchlist(n)
		seen := map[string]int{}
		for _, g := range Cycle(wl, 3, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
			for _, tk := range g.Tickers() {
				seen[tk]++
			}
		}
		require.Len(t, seen, n, "n=%d", n)
		for tk, c := range seen {
			assert.Equal(t, 1, c, "ticker %s seen %d times", tk, c)
		}
	}
}

func TestCycleAcrossNewYear(t *testing.T) {
	wl := watchlist(6)
	// 2026-12-31 is day 365 -> index 2, then 2027-01-01 restarts at day 1.
	groups := Cycle(wl, 3, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))

	descs := make([]string, len(groups))
	for i, g := range groups {
		descs[i] = g.Descriptor()
	}
	assert.Equal(t, []string{"Group 3/3", "Group 2/3", "Group 3/3"}, descs)
	assert.Equal(t, []string{"T0", "T3"}, Uncovered(wl, groups))
}

func TestUncoveredWithinYear(t *testing.T) {
	wl := watchlist(7)
	assert.Empty(t, Uncovered(wl, Cycle(wl, 3, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))))
	assert.Equal(t, []string{"T0", "T1", "T2", "T3", "T4", "T5", "T6"}, Uncovered(wl, nil))
}

func TestSelectFixedTickerReachable(t *testing.T) {
	wl := watchlist(8)
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	g := Select(wl, 3, day)
	for i, in := range wl {
		want := (i-g.Index)%3 == 0
		assert.Equal(t, want, contains(g.Tickers(), in.Ticker), "ticker %s", in.Ticker)
	}
}

func TestSelectUnevenGroups(t *testing.T) {
	wl := watchlist(4)
	sizes := []int{}
	for _, g := range Cycle(wl, 3, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		sizes = append(sizes, len(g.Instruments))
	}
	assert.ElementsMatch(t, []int{2, 1, 1}, sizes)
}

func TestSelectNonPositiveGroupsMeansWholeList(t *testing.T) {
	wl := watchlist(5)
	g := Select(wl, 0, time.Now())
	assert.Len(t, g.Instruments, 5)
	assert.Equal(t, "Group 1/1", g.Descriptor())
}

func TestTodayUsesLocationCalendarDay(t *testing.T) {
	wl := watchlist(6)
	// 2026-01-01 23:30 UTC is already Jan 2 in Auckland
	now := time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)
	auckland := time.FixedZone("NZDT", 13*3600)

	assert.Equal(t, 1, Today(wl, 3, now, time.UTC).Index)
	assert.Equal(t, 2, Today(wl, 3, now, auckland).Index)
	assert.Equal(t, 1, Today(wl, 3, now, nil).Index)
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
