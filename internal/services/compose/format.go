// Package compose renders analysis reports into push notifications.
// Rendering is deterministic: the same report and date always give the same text.
package compose

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ETFWatch/internal/domain/models"
)

const (
	dateLayout = "02 Jan 2006"
	separator  = " - "
	listSep    = ", "
)

// Glyphs shown in front of each line.
const (
	GlyphGain  = "📈"
	GlyphLoss  = "📉"
	GlyphAbove = "🔴"
	GlyphBelow = "🟢"
)

var (
	priceTags = []string{"chart_with_upwards_trend", "money"}
	peTags    = []string{"bar_chart"}
)

func directionGlyph(d models.Direction) string {
	if d == models.Loss {
		return GlyphLoss
	}
	return GlyphGain
}

func valuationGlyph(r models.PEResult) string {
	if r.IsAbove {
		return GlyphAbove
	}
	return GlyphBelow
}

// signedPct renders a percentage with an explicit "+" when non-negative.
func signedPct(pct decimal.Decimal) string {
	s := pct.StringFixed(2)
	if !pct.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}

// formatThreshold keeps one decimal for whole numbers ("3.0") and the natural form otherwise.
func formatThreshold(t decimal.Decimal) string {
	if t.Equal(t.Truncate(0)) {
		return t.StringFixed(1)
	}
	return t.String()
}

func formatDate(day time.Time) string {
	return day.Format(dateLayout)
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, listSep)
}
