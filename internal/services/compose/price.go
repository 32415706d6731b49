package compose

import (
	"fmt"
	"strings"
	"time"

	"ETFWatch/internal/domain/models"
)

// Price renders the movers of a price report. It does not check HasAlert;
// an empty mover list renders the header only.
func Price(rep models.PriceReport, day time.Time) models.Notification {
	return models.Notification{
		Pipeline: models.PipelinePrice,
		Title:    priceTitle(rep, day),
		Body:     priceBody(rep),
		Priority: models.PriorityHigh,
		Tags:     append([]string(nil), priceTags...),
	}
}

func priceTitle(rep models.PriceReport, day time.Time) string {
	var up, down int
	for _, m := range rep.Movers {
		if m.Direction == models.Loss {
			down++
		} else {
			up++
		}
	}

	var upPart, downPart string
	if up > 0 {
		upPart = fmt.Sprintf("%d up", up)
	}
	if down > 0 {
		downPart = fmt.Sprintf("%d down", down)
	}

	title := "ETF Alert " + formatDate(day)
	if counts := joinNonEmpty(upPart, downPart); counts != "" {
		title += separator + counts
	}
	return title
}

func priceBody(rep models.PriceReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Moves >= %s%% detected:\n", formatThreshold(rep.Threshold))
	for _, m := range rep.Movers {
		fmt.Fprintf(&b, "\n%s %s\n   %s %s → %s (%s)\n",
			directionGlyph(m.Direction), m.Name,
			m.Currency, m.PrevClose.String(), m.LastClose.String(),
			signedPct(m.PctChange))
	}
	return strings.TrimRight(b.String(), "\n")
}

// PriceLeaderboard returns one line per analysed ticker, largest move first.
func PriceLeaderboard(rep models.PriceReport) []string {
	lines := make([]string, 0, len(rep.All))
	for _, r := range rep.All {
		lines = append(lines, fmt.Sprintf("%s  %-40s  %s", directionGlyph(r.Direction), r.Name, signedPct(r.PctChange)))
	}
	return lines
}
