package compose

import (
	"fmt"
	"strings"
	"time"

	"ETFWatch/internal/domain/models"
)

// Valuation renders a P/E report: above and below sections, skipped tickers and the
// rotation descriptor, each only when non-empty.
func Valuation(rep models.PEReport, day time.Time) models.Notification {
	return models.Notification{
		Pipeline: models.PipelinePE,
		Title:    valuationTitle(rep, day),
		Body:     valuationBody(rep),
		Priority: models.PriorityDefault,
		Tags:     append([]string(nil), peTags...),
	}
}

func valuationTitle(rep models.PEReport, day time.Time) string {
	return fmt.Sprintf("ETF P/E %s%s%d above, %d below P/E %s",
		formatDate(day), separator, len(rep.Above), len(rep.Below), formatThreshold(rep.Threshold))
}

func valuationBody(rep models.PEReport) string {
	th := formatThreshold(rep.Threshold)
	sections := make([]string, 0, 4)

	if len(rep.Above) > 0 {
		sections = append(sections, peSection(fmt.Sprintf("Above P/E %s:", th), rep.Above))
	}
	if len(rep.Below) > 0 {
		sections = append(sections, peSection(fmt.Sprintf("Below P/E %s:", th), rep.Below))
	}
	if len(rep.Skipped) > 0 {
		sections = append(sections, "No P/E data: "+strings.Join(rep.Skipped, listSep))
	}
	if rep.Rotation != "" {
		sections = append(sections, rep.Rotation)
	}
	return strings.Join(sections, "\n\n")
}

func peSection(header string, rs []models.PEResult) string {
	var b strings.Builder
	b.WriteString(header)
	for _, r := range rs {
		fmt.Fprintf(&b, "\n%s %s (%s): %s", valuationGlyph(r), r.Name, r.Ticker, r.PERatio.StringFixed(2))
	}
	return b.String()
}

// ValuationLeaderboard returns one line per ticker with data, highest ratio first.
func ValuationLeaderboard(rep models.PEReport) []string {
	lines := make([]string, 0, len(rep.All))
	for _, r := range rep.All {
		marker := "▼"
		if r.IsAbove {
			marker = "▲"
		}
		lines = append(lines, fmt.Sprintf("%s %s  %-40s  P/E %s", valuationGlyph(r), marker, r.Name, r.PERatio.StringFixed(2)))
	}
	return lines
}
