// Package recency implements the date-validity, recency-color, and
// timeframe policies applied to normalized articles.
//
// Each source has its own fixed color table; thresholds are measured in
// whole days and are boundary-inclusive, so an article exactly 7 days old
// still maps to the "recent" tier.
package recency

import (
	"time"

	"github.com/helixir/literature-watch/internal/domain"
)

// Color tiers.
const (
	TierRecent   = "recent"
	TierModerate = "moderate"
	TierStale    = "stale"
)

// Color is a discrete recency classification paired with its display hue.
type Color struct {
	Tier string
	Hex  string
}

// colorTable maps two day thresholds to three hues.
type colorTable struct {
	recentDays   int
	moderateDays int
	recent       string
	moderate     string
	stale        string
}

// Per-source hue tables. The PubMed palette is darker, the portal palette
// lighter, and Research Square sits in between.
var (
	pubmedColors = colorTable{
		recentDays:   7,
		moderateDays: 30,
		recent:       "#2E8B57", // sea green
		moderate:     "#DAA520", // goldenrod
		stale:        "#B22222", // firebrick
	}
	biorxivColors = colorTable{
		recentDays:   7,
		moderateDays: 30,
		recent:       "#98FB98", // pale green
		moderate:     "#FAFAD2", // light goldenrod yellow
		stale:        "#FFA07A", // light salmon
	}
	researchSquareColors = colorTable{
		recentDays:   7,
		moderateDays: 30,
		recent:       "#8FBC8F", // dark sea green
		moderate:     "#DEB887", // burlywood
		stale:        "#CD5C5C", // indian red
	}
	genericColors = colorTable{
		recentDays:   3,
		moderateDays: 7,
		recent:       "#92C353",
		moderate:     "#F2C94C",
		stale:        "#E57373",
	}
)

// daysInMonth approximates one month of the future-date allowance.
const daysInMonth = 30

// IsValidDate reports whether date falls in the acceptable window:
// no older than five years before now and no further out than
// maxFutureMonths months (of 30 days) after now, inclusive on both ends.
func IsValidDate(date, now time.Time, maxFutureMonths int) bool {
	earliest := now.AddDate(-5, 0, 0)
	latest := now.AddDate(0, 0, maxFutureMonths*daysInMonth)
	return !date.Before(earliest) && !date.After(latest)
}

// ColorFor assigns the recency color for an article from the given source.
// Sources without a dedicated table fall back to the generic palette.
func ColorFor(source domain.SourceType, date, now time.Time) Color {
	switch source {
	case domain.SourceTypePubMed:
		return pubmedColors.colorFor(date, now)
	case domain.SourceTypeBioRxiv:
		return biorxivColors.colorFor(date, now)
	case domain.SourceTypeResearchSquare:
		return researchSquareColors.colorFor(date, now)
	default:
		return ColorByAge(date, now)
	}
}

// ColorByAge assigns a color from the generic palette: three days for the
// recent tier, seven for the moderate tier.
func ColorByAge(date, now time.Time) Color {
	return genericColors.colorFor(date, now)
}

// colorFor classifies a date against the table's thresholds.
func (t colorTable) colorFor(date, now time.Time) Color {
	daysAgo := int(now.Sub(date).Hours() / 24)
	switch {
	case daysAgo <= t.recentDays:
		return Color{Tier: TierRecent, Hex: t.recent}
	case daysAgo <= t.moderateDays:
		return Color{Tier: TierModerate, Hex: t.moderate}
	default:
		return Color{Tier: TierStale, Hex: t.stale}
	}
}

// FilterByTimeframe keeps only articles within the requested timeframe:
// "today" keeps articles posted on the current calendar day, "week" the
// last seven days, "month" the last thirty. Any other value returns the
// input unchanged.
func FilterByTimeframe(articles []*domain.Article, timeframe domain.Timeframe, now time.Time) []*domain.Article {
	today := truncateToDay(now)

	var start time.Time
	switch timeframe {
	case domain.TimeframeToday:
		start = today
	case domain.TimeframeWeek:
		start = today.AddDate(0, 0, -7)
	case domain.TimeframeMonth:
		start = today.AddDate(0, 0, -30)
	default:
		return articles
	}

	filtered := make([]*domain.Article, 0, len(articles))
	for _, a := range articles {
		if !truncateToDay(a.Date).Before(start) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// truncateToDay drops the time-of-day component.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
