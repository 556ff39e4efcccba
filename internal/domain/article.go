// Package domain contains the core entities of the literature watch service.
package domain

import (
	"strings"
	"time"
)

// SourceType identifies which search API an article came from.
type SourceType string

// Known source types.
const (
	SourceTypePubMed         SourceType = "pubmed"
	SourceTypeBioRxiv        SourceType = "biorxiv"
	SourceTypeResearchSquare SourceType = "researchsquare"
)

// Timeframe is a coarse recency filter applied after validity filtering.
type Timeframe string

// Known timeframe values. An empty or unrecognized timeframe means "all time".
const (
	TimeframeAll   Timeframe = ""
	TimeframeToday Timeframe = "today"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
)

// LinkNotAvailable is the sentinel link value for articles without a DOI
// or permalink.
const LinkNotAvailable = "Not available"

// MaxDisplayAuthors is the number of authors kept for display before the
// "et al." marker takes over.
const MaxDisplayAuthors = 3

// Article is the canonical representation of a search result after
// normalization. Articles live only for the duration of one aggregation
// call; nothing is persisted.
type Article struct {
	// Title is the article title as extracted from the source record.
	// It is the deduplication key across queries: exact string match,
	// no case folding.
	Title string

	// Authors holds up to MaxDisplayAuthors display-formatted author names.
	Authors []string

	// MoreAuthors is true when the source record listed more authors than
	// Authors retains; rendered as an "et al." suffix.
	MoreAuthors bool

	// Date is the publication (or posting) date. Records whose date cannot
	// be parsed never become Articles.
	Date time.Time

	// Source identifies the originating search API.
	Source SourceType

	// Journal is the journal title for PubMed records, or the preprint
	// server name for preprint records.
	Journal string

	// PMID is the PubMed identifier. Empty for non-PubMed sources.
	PMID string

	// Link is the DOI hyperlink target or a source-specific permalink,
	// or LinkNotAvailable when the record carries neither.
	Link string

	// ColorHex is the recency hue assigned by the color policy. Derived
	// from (Source, Date, now) and recomputed on every aggregation.
	ColorHex string

	// ColorTier is the discrete recency classification matching ColorHex.
	ColorTier string

	// MatchingQueries lists every query string that produced this article,
	// in first-seen order. Repeat matches of the same query are kept.
	MatchingQueries []string
}

// AuthorLine formats the author list for display, appending the
// "et al." marker when the record listed more authors.
func (a *Article) AuthorLine() string {
	line := strings.Join(a.Authors, ", ")
	if a.MoreAuthors {
		if line == "" {
			return "et al."
		}
		line += " et al."
	}
	return line
}

// FormatAuthors truncates a full author name list to MaxDisplayAuthors
// entries and reports whether any were cut.
func FormatAuthors(names []string) ([]string, bool) {
	trimmed := make([]string, 0, MaxDisplayAuthors)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		trimmed = append(trimmed, name)
	}
	if len(trimmed) > MaxDisplayAuthors {
		return trimmed[:MaxDisplayAuthors], true
	}
	return trimmed, false
}
