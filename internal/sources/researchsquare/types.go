// Package researchsquare provides a client for the Research Square search API.
//
// Research Square is a preprint server with its own listing endpoint. The
// search endpoint takes a unified query plus a rolling posted-date window
// and returns records nested under result.data.
package researchsquare

// SearchResponse represents the JSON search response envelope.
type SearchResponse struct {
	Result SearchResult `json:"result"`
}

// SearchResult holds the record collection.
type SearchResult struct {
	Data []Record `json:"data"`
}

// Record is a single preprint record.
type Record struct {
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	PostedAt        string `json:"posted_at"`
	ArticleIdentity string `json:"article_identity"`
	DOIVersion      string `json:"doi_version"`
}
