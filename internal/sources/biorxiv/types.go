// Package biorxiv provides a client for the bioRxiv COVID-19 portal API.
//
// The portal aggregates COVID-related preprints across servers (bioRxiv,
// medRxiv, and others) behind a single full-text search endpoint with
// path-encoded offset/limit pagination.
package biorxiv

// SearchResponse represents the portal's JSON search response.
type SearchResponse struct {
	Collection []Record `json:"collection"`
}

// Record is a single preprint record from the portal.
type Record struct {
	Title   string         `json:"title"`
	Authors []RecordAuthor `json:"authors"`
	Date    string         `json:"date"`
	Server  string         `json:"server"`
	DOI     string         `json:"doi"`
}

// RecordAuthor is an author entry on a preprint record.
type RecordAuthor struct {
	Name string `json:"name"`
}
