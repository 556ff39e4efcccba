// Package observability provides structured logging and Prometheus metrics
// for the literature watch service.
//
// Logging is built on zerolog with a configurable level, format, and output.
// Metrics cover the source search pipeline (searches, durations, fetched
// articles, dropped records) and the merge/render stages.
package observability
