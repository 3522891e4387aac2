// Package scraper resolves free-text movie names to movie pages and extracts
// structured records from those pages. Field locations are described by a
// locator table so site markup can change without touching control flow.
package scraper
