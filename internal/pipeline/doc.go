// Package pipeline drives a scrape run: it reads movie names line by line,
// resolves and extracts each one in input order, and writes one CSV row per
// name under a fixed header.
//
// Runs are strictly sequential. The first hard failure aborts the run unless
// the driver is configured to skip failed lines; rows written before the
// failure stay in the output file.
package pipeline
