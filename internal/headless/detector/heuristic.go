// Package detector decides when a probe response is a client-rendered shell
// that must be re-fetched through headless Chrome.
package detector

import (
	"bytes"
	"strings"

	"github.com/JakeFAU/movie-scraper/internal/scraper"
)

// DefaultMarkers are byte sequences typical of single-page-app shells.
var DefaultMarkers = []string{
	`id="__next"`,
	`id="root"`,
	`id="app"`,
	"data-reactroot",
}

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
	markers             [][]byte
}

// NewHeuristic creates a detector. A zero threshold defaults to 2048 bytes and
// nil markers default to DefaultMarkers.
func NewHeuristic(threshold int, markers []string) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	if markers == nil {
		markers = DefaultMarkers
	}
	h := &Heuristic{BodyLengthThreshold: threshold}
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m != "" {
			h.markers = append(h.markers, []byte(strings.ToLower(m)))
		}
	}
	return h
}

// ShouldPromote decides whether a headless fetch is required.
func (h *Heuristic) ShouldPromote(resp scraper.FetchResponse) bool {
	if resp.StatusCode != 200 || resp.UsedHeadless {
		return false
	}
	body := resp.Body
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptCoverage(body) >= 25 {
		return true
	}
	lower := bytes.ToLower(body)
	for _, marker := range h.markers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// scriptCoverage returns the percentage of the document taken up by <script> elements.
func scriptCoverage(body []byte) int {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return 0
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	covered := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel
		end := total
		if closeAt := strings.Index(lower[start:], closeTag); closeAt != -1 {
			end = start + closeAt + len(closeTag)
		}
		covered += end - start
		pos = end
	}
	return covered * 100 / total
}
