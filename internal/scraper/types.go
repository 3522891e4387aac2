package scraper

import (
	"net/http"
	"time"
)

// Field names understood by the locator table.
const (
	FieldTitle       = "title"
	FieldScore       = "score"
	FieldGenres      = "genres"
	FieldDescription = "description"
)

// Header is the fixed column schema written ahead of every record.
var Header = []string{"Title", "Score", "Genre", "Description", "Link"}

// Record is the five-field output unit for a single movie.
type Record struct {
	Title       string
	Score       string
	Genres      string
	Description string
	Link        string
}

// Row returns the record cells in Header order.
func (r Record) Row() []string {
	return []string{r.Title, r.Score, r.Genres, r.Description, r.Link}
}

func (r *Record) set(field, value string) {
	switch field {
	case FieldTitle:
		r.Title = value
	case FieldScore:
		r.Score = value
	case FieldGenres:
		r.Genres = value
	case FieldDescription:
		r.Description = value
	}
}

// Outcome classifies the result of resolving and extracting one movie.
type Outcome string

// Outcome values reported by the extractor and counted by the pipeline.
const (
	OutcomeSuccess     Outcome = "success"
	OutcomeSoftFailure Outcome = "soft_failure"
	OutcomeHardFailure Outcome = "hard_failure"
)

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL         string
	Headers     http.Header
	UseHeadless bool
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}
