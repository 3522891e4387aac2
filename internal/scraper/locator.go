package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Policy says what happens when a locator finds nothing.
type Policy string

// Missing-field policies.
const (
	// PolicyRequired fails the lookup.
	PolicyRequired Policy = "required"
	// PolicyFallback substitutes Locator.Fallback.
	PolicyFallback Policy = "fallback"
	// PolicyQuery substitutes the original input name.
	PolicyQuery Policy = "query"
)

// Locator describes where one field lives in a movie page.
type Locator struct {
	Field    string `mapstructure:"field"`
	Selector string `mapstructure:"selector"`
	// Within scopes Selector to the first match of a container selector.
	Within   string `mapstructure:"within"`
	Multiple bool   `mapstructure:"multiple"`
	Join     string `mapstructure:"join"`
	Policy   Policy `mapstructure:"policy"`
	Fallback string `mapstructure:"fallback"`
}

// Locate returns the field text and whether anything matched.
// Text is the element's full text content, untrimmed.
func (l Locator) Locate(root *goquery.Selection) (string, bool) {
	scope := root
	if l.Within != "" {
		scope = root.Find(l.Within).First()
		if scope.Length() == 0 {
			return "", false
		}
	}
	matches := scope.Find(l.Selector)
	if matches.Length() == 0 {
		return "", false
	}
	if !l.Multiple {
		return matches.First().Text(), true
	}
	texts := matches.Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	})
	return strings.Join(texts, l.Join), true
}

// Validate checks a single locator.
func (l Locator) Validate() error {
	switch l.Field {
	case FieldTitle, FieldScore, FieldGenres, FieldDescription:
	default:
		return fmt.Errorf("unknown field %q", l.Field)
	}
	if strings.TrimSpace(l.Selector) == "" {
		return fmt.Errorf("field %s: selector must be set", l.Field)
	}
	switch l.Policy {
	case PolicyRequired, PolicyFallback, PolicyQuery:
	default:
		return fmt.Errorf("field %s: unknown policy %q", l.Field, l.Policy)
	}
	return nil
}

// Table is the declarative set of field locators consumed by the Extractor.
type Table []Locator

// DefaultTable returns the locators for IMDb title pages. The description
// field is required: a page without a plot blurb fails the lookup.
func DefaultTable() Table {
	return Table{
		{
			Field:    FieldTitle,
			Selector: `h1[data-testid="hero-title-block__title"]`,
			Policy:   PolicyQuery,
		},
		{
			Field:    FieldScore,
			Selector: `.AggregateRatingButton__RatingScore-sc-1ll29m0-1.iTLWoV`,
			Policy:   PolicyFallback,
			Fallback: "N/A",
		},
		{
			Field:    FieldGenres,
			Within:   `div[data-testid="genres"]`,
			Selector: `span.ipc-chip__text`,
			Multiple: true,
			Join:     ", ",
			Policy:   PolicyFallback,
		},
		{
			Field:    FieldDescription,
			Selector: `span.GenresAndPlot__TextContainerBreakpointXS_TO_M-cum89p-0.dcFkRD`,
			Policy:   PolicyRequired,
		},
	}
}

// Validate checks every locator and rejects duplicate fields.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("locator table is empty")
	}
	seen := make(map[string]struct{}, len(t))
	for _, l := range t {
		if err := l.Validate(); err != nil {
			return err
		}
		if _, ok := seen[l.Field]; ok {
			return fmt.Errorf("field %s declared twice", l.Field)
		}
		seen[l.Field] = struct{}{}
	}
	for _, field := range []string{FieldTitle, FieldScore, FieldGenres, FieldDescription} {
		if _, ok := seen[field]; !ok {
			return fmt.Errorf("field %s has no locator", field)
		}
	}
	return nil
}

// Merge returns t with each override replacing the locator of the same field.
// An override without a selector keeps the base locator's selector, container,
// and multiplicity, so a policy can be changed on its own. Fields t does not
// declare are appended.
func (t Table) Merge(overrides Table) Table {
	merged := make(Table, len(t), len(t)+len(overrides))
	copy(merged, t)
	for _, o := range overrides {
		i := merged.index(o.Field)
		if i < 0 {
			merged = append(merged, o)
			continue
		}
		if o.Selector == "" {
			o.Selector = merged[i].Selector
			o.Within = merged[i].Within
			o.Multiple = merged[i].Multiple
			o.Join = merged[i].Join
		}
		merged[i] = o
	}
	return merged
}

func (t Table) index(field string) int {
	for i, l := range t {
		if l.Field == field {
			return i
		}
	}
	return -1
}

// Apply runs every locator against doc. It returns the record, the fields that
// were substituted by their policy, and a *FieldError for the first required
// field that is missing.
func (t Table) Apply(doc *goquery.Document, query, pageURL string) (Record, []string, error) {
	rec := Record{Link: pageURL}
	var substituted []string
	for _, l := range t {
		value, ok := l.Locate(doc.Selection)
		if !ok {
			switch l.Policy {
			case PolicyQuery:
				value = query
			case PolicyFallback:
				value = l.Fallback
			default:
				return Record{}, substituted, &FieldError{Field: l.Field, Selector: l.Selector, URL: pageURL}
			}
			substituted = append(substituted, l.Field)
		}
		rec.set(l.Field, value)
	}
	return rec, substituted, nil
}
