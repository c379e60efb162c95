// Package extract turns raw page markup and spreadsheet cells into field
// candidates. Extractors never fail: malformed input yields no candidate.
package extract

import "github.com/fr0stylo/venuecal/internal/app/domain"

// Candidate is a best-effort value tagged with the strategy that produced it.
type Candidate[T any] struct {
	Value    T
	Strategy string
}

// DateTime is a calendar date with an optional time of day.
type DateTime struct {
	Date domain.Date
	Time domain.Clock
}

// Input is what a strategy may look at. Any part may be empty.
type Input struct {
	Page  *Page
	Cell  string
	Known DateTime
}

// Strategy is one named, pure extraction attempt.
type Strategy[T any] struct {
	Name    string
	Extract func(Input) (T, bool)
}

// First evaluates strategies in order and returns the first success.
func First[T any](in Input, strategies []Strategy[T]) (Candidate[T], bool) {
	for _, s := range strategies {
		if s.Extract == nil {
			continue
		}
		if v, ok := s.Extract(in); ok {
			return Candidate[T]{Value: v, Strategy: s.Name}, true
		}
	}
	return Candidate[T]{}, false
}

// ResolveDateTime walks date/time strategies in priority order. The first
// strategy that yields a date wins it; when its time is unspecified, later
// strategies may still contribute a time but never a date.
func ResolveDateTime(in Input, strategies []Strategy[DateTime]) (Candidate[DateTime], bool) {
	var (
		result Candidate[DateTime]
		found  bool
	)
	for _, s := range strategies {
		if s.Extract == nil {
			continue
		}
		if found {
			in.Known = result.Value
		}
		v, ok := s.Extract(in)
		if !ok {
			continue
		}
		if !found {
			if v.Date.IsZero() {
				continue
			}
			result = Candidate[DateTime]{Value: v, Strategy: s.Name}
			found = true
			if result.Value.Time.Specified() {
				return result, true
			}
			continue
		}
		if v.Time.Specified() {
			result.Value.Time = v.Time
			result.Strategy += "+" + s.Name
			return result, true
		}
	}
	return result, found
}
