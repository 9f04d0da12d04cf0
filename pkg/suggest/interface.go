// Package suggest is the core of the search front end: it turns raw keystrokes
// into debounced, cached, keyboard-navigable product suggestions fetched from
// the remote recommender.
package suggest

import "context"

// Suggestion is a lightweight product record shown in the dropdown.
type Suggestion struct {
	ID    string  `json:"id" msgpack:"id"`
	Name  string  `json:"name" msgpack:"n"`
	Score float64 `json:"score,omitempty" msgpack:"sc,omitempty"`
}

// Fetcher retrieves suggestion candidates for a normalized query.
// Implementations issue one network call per invocation and must not retry.
type Fetcher interface {
	// FetchSuggestions returns up to limit candidates in backend relevance order.
	FetchSuggestions(ctx context.Context, query string, limit int) ([]Suggestion, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, query string, limit int) ([]Suggestion, error)

// FetchSuggestions calls f.
func (f FetcherFunc) FetchSuggestions(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	return f(ctx, query, limit)
}
