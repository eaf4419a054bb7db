// Package matcher answers a chat message with the response of the most
// similar trigger in a response table, or a fixed fallback when nothing is
// similar enough.
package matcher

import (
	"context"

	"github.com/garyellow/chatai/internal/responses"
	"github.com/garyellow/chatai/internal/stringutil"
)

const (
	// Threshold is the score a match must strictly exceed.
	Threshold = 70
	// FallbackResponse answers messages with no good match.
	FallbackResponse = "Sorry, I don't have a response for that."
)

// Result describes a lookup. Trigger and Score belong to the best candidate
// even when it did not clear the threshold; Response is then the fallback.
type Result struct {
	Trigger  string
	Response string
	Score    int
	Matched  bool
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithProcessor applies fn to the normalized message and to every trigger
// before scoring, e.g. stringutil.FullProcess to ignore punctuation.
func WithProcessor(fn func(string) string) Option {
	return func(m *Matcher) {
		m.process = fn
	}
}

type candidate struct {
	entry responses.Entry
	key   string // trigger as compared
}

// Matcher is safe for concurrent use; it never modifies its table.
type Matcher struct {
	process    func(string) string
	candidates []candidate
}

// New prepares a matcher over table.
func New(table *responses.Table, opts ...Option) *Matcher {
	m := &Matcher{}
	for _, opt := range opts {
		opt(m)
	}

	m.candidates = make([]candidate, 0, table.Len())
	table.Range(func(trigger, response string) bool {
		key := trigger
		if m.process != nil {
			key = m.process(key)
		}
		m.candidates = append(m.candidates, candidate{
			entry: responses.Entry{Trigger: trigger, Response: response},
			key:   key,
		})
		return true
	})
	return m
}

// Len returns the number of triggers searched.
func (m *Matcher) Len() int {
	return len(m.candidates)
}

// Match finds the best trigger for message. Ties go to the trigger that comes
// first in the table.
func (m *Matcher) Match(message string) Result {
	result, _ := m.MatchContext(context.Background(), message)
	return result
}

// MatchContext is Match that gives up between triggers once ctx is done.
func (m *Matcher) MatchContext(ctx context.Context, message string) (Result, error) {
	if len(m.candidates) == 0 {
		return Result{Response: FallbackResponse}, nil
	}

	query := stringutil.Normalize(message)
	if m.process != nil {
		query = m.process(query)
	}

	best, bestScore := 0, -1
	for i, c := range m.candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		s := PartialRatio(query, c.key)
		if s > bestScore {
			best, bestScore = i, s
			if s == 100 {
				break
			}
		}
	}

	entry := m.candidates[best].entry
	if bestScore > Threshold {
		return Result{Trigger: entry.Trigger, Response: entry.Response, Score: bestScore, Matched: true}, nil
	}
	return Result{Trigger: entry.Trigger, Response: FallbackResponse, Score: bestScore}, nil
}

// Find returns the response for message.
func (m *Matcher) Find(message string) string {
	return m.Match(message).Response
}
