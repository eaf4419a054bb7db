package matcher

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/chatai/internal/responses"
	"github.com/garyellow/chatai/internal/stringutil"
)

func buildTable(pairs ...string) *responses.Table {
	b := responses.NewBuilder()
	for i := 0; i+1 < len(pairs); i += 2 {
		b.Add(pairs[i], pairs[i+1])
	}
	return b.Build()
}

func TestMatch_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		table       *responses.Table
		message     string
		want        string
		wantMatched bool
	}{
		{
			name:        "exact after normalization",
			table:       buildTable("hello", "hi there!"),
			message:     "Hello ",
			want:        "hi there!",
			wantMatched: true,
		},
		{
			name:        "close paraphrase",
			table:       buildTable("what is your name", "I am a bot"),
			message:     "what's your name?",
			want:        "I am a bot",
			wantMatched: true,
		},
		{
			name:    "unrelated message",
			table:   buildTable("foo", "bar"),
			message: "xyz completely unrelated",
			want:    FallbackResponse,
		},
		{
			name:    "score of exactly the threshold falls back",
			table:   buildTable("abcdefghij", "ten"),
			message: "abcdefgxyz",
			want:    FallbackResponse,
		},
		{
			name:        "one above the threshold matches",
			table:       buildTable("abcdefg", "seven"),
			message:     "abcdexy",
			want:        "seven",
			wantMatched: true,
		},
		{
			name:    "empty message",
			table:   buildTable("hello", "hi there!"),
			message: "",
			want:    FallbackResponse,
		},
		{
			name:    "empty table",
			table:   responses.NewBuilder().Build(),
			message: "hello",
			want:    FallbackResponse,
		},
		{
			name:    "nil table",
			table:   nil,
			message: "hello",
			want:    FallbackResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := New(tt.table)
			got := m.Match(tt.message)
			assert.Equal(t, tt.want, got.Response)
			assert.Equal(t, tt.wantMatched, got.Matched)
			assert.Equal(t, tt.want, m.Find(tt.message))
		})
	}
}

func TestMatch_ResultDetails(t *testing.T) {
	t.Parallel()

	m := New(buildTable("foo", "bar", "what is your name", "I am a bot"))

	got := m.Match("What's your name?")
	assert.Equal(t, Result{Trigger: "what is your name", Response: "I am a bot", Score: 88, Matched: true}, got)

	got = m.Match("xyz")
	assert.False(t, got.Matched)
	assert.Equal(t, FallbackResponse, got.Response)
	assert.LessOrEqual(t, got.Score, Threshold)

	assert.Equal(t, Result{Response: FallbackResponse}, New(nil).Match("anything"))
}

func TestMatch_TieGoesToFirstTrigger(t *testing.T) {
	t.Parallel()

	m := New(buildTable("hello there", "first", "hello world", "second"))
	assert.Equal(t, "first", m.Find("hello"))

	m = New(buildTable("hello world", "second", "hello there", "first"))
	assert.Equal(t, "second", m.Find("hello"))
}

func TestMatch_HighestScoreWins(t *testing.T) {
	t.Parallel()

	m := New(buildTable(
		"good morning", "Morning!",
		"good night", "Sleep well.",
	))
	assert.Equal(t, "Sleep well.", m.Find("good night everyone"))
	assert.Equal(t, "Morning!", m.Find("GOOD MORNING"))
}

func TestMatch_Idempotent(t *testing.T) {
	t.Parallel()

	m := New(buildTable("hello", "hi there!", "bye", "Goodbye!"))
	first := m.Match("Hello friend")
	for range 10 {
		assert.Equal(t, first, m.Match("Hello friend"))
	}
}

func TestMatch_Concurrent(t *testing.T) {
	t.Parallel()

	m := New(buildTable("hello", "hi there!", "what is your name", "I am a bot"))

	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			assert.Equal(t, "hi there!", m.Find("hello"))
			assert.Equal(t, "I am a bot", m.Find("what's your name?"))
		})
	}
	wg.Wait()
}

func TestWithProcessor(t *testing.T) {
	t.Parallel()

	table := buildTable("what's up", "Not much.")

	plain := New(table)
	processed := New(table, WithProcessor(stringutil.FullProcess))

	assert.Equal(t, 1, processed.Len())
	assert.Equal(t, "Not much.", processed.Find("What's up?!"))
	assert.Equal(t, plain.Find("what's up"), processed.Find("what's up"))

	punct := New(buildTable("???", "Confused?"), WithProcessor(stringutil.FullProcess))
	assert.Equal(t, FallbackResponse, punct.Find("???"))
}

func TestMatchContext_Canceled(t *testing.T) {
	t.Parallel()
	m := New(buildTable("hello", "hi there!", "bye", "see you"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.MatchContext(ctx, "hello")

	require.ErrorIs(t, err, context.Canceled)
}

func TestMatchContext_EmptyTableIgnoresContext(t *testing.T) {
	t.Parallel()
	m := New(buildTable())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := m.MatchContext(ctx, "hello")

	require.NoError(t, err)
	assert.Equal(t, FallbackResponse, got.Response)
}

func TestNew_CandidatesFollowTableOrder(t *testing.T) {
	t.Parallel()
	m := New(buildTable("b", "2", "a", "1", "b", "dup"), WithProcessor(stringutil.FullProcess))

	require.Equal(t, 2, m.Len())
	assert.Equal(t, "b", m.candidates[0].entry.Trigger)
	assert.Equal(t, "dup", m.candidates[0].entry.Response)
	assert.Equal(t, "a", m.candidates[1].entry.Trigger)
}
