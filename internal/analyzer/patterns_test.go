package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternSets(t *testing.T) {
	tests := []struct {
		set   *PatternSet
		text  string
		match bool
	}{
		{ErrorPatterns, "Error: connection refused", true},
		{ErrorPatterns, "request timed out after 30s", true},
		{ErrorPatterns, "429 Too Many Requests", true},
		{ErrorPatterns, "status: 502", true},
		{ErrorPatterns, "Rate limit exceeded", true},
		{ErrorPatterns, "found 450 results", false},
		{ErrorPatterns, "The weather is sunny", false},

		{EmptyPatterns, "[]", true},
		{EmptyPatterns, " {} ", true},
		{EmptyPatterns, "null", true},
		{EmptyPatterns, "[No result]", true},
		{EmptyPatterns, "No results found for 'x'", true},
		{EmptyPatterns, "flights: []", true},
		{EmptyPatterns, "search returned 0 results", true},
		{EmptyPatterns, "3 flights found", false},

		{CommitPatterns, splitIdentifier("payment_api"), true},
		{CommitPatterns, splitIdentifier("bookFlight"), true},
		{CommitPatterns, splitIdentifier("delete-record"), true},
		{CommitPatterns, splitIdentifier("search_flights"), false},

		{SpeculativePatterns, "I'll just guess the answer", true},
		{SpeculativePatterns, "It is probably fine", true},
		{SpeculativePatterns, "Assuming the flight exists", true},
		{SpeculativePatterns, "Without the data I cannot be sure", true},
		{SpeculativePatterns, "The total is 42", false},

		{SuccessPatterns, "Flight booked successfully!", true},
		{SuccessPatterns, "Done.", true},
		{SuccessPatterns, "Here are the options", false},
	}

	for _, tt := range tests {
		t.Run(tt.set.Name+"/"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.match, tt.set.Match(tt.text))
		})
	}
}

func TestPatternSetsAreVersioned(t *testing.T) {
	for _, ps := range []*PatternSet{ErrorPatterns, EmptyPatterns, CommitPatterns, SpeculativePatterns, SuccessPatterns, AcknowledgementPatterns} {
		assert.NotEmpty(t, ps.Name)
		assert.Positive(t, ps.Version)
		assert.NotEmpty(t, ps.Patterns)
	}
}
