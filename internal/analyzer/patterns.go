package analyzer

import (
	"regexp"
	"strings"
)

// PatternSet is a named, versioned table of compiled patterns. A text
// matches the set when any pattern matches. Sets are read-only after init.
type PatternSet struct {
	Name     string
	Version  int
	Patterns []*regexp.Regexp
}

func newPatternSet(name string, version int, exprs ...string) *PatternSet {
	ps := &PatternSet{Name: name, Version: version}
	for _, expr := range exprs {
		ps.Patterns = append(ps.Patterns, regexp.MustCompile(expr))
	}
	return ps
}

// Match reports whether any pattern matches text.
func (ps *PatternSet) Match(text string) bool {
	for _, p := range ps.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var (
	// ErrorPatterns flag tool output that reports a failure.
	ErrorPatterns = newPatternSet("error", 1,
		`(?i)\berror\b`,
		`(?i)\bfail(s|ed|ure|ing)?\b`,
		`(?i)\btime[sd]?[ -]?out\b|\btimeout\b`,
		`(?i)\brate[ _-]?limit`,
		`(?i)\bexception\b|\btraceback\b`,
		`(?i)\b(status|http|code|error)\s*:?\s*[45]\d{2}\b`,
		`(?i)\b[45]\d{2}\s+(bad request|unauthorized|forbidden|not found|conflict|too many requests|internal server error|bad gateway|service unavailable|gateway timeout)\b`,
		`(?i)\b(unauthorized|forbidden|permission denied|access denied|invalid api key)\b`,
		`(?i)\b(unable to|could not|couldn't)\b`,
	)

	// EmptyPatterns flag tool output that carries no data.
	EmptyPatterns = newPatternSet("empty", 1,
		`(?i)^\s*(\[\s*\]|\{\s*\}|null|none|nil|undefined|""|''|\[no result\]|n/a)\s*$`,
		`(?i)\bno (results?|matches|data|records|items|entries|documents|hits|rows)\b( (were|was))? ?(found|available|returned|matched)?`,
		`(?i)\b(returned|found) (no|0|zero) (results?|matches|records|items|entries|documents|hits|rows)\b`,
		`(?i)^\s*0 (results?|matches|records|items)\b`,
		`(?i)^\s*"?[\w.\- ]+"?\s*:\s*\[\s*\]\s*,?\s*$`,
		`(?i)\bempty (result|response|list|array|set)\b`,
		`(?i)\bnothing (was )?found\b`,
	)

	// CommitPatterns flag actions that change state in the outside world.
	CommitPatterns = newPatternSet("commit", 1,
		`(?i)\b(pay|pays|paid|payment|payments|charge|checkout|purchase|buy|refund|transfer|withdraw|deposit)\b`,
		`(?i)\b(book|booking|reserve|reservation|order|place order|cancel|cancellation)\b`,
		`(?i)\b(write|delete|remove|drop|insert|update|upsert|overwrite|truncate)\b`,
		`(?i)\b(confirm|confirmation|send|submit|publish|deploy|post message|execute trade|trade)\b`,
	)

	// SpeculativePatterns flag hedging or invented answers.
	SpeculativePatterns = newPatternSet("speculative", 1,
		`(?i)\b(i'?ll|i will|let me|i'?m going to) (just )?guess\b`,
		`(?i)\bguess(es|ed|ing)?\b`,
		`(?i)\bprobably\b|\bpresumably\b|\bperhaps\b|\bmaybe\b`,
		`(?i)\bassum(e|es|ed|ing|ption)\b`,
		`(?i)\bwithout (the |any |actual |real )?(data|results?|information|details)\b`,
		`(?i)\b(make|making) (it|something|one) up\b|\bfabricat`,
		`(?i)\bi (think|believe|suspect) (it|that|the)\b`,
		`(?i)\b(might|may|could) be\b`,
	)

	// SuccessPatterns flag confident completion language.
	SuccessPatterns = newPatternSet("success", 1,
		`(?i)\bsuccess(ful|fully)?\b`,
		`(?i)\b(booked|confirmed|reserved|purchased|paid|sent|submitted|scheduled|processed|placed)\b`,
		`(?i)\b(done|completed?|finished|all set)\b`,
	)

	// AcknowledgementPatterns flag output that admits something went wrong.
	AcknowledgementPatterns = newPatternSet("acknowledgement", 1,
		`(?i)\b(error|errors|fail(s|ed|ure)?|unable|could not|couldn't|cannot|can't|not able)\b`,
		`(?i)\b(sorry|unfortunately|apologi[sz]e|issue|problem|unavailable|timed? ?out)\b`,
	)
)

// contradictionPair is a negative statement and the affirmative one that
// contradicts it if it appears later.
type contradictionPair struct {
	name        string
	negative    *regexp.Regexp
	affirmative *regexp.Regexp
}

// classify reports whether text makes the negative and the affirmative
// statement. The affirmative is matched with negative phrases removed, so
// "not found" does not also count as "found".
func (c contradictionPair) classify(text string) (negative, affirmative bool) {
	negative = c.negative.MatchString(text)
	if negative {
		text = c.negative.ReplaceAllString(text, " ")
	}
	return negative, c.affirmative.MatchString(text)
}

var contradictionPairs = []contradictionPair{
	{
		name:        "results",
		negative:    regexp.MustCompile(`(?i)\bno (matching )?(results?|matches|records|items)\b|\bnothing (was )?found\b|\b0 results?\b|\bfound nothing\b`),
		affirmative: regexp.MustCompile(`(?i)\bfound [1-9]\d* (results?|matches|records|items)\b|\b[1-9]\d* (results?|matches|records|items) (found|returned)\b`),
	},
	{
		name:        "success",
		negative:    regexp.MustCompile(`(?i)\bfail(s|ed|ure)?\b`),
		affirmative: regexp.MustCompile(`(?i)\bsucce(ss|eded|ssful|ssfully)\b`),
	},
	{
		name:        "availability",
		negative:    regexp.MustCompile(`(?i)\bunavailable\b|\bnot available\b|\bsold out\b|\bout of stock\b`),
		affirmative: regexp.MustCompile(`(?i)\bavailable\b|\bin stock\b`),
	},
	{
		name:        "existence",
		negative:    regexp.MustCompile(`(?i)\bnot found\b|\bdoes(n't| not) exist\b|\bno such\b`),
		affirmative: regexp.MustCompile(`(?i)\bfound\b|\bexists\b|\blocated\b`),
	},
	{
		name:        "approval",
		negative:    regexp.MustCompile(`(?i)\b(denied|rejected|declined)\b`),
		affirmative: regexp.MustCompile(`(?i)\b(approved|accepted|granted)\b`),
	},
}

var identifierSplit = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// splitIdentifier turns "processPayment" and "process_payment" into
// "process Payment" and "process payment" so word patterns apply.
func splitIdentifier(s string) string {
	s = identifierSplit.ReplaceAllString(s, "$1 $2")
	return strings.NewReplacer("_", " ", "-", " ", ".", " ", "/", " ").Replace(s)
}
