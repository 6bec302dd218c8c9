package trace

// IssueType identifies a behavioral failure pattern
type IssueType string

const (
	IssueGuessingAfterError     IssueType = "guessing_after_error"
	IssueCommitAfterEmpty       IssueType = "commit_after_empty"
	IssueUnhandledError         IssueType = "unhandled_error"
	IssueMissingObservation     IssueType = "missing_observation"
	IssueErrorIgnored           IssueType = "error_ignored"
	IssueLoop                   IssueType = "loop"
	IssueEmptyResult            IssueType = "empty_result"
	IssueSuspiciousTransition   IssueType = "suspicious_transition"
	IssueContradictionCandidate IssueType = "contradiction_candidate"
)

// IssueTypes lists every issue type in explanation priority order.
var IssueTypes = []IssueType{
	IssueGuessingAfterError,
	IssueCommitAfterEmpty,
	IssueUnhandledError,
	IssueErrorIgnored,
	IssueLoop,
	IssueSuspiciousTransition,
	IssueMissingObservation,
	IssueEmptyResult,
	IssueContradictionCandidate,
}

// Valid reports whether t is a known issue type.
func (t IssueType) Valid() bool {
	for _, known := range IssueTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Severity of an issue
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// RiskLevel is the coarse classification of a run
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Rank orders risk levels; unknown levels rank below low.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	return r.Rank() > 0
}

// TraceIssue is a detected failure pattern implicating one or more nodes
type TraceIssue struct {
	ID          string    `json:"id"`
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	NodeIDs     []string  `json:"nodeIds"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion"`
}
