package domain

// PredicateKind classifies the guard on an edge.
type PredicateKind int

const (
	// PredicateAlways is taken unconditionally.
	PredicateAlways PredicateKind = iota + 1
	// PredicatePrompt is taken when the platform judges the prompt to hold.
	PredicatePrompt
	// PredicateOutcome is taken on a named success or failure result.
	PredicateOutcome
)

func (k PredicateKind) String() string {
	switch k {
	case PredicateAlways:
		return "always"
	case PredicatePrompt:
		return "prompt"
	case PredicateOutcome:
		return "outcome"
	default:
		return "unknown"
	}
}

// Outcome names the result of a function call, SMS send or transfer.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Predicate guards an edge. Only the field matching Kind is meaningful.
type Predicate struct {
	Kind    PredicateKind
	Prompt  string
	Outcome Outcome
}

// Always returns the unconditional predicate.
func Always() Predicate { return Predicate{Kind: PredicateAlways} }

// When returns a natural-language guarded predicate.
func When(prompt string) Predicate { return Predicate{Kind: PredicatePrompt, Prompt: prompt} }

// On returns an outcome predicate.
func On(o Outcome) Predicate { return Predicate{Kind: PredicateOutcome, Outcome: o} }

// Edge is a directed transition between two nodes.
type Edge struct {
	ID          string
	Source      string
	Destination string
	Description string
	Predicate   Predicate
}
