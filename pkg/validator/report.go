package validator

import (
	"errors"
	"fmt"
	"strings"
)

// Rule identifies one validation check.
type Rule string

const (
	RuleStartNodeExists     Rule = "start_node_exists"
	RuleUniqueNodeIDs       Rule = "all_node_ids_unique"
	RuleEdgeTargetsExist    Rule = "all_edge_targets_exist"
	RuleReachableFromStart  Rule = "all_nodes_reachable_from_start"
	RuleOutgoingEdge        Rule = "every_non_terminal_has_outgoing_edge"
	RuleTerminalReachable   Rule = "at_least_one_terminal_reachable"
	RuleEdgeShape           Rule = "kind_specific_edge_shape"
	RuleReferencesDeclared  Rule = "template_variable_references_are_declared"
	RuleNoDuplicateVariable Rule = "no_duplicate_variable_names"
	RuleTransferPhoneE164   Rule = "phone_numbers_in_transfer_nodes_are_e164"
)

// Rules lists every rule in evaluation order.
var Rules = []Rule{
	RuleStartNodeExists,
	RuleUniqueNodeIDs,
	RuleEdgeTargetsExist,
	RuleReachableFromStart,
	RuleOutgoingEdge,
	RuleTerminalReachable,
	RuleEdgeShape,
	RuleReferencesDeclared,
	RuleNoDuplicateVariable,
	RuleTransferPhoneE164,
}

// Number returns the 1-based position of r in Rules, or 0 if unknown.
func (r Rule) Number() int {
	for i, rule := range Rules {
		if rule == r {
			return i + 1
		}
	}
	return 0
}

// structural rules cannot be downgraded.
func (r Rule) structural() bool {
	n := r.Number()
	return n >= 1 && n <= 7
}

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one violation found in a flow.
type Issue struct {
	Rule     Rule
	Severity Severity
	NodeID   string
	EdgeID   string
	Message  string
}

func (i Issue) Error() string {
	var loc []string
	if i.NodeID != "" {
		loc = append(loc, fmt.Sprintf("node %q", i.NodeID))
	}
	if i.EdgeID != "" {
		loc = append(loc, fmt.Sprintf("edge %q", i.EdgeID))
	}
	if len(loc) == 0 {
		return fmt.Sprintf("[%s] %s", i.Rule, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Rule, strings.Join(loc, " "), i.Message)
}

// Report collects every issue found in one pass.
type Report struct {
	Issues []Issue
}

// Valid reports whether the flow has no error-level issues.
func (r *Report) Valid() bool {
	return len(r.Errors()) == 0
}

// Errors returns the error-level issues.
func (r *Report) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-level issues.
func (r *Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Report) filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// ByRule returns the issues raised by rule.
func (r *Report) ByRule(rule Rule) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Rule == rule {
			out = append(out, i)
		}
	}
	return out
}

// Err returns an *AggregateError holding the error-level issues, or nil.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &AggregateError{Issues: errs}
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Issues []Issue
}

func (e *AggregateError) Error() string {
	if len(e.Issues) == 1 {
		return e.Issues[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Issues))
	for i, issue := range e.Issues {
		msg += fmt.Sprintf("  %d. %s\n", i+1, issue.Error())
	}
	return msg
}

// Unwrap exposes each issue to errors.As.
func (e *AggregateError) Unwrap() []error {
	out := make([]error, len(e.Issues))
	for i, issue := range e.Issues {
		out[i] = issue
	}
	return out
}

// ValidationIssues returns all issues if err is or wraps an AggregateError.
// Otherwise returns nil.
func ValidationIssues(err error) []Issue {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Issues
	}
	return nil
}
