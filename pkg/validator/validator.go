// Package validator runs the static checks a flow must pass before it is deployed.
//
// All rules run in one pass and every violation is collected; nothing stops at
// the first failure. Each rule can also be run on its own with Check.
package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/switchboard/pkg/catalog"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/graph"
	"github.com/aretw0/switchboard/pkg/phone"
	"github.com/aretw0/switchboard/pkg/render"
)

// analysis is computed once per flow and shared by every check.
type analysis struct {
	flow      *domain.Flow
	policy    Policy
	index     map[string]int
	graph     *graph.Graph
	startOK   bool
	reachable map[string]bool
	catalog   *catalog.Catalog
	dupVars   []*domain.DuplicateVariableError
}

func analyze(f *domain.Flow, p Policy) *analysis {
	a := &analysis{flow: f, policy: p, index: f.Index(), graph: graph.FromFlow(f)}
	_, a.startOK = a.index[f.StartNodeID]
	a.reachable = a.graph.Reachable(f.StartNodeID)

	// The catalog keeps the first declaration of each name so that rule 8 can
	// still run when rule 9 fails.
	a.catalog = catalog.New()
	record := func(err error) {
		var dup *domain.DuplicateVariableError
		if errors.As(err, &dup) {
			a.dupVars = append(a.dupVars, dup)
		}
	}
	for _, v := range f.DynamicVariables {
		record(a.catalog.DeclareDynamic(v.Name, v.Type, f.StartNodeID))
	}
	for _, n := range f.Nodes {
		if p, ok := n.Payload.(domain.ExtractionPayload); ok {
			for _, v := range p.Variables {
				record(a.catalog.Declare(v.Name, v.Type, n.ID))
			}
		}
	}
	a.catalog.Bind(f)
	return a
}

type checkFunc func(a *analysis) []Issue

var checks = map[Rule]checkFunc{
	RuleStartNodeExists:     checkStartNode,
	RuleUniqueNodeIDs:       checkUniqueIDs,
	RuleEdgeTargetsExist:    checkEdgeTargets,
	RuleReachableFromStart:  checkReachable,
	RuleOutgoingEdge:        checkOutgoing,
	RuleTerminalReachable:   checkTerminalReachable,
	RuleEdgeShape:           checkEdgeShape,
	RuleReferencesDeclared:  checkReferences,
	RuleNoDuplicateVariable: checkDuplicateVariables,
	RuleTransferPhoneE164:   checkTransferPhones,
}

// Validate runs every rule over f.
func Validate(f *domain.Flow, opts ...Option) *Report {
	a := analyze(f, newPolicy(opts))
	var issues []Issue
	for _, rule := range Rules {
		issues = append(issues, checks[rule](a)...)
	}
	return a.finish(issues)
}

// Check runs a single rule over f.
func Check(f *domain.Flow, rule Rule, opts ...Option) []Issue {
	fn, ok := checks[rule]
	if !ok {
		return nil
	}
	a := analyze(f, newPolicy(opts))
	return a.finish(fn(a)).Issues
}

// finish applies the policy and sorts by rule number, then node order.
func (a *analysis) finish(issues []Issue) *Report {
	for i := range issues {
		issues[i] = a.policy.apply(issues[i])
	}
	pos := func(id string) int {
		if i, ok := a.index[id]; ok {
			return i
		}
		return -1
	}
	sort.SliceStable(issues, func(i, j int) bool {
		ri, rj := issues[i].Rule.Number(), issues[j].Rule.Number()
		if ri != rj {
			return ri < rj
		}
		return pos(issues[i].NodeID) < pos(issues[j].NodeID)
	})
	return &Report{Issues: issues}
}

func errorf(rule Rule, nodeID, edgeID, format string, args ...any) Issue {
	return Issue{Rule: rule, Severity: SeverityError, NodeID: nodeID, EdgeID: edgeID, Message: fmt.Sprintf(format, args...)}
}

func checkStartNode(a *analysis) []Issue {
	if a.flow.StartNodeID == "" {
		return []Issue{errorf(RuleStartNodeExists, "", "", "flow has no start node")}
	}
	if !a.startOK {
		return []Issue{errorf(RuleStartNodeExists, "", "", "start node %q does not exist", a.flow.StartNodeID)}
	}
	return nil
}

func checkUniqueIDs(a *analysis) []Issue {
	var issues []Issue
	count := make(map[string]int)
	for pos, n := range a.flow.Nodes {
		if n.ID == "" {
			issues = append(issues, errorf(RuleUniqueNodeIDs, "", "", "node at position %d has an empty id", pos))
			continue
		}
		count[n.ID]++
		if count[n.ID] == 2 {
			issues = append(issues, errorf(RuleUniqueNodeIDs, n.ID, "", "node id is used more than once (second at position %d)", pos))
		}
	}
	return issues
}

func checkEdgeTargets(a *analysis) []Issue {
	var issues []Issue
	for _, n := range a.flow.Nodes {
		for _, e := range n.Edges {
			if e.Destination == "" {
				issues = append(issues, errorf(RuleEdgeTargetsExist, n.ID, e.ID, "edge has no destination"))
				continue
			}
			if _, ok := a.index[e.Destination]; !ok {
				issues = append(issues, errorf(RuleEdgeTargetsExist, n.ID, e.ID, "destination %q does not exist", e.Destination))
			}
		}
	}
	return issues
}

// firstOccurrences yields each distinct node once, in flow order.
func (a *analysis) firstOccurrences() []*domain.Node {
	out := make([]*domain.Node, 0, len(a.index))
	for i, n := range a.flow.Nodes {
		if a.index[n.ID] == i {
			out = append(out, n)
		}
	}
	return out
}

func checkReachable(a *analysis) []Issue {
	if !a.startOK {
		return nil
	}
	var issues []Issue
	for _, n := range a.firstOccurrences() {
		if !a.reachable[n.ID] {
			issues = append(issues, errorf(RuleReachableFromStart, n.ID, "", "node is not reachable from start node %q", a.flow.StartNodeID))
		}
	}
	return issues
}

func checkOutgoing(a *analysis) []Issue {
	var issues []Issue
	for _, n := range a.flow.Nodes {
		switch n.Kind() {
		case domain.KindTerminal, domain.KindTransfer:
			// A successful transfer ends the call.
			continue
		}
		if len(n.Edges) == 0 {
			issues = append(issues, errorf(RuleOutgoingEdge, n.ID, "", "%s node has no outgoing edge", n.Kind()))
		}
	}
	return issues
}

func checkTerminalReachable(a *analysis) []Issue {
	if !a.startOK {
		return nil
	}
	var exits, terminals []string
	for _, n := range a.firstOccurrences() {
		switch n.Kind() {
		case domain.KindTerminal:
			terminals = append(terminals, n.ID)
			exits = append(exits, n.ID)
		case domain.KindTransfer:
			exits = append(exits, n.ID)
		}
	}

	var issues []Issue
	found := false
	for _, id := range terminals {
		if a.reachable[id] {
			found = true
			break
		}
	}
	if !found {
		issues = append(issues, errorf(RuleTerminalReachable, "", "", "no terminal node is reachable from start node %q", a.flow.StartNodeID))
	}

	escapes := a.graph.CanReach(exits)
	for _, n := range a.firstOccurrences() {
		if a.reachable[n.ID] && !escapes[n.ID] {
			issues = append(issues, errorf(RuleTerminalReachable, n.ID, "", "node cannot reach any terminal node"))
		}
	}
	return issues
}

func checkEdgeShape(a *analysis) []Issue {
	var issues []Issue
	for _, n := range a.flow.Nodes {
		issues = append(issues, edgeShape(n)...)
	}
	return issues
}

func edgeShape(n *domain.Node) []Issue {
	bad := func(edgeID, format string, args ...any) Issue {
		return errorf(RuleEdgeShape, n.ID, edgeID, format, args...)
	}

	var issues []Issue
	var always, prompts, success, failure int
	for _, e := range n.Edges {
		switch e.Predicate.Kind {
		case domain.PredicateAlways:
			always++
		case domain.PredicatePrompt:
			prompts++
			if strings.TrimSpace(e.Predicate.Prompt) == "" {
				issues = append(issues, bad(e.ID, "prompt edge has an empty condition"))
			}
		case domain.PredicateOutcome:
			switch e.Predicate.Outcome {
			case domain.OutcomeSuccess:
				success++
				if failure > 0 {
					issues = append(issues, bad(e.ID, "success edge must precede the failure edge"))
				}
			case domain.OutcomeFailure:
				failure++
			default:
				issues = append(issues, bad(e.ID, "unknown outcome %q", e.Predicate.Outcome))
			}
		default:
			issues = append(issues, bad(e.ID, "edge has no predicate"))
		}
	}
	outcomes := success + failure
	total := len(n.Edges)

	switch n.Kind() {
	case 0:
		issues = append(issues, bad("", "node has no payload"))
	case domain.KindDialogue, domain.KindExtraction:
		if always > 0 && total != 1 {
			issues = append(issues, bad("", "%s node mixes an always edge with other edges", n.Kind()))
		}
		if outcomes > 0 {
			issues = append(issues, bad("", "%s node cannot use outcome edges", n.Kind()))
		}
	case domain.KindFunctionCall:
		if p, _ := n.Payload.(domain.FunctionCallPayload); p.ToolID == "" {
			issues = append(issues, bad("", "function_call node has no tool id"))
		}
		switch {
		case always > 0:
			issues = append(issues, bad("", "function_call node cannot use an always edge"))
		case outcomes > 0 && prompts > 0:
			issues = append(issues, bad("", "function_call node mixes outcome and prompt edges"))
		case success > 1 || failure > 1:
			issues = append(issues, bad("", "function_call node has more than one success or failure edge"))
		}
	case domain.KindSmsSend:
		if always > 0 || prompts > 0 {
			issues = append(issues, bad("", "sms_send node only takes success and failure edges"))
		}
		if success != 1 {
			issues = append(issues, bad("", "sms_send node needs exactly one success edge, has %d", success))
		}
		if failure != 1 {
			issues = append(issues, bad("", "sms_send node needs exactly one failure edge, has %d", failure))
		}
	case domain.KindTransfer:
		if p, _ := n.Payload.(domain.TransferPayload); p.Mode != domain.TransferWarm && p.Mode != domain.TransferCold {
			issues = append(issues, bad("", "unknown transfer mode %q", p.Mode))
		}
		if total > 1 {
			issues = append(issues, bad("", "transfer node has %d edges, at most one failure edge is allowed", total))
		} else if total == 1 && failure != 1 {
			issues = append(issues, bad(n.Edges[0].ID, "transfer node edge must be a failure outcome"))
		}
	case domain.KindTerminal:
		if total > 0 {
			issues = append(issues, bad(n.Edges[0].ID, "terminal node has %d outgoing edges", total))
		}
	}
	return issues
}

// refFinding is the worst finding for one name at one location.
type refFinding struct {
	name     string
	bare     bool
	declared bool
}

func checkReferences(a *analysis) []Issue {
	var issues []Issue

	// The global instruction applies to every node, so only dynamic variables are guaranteed for it.
	issues = append(issues, a.referenceIssues("", a.flow.GlobalInstruction, func(name string) bool {
		v, ok := a.catalog.Lookup(name)
		return ok && v.Dynamic
	})...)

	for _, n := range a.firstOccurrences() {
		ins, ok := n.Instruction()
		if !ok {
			continue
		}
		id := n.ID
		reachable := a.reachable[id]
		issues = append(issues, a.referenceIssues(id, ins.Text, func(name string) bool {
			if !reachable {
				// Dominance is undefined; rule 4 already reports the node.
				return true
			}
			return a.catalog.GuaranteedAt(name, id)
		})...)
	}
	return issues
}

func (a *analysis) referenceIssues(nodeID, text string, guaranteed func(string) bool) []Issue {
	if text == "" {
		return nil
	}
	refs, err := render.References(text)
	if err != nil {
		return []Issue{errorf(RuleReferencesDeclared, nodeID, "", "instruction text: %v", err)}
	}

	var order []string
	findings := make(map[string]*refFinding)
	for _, r := range refs {
		f, seen := findings[r.Name]
		if !seen {
			f = &refFinding{name: r.Name, declared: a.catalog.IsDeclared(r.Name)}
			findings[r.Name] = f
			order = append(order, r.Name)
		}
		if !r.HasFallback() {
			f.bare = true
		}
	}

	var issues []Issue
	for _, name := range order {
		f := findings[name]
		if f.declared && guaranteed(name) {
			continue
		}
		sev := SeverityWarning
		if f.bare && !a.policy.LenientReferences {
			sev = SeverityError
		}
		var msg string
		switch {
		case !f.declared && f.bare:
			msg = fmt.Sprintf("variable %q is undeclared", name)
		case !f.declared:
			msg = fmt.Sprintf("variable %q is undeclared; its section always renders as unset", name)
		case f.bare:
			msg = fmt.Sprintf("variable %q is not declared on every path to this node", name)
		default:
			msg = fmt.Sprintf("variable %q is not declared on every path to this node; guarded by its section", name)
		}
		issues = append(issues, Issue{Rule: RuleReferencesDeclared, Severity: sev, NodeID: nodeID, Message: msg})
	}
	return issues
}

func checkDuplicateVariables(a *analysis) []Issue {
	var issues []Issue
	for _, dup := range a.dupVars {
		issues = append(issues, errorf(RuleNoDuplicateVariable, dup.SecondNode, "", "%v", dup))
	}
	for _, n := range a.flow.Nodes {
		if p, ok := n.Payload.(domain.ExtractionPayload); ok {
			if len(p.Variables) == 0 {
				issues = append(issues, errorf(RuleNoDuplicateVariable, n.ID, "", "extraction node declares no variables"))
			}
			for i, v := range p.Variables {
				if strings.TrimSpace(v.Name) == "" {
					issues = append(issues, errorf(RuleNoDuplicateVariable, n.ID, "", "variable %d has an empty name", i))
				}
			}
		}
	}
	return issues
}

func checkTransferPhones(a *analysis) []Issue {
	var issues []Issue
	for _, n := range a.flow.Nodes {
		p, ok := n.Payload.(domain.TransferPayload)
		if !ok {
			continue
		}
		if valid, reason := phone.ValidateE164(p.DestinationNumber); !valid {
			msg := fmt.Sprintf("destination %q: %s", p.DestinationNumber, reason)
			if norm := phone.NormalizeE164(p.DestinationNumber); norm != p.DestinationNumber && norm != "" {
				msg += fmt.Sprintf(" (normalized: %q)", norm)
			}
			issues = append(issues, errorf(RuleTransferPhoneE164, n.ID, "", "%s", msg))
		}
	}
	return issues
}
