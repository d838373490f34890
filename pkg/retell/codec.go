package retell

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Encode serializes a flow into the platform's conversation-flow document.
// The output is indented with two spaces and its field order is fixed, so equal
// flows always encode to identical bytes.
func Encode(f *domain.Flow) ([]byte, error) {
	doc, err := toDocument(f)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses a conversation-flow document. Unknown top-level fields, such as
// the identifiers the platform adds, are ignored.
func Decode(data []byte) (*domain.Flow, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode conversation flow: %w", err)
	}

	f := &domain.Flow{
		Name:              doc.Name,
		StartNodeID:       doc.StartNodeID,
		StartSpeaker:      doc.StartSpeaker,
		GlobalInstruction: doc.GlobalPrompt,
		DynamicVariables:  doc.DynamicVariables,
		Tools:             doc.Tools,
	}
	f.ModelChoice.Temperature = doc.ModelTemperature
	if doc.ModelChoice != nil {
		f.ModelChoice.Type = doc.ModelChoice.Type
		f.ModelChoice.Model = doc.ModelChoice.Model
	}
	if len(doc.DefaultVariables) > 0 {
		f.DefaultVariables = doc.DefaultVariables
	}

	for i, wn := range doc.Nodes {
		n, err := decodeNode(i, wn)
		if err != nil {
			return nil, err
		}
		f.AddNode(n)
	}
	return f, nil
}

func toDocument(f *domain.Flow) (*document, error) {
	doc := &document{
		Name:             f.Name,
		GlobalPrompt:     f.GlobalInstruction,
		ModelTemperature: f.ModelChoice.Temperature,
		StartNodeID:      f.StartNodeID,
		StartSpeaker:     f.StartSpeaker,
		Nodes:            make([]node, 0, len(f.Nodes)),
		Tools:            f.Tools,
		DynamicVariables: f.DynamicVariables,
		DefaultVariables: f.DefaultVariables,
	}
	if f.ModelChoice.Type != "" || f.ModelChoice.Model != "" {
		doc.ModelChoice = &modelChoice{Type: f.ModelChoice.Type, Model: f.ModelChoice.Model}
	}
	for _, n := range f.Nodes {
		wn, err := encodeNode(n)
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, wn)
	}
	return doc, nil
}

func encodeNode(n *domain.Node) (node, error) {
	typ, ok := kindToType[n.Kind()]
	if !ok {
		return node{}, &EncodeError{NodeID: n.ID, Reason: "node has no payload"}
	}
	out := node{ID: n.ID, Type: typ, Name: n.Name}
	if ins, ok := n.Instruction(); ok && ins != (domain.Instruction{}) {
		out.Instruction = &ins
	}

	switch p := n.Payload.(type) {
	case domain.ExtractionPayload:
		out.Variables = p.Variables
	case domain.FunctionCallPayload:
		wait, speak := p.WaitForResult, p.SpeakDuringExecution
		out.ToolID = p.ToolID
		out.ToolType = "local"
		out.WaitForResult = &wait
		out.SpeakDuringExecution = &speak
	case domain.TransferPayload:
		out.TransferDestination = &transferDestination{Type: "predefined", Number: p.DestinationNumber}
		switch p.Mode {
		case "":
		case domain.TransferWarm, domain.TransferCold:
			out.TransferOption = &transferOption{Type: string(p.Mode) + "_transfer"}
		default:
			return node{}, &EncodeError{NodeID: n.ID, Reason: fmt.Sprintf("unknown transfer mode %q", p.Mode)}
		}
	}

	if err := encodeEdges(&out, n); err != nil {
		return node{}, err
	}
	return out, nil
}

// Edge slots in the order Decode restores them: prompt edges first, then the
// unconditional edge, then the success and failure outcomes.
const (
	rankPrompt = iota
	rankAlways
	rankSuccess
	rankFailure
)

func rankOf(p domain.Predicate) int {
	switch {
	case p.Kind == domain.PredicatePrompt:
		return rankPrompt
	case p.Kind == domain.PredicateAlways:
		return rankAlways
	case p.Kind == domain.PredicateOutcome && p.Outcome == domain.OutcomeSuccess:
		return rankSuccess
	case p.Kind == domain.PredicateOutcome && p.Outcome == domain.OutcomeFailure:
		return rankFailure
	default:
		return -1
	}
}

func encodeEdges(out *node, n *domain.Node) error {
	kind := n.Kind()
	last := rankPrompt
	for _, e := range n.Edges {
		fail := func(reason string) error {
			return &EncodeError{NodeID: n.ID, EdgeID: e.ID, Reason: reason}
		}
		if e.Source != n.ID {
			return fail(fmt.Sprintf("edge source %q does not match its node", e.Source))
		}
		rank := rankOf(e.Predicate)
		if rank < 0 {
			return fail("edge has no predicate")
		}
		if rank < last {
			return fail("prompt edges must precede the unconditional edge and outcome edges must be ordered success, failure")
		}
		last = rank

		w := edge{ID: e.ID, Description: e.Description, DestinationNodeID: e.Destination}
		var slot **edge
		switch {
		case rank == rankPrompt && (kind == domain.KindDialogue || kind == domain.KindExtraction || kind == domain.KindFunctionCall):
			w.TransitionCondition = &condition{Type: "prompt", Prompt: e.Predicate.Prompt}
			out.Edges = append(out.Edges, w)
			continue
		case rank == rankAlways && kind == domain.KindDialogue:
			slot = &out.AlwaysEdge
		case rank == rankAlways && kind == domain.KindExtraction:
			slot = &out.SuccessEdge
		case rank == rankSuccess && kind == domain.KindFunctionCall:
			slot = &out.SuccessEdge
		case rank == rankFailure && kind == domain.KindFunctionCall:
			slot = &out.FailedEdge
		case rank == rankSuccess && kind == domain.KindSmsSend:
			w.TransitionCondition = &condition{Type: "prompt", Prompt: smsSentPrompt}
			slot = &out.SuccessEdge
		case rank == rankFailure && kind == domain.KindSmsSend:
			w.TransitionCondition = &condition{Type: "prompt", Prompt: smsFailedPrompt}
			slot = &out.FailedEdge
		case rank == rankFailure && kind == domain.KindTransfer:
			w.TransitionCondition = &condition{Type: "prompt", Prompt: transferFailedMsg}
			slot = &out.Edge
		default:
			return fail(fmt.Sprintf("%s edge cannot be encoded on a %s node", e.Predicate.Kind, kind))
		}
		if *slot != nil {
			return fail(fmt.Sprintf("%s node has more than one %s edge", kind, e.Predicate.Kind))
		}
		*slot = &w
	}
	return nil
}

func decodeNode(i int, wn node) (*domain.Node, error) {
	if wn.ID == "" {
		return nil, &DecodeError{Field: fmt.Sprintf("nodes[%d].id", i), Reason: "missing node id"}
	}
	kind, ok := typeToKind(wn.Type)
	if !ok {
		return nil, &DecodeError{NodeID: wn.ID, Field: "type", Reason: fmt.Sprintf("unknown node type %q", wn.Type)}
	}

	var ins domain.Instruction
	if wn.Instruction != nil {
		ins = *wn.Instruction
	}

	n := &domain.Node{ID: wn.ID, Name: wn.Name}
	switch kind {
	case domain.KindDialogue:
		n.Payload = domain.DialoguePayload{Instruction: ins}
	case domain.KindExtraction:
		n.Payload = domain.ExtractionPayload{Variables: wn.Variables}
	case domain.KindFunctionCall:
		n.Payload = domain.FunctionCallPayload{
			ToolID:               wn.ToolID,
			WaitForResult:        deref(wn.WaitForResult),
			SpeakDuringExecution: deref(wn.SpeakDuringExecution),
			Instruction:          ins,
		}
	case domain.KindSmsSend:
		n.Payload = domain.SmsPayload{Instruction: ins}
	case domain.KindTransfer:
		if wn.TransferDestination == nil {
			return nil, &DecodeError{NodeID: wn.ID, Field: "transfer_destination", Reason: "missing transfer destination"}
		}
		p := domain.TransferPayload{DestinationNumber: wn.TransferDestination.Number, Instruction: ins}
		if wn.TransferOption != nil {
			switch wn.TransferOption.Type {
			case "warm_transfer":
				p.Mode = domain.TransferWarm
			case "cold_transfer":
				p.Mode = domain.TransferCold
			default:
				return nil, &DecodeError{NodeID: wn.ID, Field: "transfer_option.type", Reason: fmt.Sprintf("unknown transfer option %q", wn.TransferOption.Type)}
			}
		}
		n.Payload = p
	case domain.KindTerminal:
		n.Payload = domain.TerminalPayload{Instruction: ins}
	}

	edges, err := decodeEdges(wn, kind)
	if err != nil {
		return nil, err
	}
	n.Edges = edges
	return n, nil
}

func decodeEdges(wn node, kind domain.NodeKind) ([]domain.Edge, error) {
	var edges []domain.Edge
	add := func(field string, w edge, p domain.Predicate) error {
		if w.ID == "" {
			return &DecodeError{NodeID: wn.ID, Field: field + ".id", Reason: "missing edge id"}
		}
		if w.DestinationNodeID == "" {
			return &DecodeError{NodeID: wn.ID, Field: field + ".destination_node_id", Reason: "missing destination"}
		}
		edges = append(edges, domain.Edge{
			ID:          w.ID,
			Source:      wn.ID,
			Destination: w.DestinationNodeID,
			Description: w.Description,
			Predicate:   p,
		})
		return nil
	}

	if len(wn.Edges) > 0 && kind != domain.KindDialogue && kind != domain.KindExtraction && kind != domain.KindFunctionCall {
		return nil, &DecodeError{NodeID: wn.ID, Field: "edges", Reason: fmt.Sprintf("prompt edges are not allowed on %s nodes", wn.Type)}
	}
	for i, w := range wn.Edges {
		field := fmt.Sprintf("edges[%d]", i)
		c := w.TransitionCondition
		if c == nil || c.Type != "prompt" {
			return nil, &DecodeError{NodeID: wn.ID, Field: field + ".transition_condition", Reason: "expected a prompt condition"}
		}
		if err := add(field, w, domain.When(c.Prompt)); err != nil {
			return nil, err
		}
	}

	keyed := []struct {
		field string
		edge  *edge
		pred  map[domain.NodeKind]domain.Predicate
	}{
		{"always_edge", wn.AlwaysEdge, map[domain.NodeKind]domain.Predicate{
			domain.KindDialogue: domain.Always(),
		}},
		{"success_edge", wn.SuccessEdge, map[domain.NodeKind]domain.Predicate{
			domain.KindExtraction:   domain.Always(),
			domain.KindFunctionCall: domain.On(domain.OutcomeSuccess),
			domain.KindSmsSend:      domain.On(domain.OutcomeSuccess),
		}},
		{"failed_edge", wn.FailedEdge, map[domain.NodeKind]domain.Predicate{
			domain.KindFunctionCall: domain.On(domain.OutcomeFailure),
			domain.KindSmsSend:      domain.On(domain.OutcomeFailure),
		}},
		{"edge", wn.Edge, map[domain.NodeKind]domain.Predicate{
			domain.KindTransfer: domain.On(domain.OutcomeFailure),
		}},
	}
	for _, k := range keyed {
		if k.edge == nil {
			continue
		}
		p, ok := k.pred[kind]
		if !ok {
			return nil, &DecodeError{NodeID: wn.ID, Field: k.field, Reason: fmt.Sprintf("not allowed on %s nodes", wn.Type)}
		}
		if err := add(k.field, *k.edge, p); err != nil {
			return nil, err
		}
	}
	return edges, nil
}

func typeToKind(s string) (domain.NodeKind, bool) {
	for k, t := range kindToType {
		if t == s {
			return k, true
		}
	}
	return 0, false
}

func deref(b *bool) bool {
	return b != nil && *b
}
