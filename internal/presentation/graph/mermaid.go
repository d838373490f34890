package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Overlay marks nodes to highlight on the chart, typically from a validation report.
type Overlay struct {
	ErrorNodes   []string
	WarningNodes []string
}

// GenerateMermaid produces a Mermaid flowchart of a conversation flow.
// It applies semantic styling:
// - Start: ((Circle))
// - Function call: [[Subroutine]]
// - Extraction: [/Parallelogram/]
// - SMS: >Flag]
// - Transfer: {{Hexagon}}
// - Terminal: ([Stadium])
// - Dialogue: [Rectangle]
// Outcome edges are labeled; failure edges are dotted.
func GenerateMermaid(f *domain.Flow, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range f.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == f.StartNodeID:
			opener, closer = "((", "))"
		case node.Kind() == domain.KindFunctionCall:
			opener, closer = "[[", "]]"
		case node.Kind() == domain.KindExtraction:
			opener, closer = "[/", "/]"
		case node.Kind() == domain.KindSmsSend:
			opener, closer = ">", "]"
		case node.Kind() == domain.KindTransfer:
			opener, closer = "{{", "}}"
		case node.Kind() == domain.KindTerminal:
			opener, closer = "([", "])"
		}

		label := escape(node.ID)
		if node.Name != "" && node.Name != node.ID {
			label = escape(node.Name) + " <br/> " + escape(node.ID)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, e := range node.Edges {
			safeTo := sanitizeMermaidID(e.Destination)
			arrow := "-->"
			switch e.Predicate.Kind {
			case domain.PredicatePrompt:
				arrow = fmt.Sprintf("-- \"%s\" -->", escape(e.Predicate.Prompt))
			case domain.PredicateOutcome:
				if e.Predicate.Outcome == domain.OutcomeFailure {
					arrow = "-. failure .->"
				} else {
					arrow = "-- success -->"
				}
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, safeTo)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Validation Overlay\n")
		sb.WriteString("    classDef warning fill:#fff8e1,stroke:#f9a825,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef error fill:#ffebee,stroke:#c62828,stroke-width:4px,color:#000;\n")

		errored := make(map[string]bool)
		for _, id := range overlay.ErrorNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !errored[safeID] {
				errored[safeID] = true
				fmt.Fprintf(&sb, "    class %s error;\n", safeID)
			}
		}
		warned := make(map[string]bool)
		for _, id := range overlay.WarningNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !errored[safeID] && !warned[safeID] {
				warned[safeID] = true
				fmt.Fprintf(&sb, "    class %s warning;\n", safeID)
			}
		}
	}

	return sb.String()
}

// escape keeps labels inside Mermaid's double quotes.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.ReplaceAll(s, "\n", " ")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
