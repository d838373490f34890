package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/switchboard/internal/presentation/graph"
	"github.com/aretw0/switchboard/internal/presentation/tui"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flowbuilder"
	"github.com/aretw0/switchboard/pkg/render"
	"github.com/aretw0/switchboard/pkg/retell"
	"github.com/aretw0/switchboard/pkg/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a flow for consistency",
	Long: `Builds the template (or reads --file) and runs every validation rule:
dangling edges, unreachable nodes, missing terminals, edge shapes, variable
references and transfer numbers.`,
	Run: func(cmd *cobra.Command, args []string) {
		flow, b, err := loadFlow(cmd.Context(), cmd)
		if err != nil {
			fail("Validation failed", err)
		}
		report := validator.Validate(flow)
		if b != nil {
			report = b.Report
			for _, w := range b.Warnings {
				newLogger(cmd).Warn("phone number is not E.164", "field", w.Field, "value", w.Original, "reason", w.Reason)
			}
		}

		out, err := tui.NewRenderer()(tui.ReportMarkdown("Validation: "+flowTitle(flow), report))
		if err != nil {
			fail("Error rendering report", err)
		}
		fmt.Print(out)

		if !report.Valid() {
			fmt.Println(tui.Status(fmt.Sprintf("Flow has %d error(s)", len(report.Errors())), false))
			os.Exit(1)
		}
		fmt.Println(tui.Status("Flow is valid!", true))
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the flow graph visualization",
	Long:  `Builds the template (or reads --file) and outputs a Mermaid diagram (graph TD). Nodes with validation findings are highlighted.`,
	Run: func(cmd *cobra.Command, args []string) {
		flow, _, err := loadFlow(cmd.Context(), cmd)
		if err != nil {
			fail("Error loading flow", err)
		}
		fmt.Print(graph.GenerateMermaid(flow, overlayFor(validator.Validate(flow))))
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the built-in templates",
	Run: func(cmd *cobra.Command, args []string) {
		list, err := flowbuilder.List()
		if err != nil {
			fail("Error loading templates", err)
		}
		var sb strings.Builder
		sb.WriteString("# Templates\n\n| Name | Direction | Requires | Description |\n|---|---|---|---|\n")
		for _, t := range list {
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", t.Name(), t.Direction(), strings.Join(t.Requires(), ", "), t.Description())
		}
		out, err := tui.NewRenderer()(sb.String())
		if err != nil {
			fail("Error rendering templates", err)
		}
		fmt.Print(out)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Print the conversation flow document without deploying it",
	Run: func(cmd *cobra.Command, args []string) {
		flow, b, err := loadFlow(cmd.Context(), cmd)
		if err != nil {
			fail("Error building flow", err)
		}
		if b != nil {
			for _, w := range b.Warnings {
				newLogger(cmd).Warn("phone number is not E.164", "field", w.Field, "value", w.Original, "reason", w.Reason)
			}
		}
		data, err := retell.Encode(flow)
		if err != nil {
			fail("Error encoding flow", err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			_, _ = os.Stdout.Write(append(data, '\n'))
			return
		}
		if err := writeIndented(output, data); err != nil {
			fail("Error writing flow", err)
		}
		fmt.Fprintf(os.Stderr, "Flow written to: %s\n", output)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render a node's instruction with sample variable values",
	Run: func(cmd *cobra.Command, args []string) {
		nodeID, _ := cmd.Flags().GetString("node")
		vars, _ := cmd.Flags().GetStringToString("var")

		flow, _, err := loadFlow(cmd.Context(), cmd)
		if err != nil {
			fail("Error loading flow", err)
		}
		text, err := previewNode(flow, nodeID, vars)
		if err != nil {
			fail("Error rendering node", err)
		}
		fmt.Println(text)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, graphCmd, templatesCmd, buildCmd, previewCmd)

	addFlowFlags(validateCmd)
	addFlowFlags(graphCmd)
	addFlowFlags(buildCmd)
	buildCmd.Flags().StringP("output", "o", "", "Write the document to a file instead of stdout")
	addFlowFlags(previewCmd)
	previewCmd.Flags().StringP("node", "n", "", "Node to render")
	previewCmd.Flags().StringToString("var", nil, "Variable values, e.g. --var caller_name=Dana")
	_ = previewCmd.MarkFlagRequired("node")
}

func flowTitle(f *domain.Flow) string {
	if f.Name != "" {
		return f.Name
	}
	return f.StartNodeID
}

func overlayFor(r *validator.Report) *graph.Overlay {
	o := &graph.Overlay{}
	for _, is := range r.Issues {
		if is.NodeID == "" {
			continue
		}
		if is.Severity == validator.SeverityError {
			o.ErrorNodes = append(o.ErrorNodes, is.NodeID)
		} else {
			o.WarningNodes = append(o.WarningNodes, is.NodeID)
		}
	}
	return o
}

// previewNode renders the instruction of nodeID. vars override the flow's
// default variables.
func previewNode(f *domain.Flow, nodeID string, vars map[string]string) (string, error) {
	n, ok := f.Node(nodeID)
	if !ok {
		return "", fmt.Errorf("no node %q", nodeID)
	}
	inst, ok := n.Instruction()
	if !ok {
		return "", fmt.Errorf("node %q is a %s node and has no instruction", nodeID, n.Kind())
	}
	bindings := make(map[string]string, len(f.DefaultVariables)+len(vars))
	for k, v := range f.DefaultVariables {
		bindings[k] = v
	}
	for k, v := range vars {
		bindings[k] = v
	}
	return render.Render(inst.Text, bindings)
}
