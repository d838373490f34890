package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/switchboard/pkg/validator"
)

// ReportMarkdown formats a validation report as markdown, errors first.
func ReportMarkdown(title string, r *validator.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)

	errs, warns := r.Errors(), r.Warnings()
	if len(errs) == 0 && len(warns) == 0 {
		sb.WriteString("✅ **Valid.** No issues found.\n")
		return sb.String()
	}
	if len(errs) == 0 {
		fmt.Fprintf(&sb, "✅ **Valid** with %d warning(s).\n\n", len(warns))
	} else {
		fmt.Fprintf(&sb, "❌ **Invalid:** %d error(s), %d warning(s).\n\n", len(errs), len(warns))
	}

	section(&sb, "Errors", errs)
	section(&sb, "Warnings", warns)
	return sb.String()
}

func section(sb *strings.Builder, heading string, issues []validator.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", heading)
	sb.WriteString("| # | Rule | Node | Edge | Message |\n|---|---|---|---|---|\n")
	for _, i := range issues {
		fmt.Fprintf(sb, "| %d | `%s` | %s | %s | %s |\n",
			i.Rule.Number(), i.Rule, code(i.NodeID), code(i.EdgeID), strings.ReplaceAll(i.Message, "|", `\|`))
	}
	sb.WriteString("\n")
}

func code(s string) string {
	if s == "" {
		return "-"
	}
	return "`" + s + "`"
}
