package flowbuilder

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/aretw0/switchboard/pkg/config"
)

// Build-time placeholders use [[ ]] so that runtime {{var}} text passes through.
const (
	leftDelim  = "[["
	rightDelim = "]]"
)

var funcs = template.FuncMap{
	"join":  func(items []string) string { return strings.Join(items, ", ") },
	"lower": strings.ToLower,
}

// data is what placeholders see: the configuration fields plus .Local.
type data struct {
	config.BusinessConfig
	Local map[string]string
}

// renderer executes placeholders and keeps the first failure.
type renderer struct {
	data data
	err  error
}

func newRenderer(cfg config.BusinessConfig, locals map[string]string) *renderer {
	r := &renderer{data: data{BusinessConfig: cfg}}
	// Locals see the configuration only, never each other.
	rendered := make(map[string]string, len(locals))
	for _, k := range sortedKeys(locals) {
		rendered[k] = r.text("locals."+k, locals[k])
	}
	r.data.Local = rendered
	return r
}

func (r *renderer) text(field, s string) string {
	if r.err != nil || !strings.Contains(s, leftDelim) {
		return s
	}
	t, err := template.New(field).
		Delims(leftDelim, rightDelim).
		Option("missingkey=error").
		Funcs(funcs).
		Parse(s)
	if err != nil {
		r.err = fmt.Errorf("failed to parse placeholder in %s: %w", field, err)
		return ""
	}
	var b strings.Builder
	if err := t.Execute(&b, r.data); err != nil {
		r.err = fmt.Errorf("failed to render %s: %w", field, err)
		return ""
	}
	return b.String()
}
