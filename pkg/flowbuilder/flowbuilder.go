// Package flowbuilder turns a template descriptor and a business configuration
// into a conversation flow.
//
// Templates are data. The built-in ones are embedded YAML files; others can be
// loaded from disk. Builds are deterministic: the same template and
// configuration always yield the same flow.
package flowbuilder

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aretw0/switchboard/pkg/catalog"
	"github.com/aretw0/switchboard/pkg/config"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/dsl"
)

//go:embed templates/*.yaml
var builtin embed.FS

const (
	defaultModelType = "cascading"
	defaultModel     = "gpt-4.1"
)

// Template is a parsed descriptor ready to build.
type Template struct {
	desc *Descriptor
}

// Name returns the template name.
func (t *Template) Name() string { return t.desc.Name }

// Description returns the one-line summary of the template.
func (t *Template) Description() string { return t.desc.Description }

// Direction returns "inbound" or "outbound".
func (t *Template) Direction() string { return t.desc.Direction }

// Requires lists the configuration keys the template cannot build without.
func (t *Template) Requires() []string { return append([]string(nil), t.desc.Requires...) }

// Result is a built flow with everything derived along the way.
type Result struct {
	Flow    *domain.Flow
	Catalog *catalog.Catalog
	// Config is the configuration after defaults and normalization.
	Config    config.BusinessConfig
	AgentName string
	Warnings  []domain.PhoneFormatWarning
}

// Parse reads a descriptor into a Template.
func Parse(data []byte) (*Template, error) {
	d, err := ParseDescriptor(data)
	if err != nil {
		return nil, err
	}
	return &Template{desc: d}, nil
}

// Load reads a descriptor file into a Template.
func Load(file string) (*Template, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", file, err)
	}
	return Parse(data)
}

// List returns the built-in templates sorted by name.
func List() ([]*Template, error) {
	entries, err := builtin.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	out := make([]*Template, 0, len(entries))
	for _, e := range entries {
		data, err := builtin.ReadFile(path.Join("templates", e.Name()))
		if err != nil {
			return nil, err
		}
		t, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("built-in %s: %w", e.Name(), err)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Names returns the names of the built-in templates.
func Names() []string {
	list, err := List()
	if err != nil {
		return nil
	}
	names := make([]string, len(list))
	for i, t := range list {
		names[i] = t.Name()
	}
	return names
}

// Lookup finds a built-in template by name.
func Lookup(name string) (*Template, error) {
	list, err := List()
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", domain.ErrUnknownTemplate, name, strings.Join(Names(), ", "))
}

// Build instantiates the built-in template name with cfg.
func Build(name string, cfg config.BusinessConfig) (*domain.Flow, *catalog.Catalog, error) {
	t, err := Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	res, err := t.Build(cfg)
	if err != nil {
		return nil, nil, err
	}
	return res.Flow, res.Catalog, nil
}

// Build instantiates the template with cfg. Configuration problems are
// reported as *domain.InvalidConfigurationError before any node is built.
func (t *Template) Build(cfg config.BusinessConfig) (*Result, error) {
	d := t.desc

	cfg, err := config.WithDefaults(cfg, d.Defaults)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", d.Name, err)
	}
	cfg, warnings := config.Normalize(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if err := config.RequireFields(cfg, d.Requires...); err != nil {
		return nil, err
	}

	r := newRenderer(cfg, d.Locals)
	b := dsl.New(d.Name)
	if d.Start != "" {
		b.Start(d.Start)
	}
	if d.StartSpeaker != "" {
		b.Speaker(d.StartSpeaker)
	}
	modelType, model := d.Model.Type, r.text("model.model", d.Model.Model)
	if modelType == "" {
		modelType = defaultModelType
	}
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = defaultModel
	}
	b.Model(modelType, model, d.Model.Temperature)
	b.Global(r.text("global", d.Global))

	for _, v := range d.Dynamic {
		b.Dynamic(v.Name, r.text("dynamic."+v.Name, v.Description))
	}
	for _, k := range sortedKeys(d.Variables) {
		b.Default(k, r.text("default_variables."+k, d.Variables[k]))
	}
	for _, tool := range d.Tools {
		b.Tools(renderTool(r, tool))
	}

	for _, spec := range d.Nodes {
		include, err := gate(cfg, spec)
		if err != nil {
			return nil, fmt.Errorf("template %q: node %q: %w", d.Name, spec.ID, err)
		}
		if !include {
			continue
		}
		if err := addNode(b, r, spec); err != nil {
			return nil, fmt.Errorf("template %q: node %q: %w", d.Name, spec.ID, err)
		}
	}

	agentName := r.text("agent_name", d.AgentName)
	if r.err != nil {
		return nil, fmt.Errorf("template %q: %w", d.Name, r.err)
	}
	if agentName == "" {
		agentName = cfg.CompanyName + " Agent"
	}

	flow, cat, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", d.Name, err)
	}
	return &Result{
		Flow:      flow,
		Catalog:   cat,
		Config:    cfg,
		AgentName: agentName,
		Warnings:  warnings,
	}, nil
}

func gate(cfg config.BusinessConfig, spec NodeSpec) (bool, error) {
	switch {
	case spec.When != "":
		return config.IsSet(cfg, spec.When)
	case spec.Unless != "":
		set, err := config.IsSet(cfg, spec.Unless)
		return !set, err
	default:
		return true, nil
	}
}

func addNode(b *dsl.Builder, r *renderer, spec NodeSpec) error {
	kind, err := domain.ParseNodeKind(spec.Kind)
	if err != nil {
		return err
	}
	field := "nodes." + spec.ID

	nb := b.Add(spec.ID)
	if spec.Name != "" {
		nb.Name(r.text(field+".name", spec.Name))
	}

	switch kind {
	case domain.KindDialogue:
		nb.Say("")
	case domain.KindExtraction:
		if len(spec.Variables) == 0 {
			return fmt.Errorf("extraction node declares no variables")
		}
		for _, v := range spec.Variables {
			nb.Extract(v.Name, r.text(field+".variables."+v.Name, v.Description))
		}
	case domain.KindFunctionCall:
		nb.Call(spec.Tool)
		if spec.Wait {
			nb.Wait()
		}
		if spec.Speak {
			nb.Speak()
		}
	case domain.KindSmsSend:
		nb.SMS("")
	case domain.KindTransfer:
		if spec.Transfer == nil {
			return fmt.Errorf("transfer node has no destination")
		}
		mode := domain.TransferMode(spec.Transfer.Mode)
		if mode == "" {
			mode = domain.TransferWarm
		}
		nb.Transfer(r.text(field+".transfer.number", spec.Transfer.Number), mode)
	case domain.KindTerminal:
		nb.Terminal()
	}

	switch {
	case spec.Text != "":
		nb.Static(r.text(field+".text", spec.Text))
	case spec.Prompt != "":
		nb.Prompt(r.text(field+".prompt", spec.Prompt))
	}

	for i, e := range spec.Edges {
		switch {
		case e.On == string(domain.OutcomeSuccess):
			nb.OnSuccess(e.To)
		case e.On == string(domain.OutcomeFailure):
			nb.OnFailure(e.To)
		case e.On != "":
			return fmt.Errorf("edge %d: unknown outcome %q", i, e.On)
		case e.Condition != "":
			nb.Branch(r.text(fmt.Sprintf("%s.edges[%d].condition", field, i), e.Condition), e.To)
		default:
			nb.Go(e.To)
		}
		if e.Description != "" {
			nb.Describe(r.text(fmt.Sprintf("%s.edges[%d].description", field, i), e.Description))
		}
	}
	return nil
}

func renderTool(r *renderer, t domain.Tool) domain.Tool {
	field := "tools." + t.ToolID
	t.Name = r.text(field+".name", t.Name)
	t.Description = r.text(field+".description", t.Description)
	t.URL = r.text(field+".url", t.URL)
	if t.Type == "" {
		t.Type = "custom"
	}
	if t.Method == "" {
		t.Method = "POST"
	}
	if t.Parameters.Type == "" {
		t.Parameters.Type = "object"
	}
	props := make(map[string]domain.ToolProperty, len(t.Parameters.Properties))
	for _, k := range sortedKeys(t.Parameters.Properties) {
		p := t.Parameters.Properties[k]
		p.Description = r.text(field+"."+k+".description", p.Description)
		p.Const = r.text(field+"."+k+".const", p.Const)
		props[k] = p
	}
	if len(props) > 0 {
		t.Parameters.Properties = props
	}
	t.Parameters.Required = append([]string(nil), t.Parameters.Required...)
	return t
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
