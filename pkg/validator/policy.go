package validator

// Policy decides the severity of non-structural findings.
type Policy struct {
	// LenientReferences downgrades every variable reference issue to a warning.
	LenientReferences bool
	// Overrides sets the severity of a whole rule. Structural rules
	// (start node through edge shape) are always errors and ignore it.
	Overrides map[Rule]Severity
}

// Option configures a Policy.
type Option func(*Policy)

// WithLenientReferences treats every unguaranteed variable reference as a warning.
func WithLenientReferences() Option {
	return func(p *Policy) {
		p.LenientReferences = true
	}
}

// WithSeverity forces every issue of rule to s.
func WithSeverity(rule Rule, s Severity) Option {
	return func(p *Policy) {
		if p.Overrides == nil {
			p.Overrides = make(map[Rule]Severity)
		}
		p.Overrides[rule] = s
	}
}

func newPolicy(opts []Option) Policy {
	var p Policy
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p Policy) apply(i Issue) Issue {
	if i.Rule.structural() {
		i.Severity = SeverityError
		return i
	}
	if s, ok := p.Overrides[i.Rule]; ok {
		i.Severity = s
	}
	return i
}
