package switchboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard/pkg/catalog"
	"github.com/aretw0/switchboard/pkg/config"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flowbuilder"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/retell"
	"github.com/aretw0/switchboard/pkg/validator"
)

// DefaultVoiceID is used when neither the configuration nor WithVoiceID names a voice.
const DefaultVoiceID = "11labs-Adrian"

// Platform is the part of the voice platform API a Deployer needs.
// *retell.Client implements it.
type Platform interface {
	CreateConversationFlow(ctx context.Context, f *domain.Flow) (*retell.ConversationFlow, error)
	CreateAgent(ctx context.Context, req retell.AgentRequest) (*retell.Agent, error)
}

// Deployer builds flows from templates and creates agents for them.
type Deployer struct {
	platform      Platform
	ledgers       []ports.DeploymentLedger
	validatorOpts []validator.Option
	logger        *slog.Logger
	webhookURL    string
	voiceID       string
	now           func() time.Time
}

// Option defines a functional option for configuring the Deployer.
type Option func(*Deployer)

// WithLogger sets a custom structured logger for the deployer.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deployer) {
		d.logger = logger
	}
}

// WithLedger adds a ledger every successful deployment is recorded in.
// It can be given more than once.
func WithLedger(l ports.DeploymentLedger) Option {
	return func(d *Deployer) {
		if l != nil {
			d.ledgers = append(d.ledgers, l)
		}
	}
}

// WithWebhookURL attaches a webhook to agents whose configuration has none.
func WithWebhookURL(u string) Option {
	return func(d *Deployer) {
		d.webhookURL = u
	}
}

// WithVoiceID sets the voice of agents whose configuration has none.
func WithVoiceID(id string) Option {
	return func(d *Deployer) {
		d.voiceID = id
	}
}

// WithValidatorOptions changes the policy deployments are validated with.
func WithValidatorOptions(opts ...validator.Option) Option {
	return func(d *Deployer) {
		d.validatorOpts = append(d.validatorOpts, opts...)
	}
}

// WithClock replaces time.Now for deployment timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Deployer) {
		d.now = now
	}
}

// NewDeployer creates a Deployer talking to platform.
func NewDeployer(platform Platform, opts ...Option) *Deployer {
	d := &Deployer{
		platform: platform,
		voiceID:  DefaultVoiceID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return d
}

// Build is a flow ready to deploy, with everything derived while building it.
type Build struct {
	Template  string
	AgentName string
	Flow      *domain.Flow
	Catalog   *catalog.Catalog
	Config    config.BusinessConfig
	Report    *validator.Report
	Warnings  []domain.PhoneFormatWarning
}

// BuildFlow instantiates the built-in template with cfg and validates the result.
// Validation findings are returned in the Report, not as an error.
func BuildFlow(ctx context.Context, template string, cfg config.BusinessConfig, opts ...validator.Option) (*Build, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := flowbuilder.Lookup(template)
	if err != nil {
		return nil, err
	}
	res, err := t.Build(cfg)
	if err != nil {
		return nil, err
	}
	return &Build{
		Template:  template,
		AgentName: res.AgentName,
		Flow:      res.Flow,
		Catalog:   res.Catalog,
		Config:    res.Config,
		Report:    validator.Validate(res.Flow, opts...),
		Warnings:  res.Warnings,
	}, nil
}

// Build instantiates and validates a template with the deployer's validation policy.
func (d *Deployer) Build(ctx context.Context, template string, cfg config.BusinessConfig) (*Build, error) {
	logger := d.logger.With("template", template)
	b, err := BuildFlow(ctx, template, cfg, d.validatorOpts...)
	if err != nil {
		logger.Error("build failed", "err", err)
		return nil, err
	}
	for _, w := range b.Warnings {
		logger.Warn("phone number is not E.164", "field", w.Field, "value", w.Original, "reason", w.Reason)
	}
	logger.Debug("flow built",
		"nodes", len(b.Flow.Nodes),
		"errors", len(b.Report.Errors()),
		"warnings", len(b.Report.Warnings()))
	return b, nil
}

// Deploy builds the template, creates the conversation flow and an agent bound
// to it, and records the deployment in every ledger.
// A flow with validation errors never reaches the platform.
func (d *Deployer) Deploy(ctx context.Context, template string, cfg config.BusinessConfig) (*domain.Deployment, error) {
	if d.platform == nil {
		return nil, errors.New("deployer has no platform client")
	}
	b, err := d.Build(ctx, template, cfg)
	if err != nil {
		return nil, err
	}
	if err := b.Report.Err(); err != nil {
		return nil, fmt.Errorf("template %q: %w", template, err)
	}
	logger := d.logger.With("template", template, "company", b.Config.CompanyName)

	flow, err := d.platform.CreateConversationFlow(ctx, b.Flow)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation flow: %w", err)
	}
	logger.Info("conversation flow created", "conversation_flow_id", flow.ConversationFlowID)

	voice := b.Config.VoiceID
	if voice == "" {
		voice = d.voiceID
	}
	webhook := b.Config.WebhookURL
	if webhook == "" {
		webhook = d.webhookURL
	}
	agent, err := d.platform.CreateAgent(ctx, retell.NewAgentRequest(b.AgentName, flow.ConversationFlowID, voice, webhook))
	if err != nil {
		return nil, fmt.Errorf("failed to create agent for flow %s: %w", flow.ConversationFlowID, err)
	}
	logger.Info("agent created", "agent_id", agent.AgentID, "agent_name", b.AgentName)

	dep := domain.Deployment{
		AgentID:            agent.AgentID,
		ConversationFlowID: flow.ConversationFlowID,
		CompanyName:        b.Config.CompanyName,
		Template:           template,
		CreatedAt:          d.now().UTC(),
	}
	for _, l := range d.ledgers {
		if err := l.Record(ctx, dep); err != nil {
			return &dep, fmt.Errorf("agent %s created but not recorded: %w", dep.AgentID, err)
		}
	}
	return &dep, nil
}
