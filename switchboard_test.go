package switchboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/adapters/file"
	"github.com/aretw0/switchboard/internal/adapters/memory"
	"github.com/aretw0/switchboard/pkg/config"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/retell"
	"github.com/aretw0/switchboard/pkg/validator"
)

var deployedAt = time.Date(2026, time.March, 3, 10, 30, 0, 0, time.UTC)

// fakePlatform answers create-conversation-flow and create-agent like the real API.
type fakePlatform struct {
	mu       sync.Mutex
	requests map[string]map[string]any
	failPath string
}

func newFakePlatform(t *testing.T) (*fakePlatform, *retell.Client) {
	t.Helper()
	fp := &fakePlatform{requests: map[string]map[string]any{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)

		fp.mu.Lock()
		fp.requests[r.URL.Path] = body
		fail := fp.failPath == r.URL.Path
		fp.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"message":"slow down"}`)
			return
		}
		switch r.URL.Path {
		case "/create-conversation-flow":
			_, _ = io.WriteString(w, `{"conversation_flow_id":"conversation_flow_abc","version":0}`)
		case "/create-agent":
			_, _ = io.WriteString(w, `{"agent_id":"agent_xyz","agent_name":"ignored"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return fp, retell.NewClient("key_test", retell.WithBaseURL(srv.URL), retell.WithHTTPClient(srv.Client()))
}

func (fp *fakePlatform) request(path string) map[string]any {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.requests[path]
}

func landscaping() config.BusinessConfig {
	return config.BusinessConfig{
		CompanyName:  "Green Valley Landscaping",
		BusinessType: "landscaping",
		PhoneNumber:  "(555) 123-4567",
	}
}

func TestDeploy_Receptionist(t *testing.T) {
	fp, client := newFakePlatform(t)
	ledger := memory.NewLedger()
	dir := t.TempDir()

	d := switchboard.NewDeployer(client,
		switchboard.WithLedger(ledger),
		switchboard.WithLedger(file.New(dir)),
		switchboard.WithWebhookURL("https://hooks.example.com/webhook"),
		switchboard.WithClock(func() time.Time { return deployedAt }),
	)

	dep, err := d.Deploy(context.Background(), "receptionist", landscaping())
	require.NoError(t, err)

	want := domain.Deployment{
		AgentID:            "agent_xyz",
		ConversationFlowID: "conversation_flow_abc",
		CompanyName:        "Green Valley Landscaping",
		Template:           "receptionist",
		CreatedAt:          deployedAt,
	}
	assert.Equal(t, want, *dep)

	flow := fp.request("/create-conversation-flow")
	require.NotNil(t, flow)
	assert.Equal(t, "greeting", flow["start_node_id"])

	agent := fp.request("/create-agent")
	require.NotNil(t, agent)
	assert.Equal(t, "Green Valley Landscaping AI Receptionist", agent["agent_name"])
	assert.Equal(t, "11labs-Adrian", agent["voice_id"])
	assert.Equal(t, "https://hooks.example.com/webhook", agent["webhook_url"])
	assert.Equal(t, "conversation_flow_abc", agent["response_engine"].(map[string]any)["conversation_flow_id"])

	recorded, err := ledger.Get(context.Background(), "agent_xyz")
	require.NoError(t, err)
	assert.Equal(t, want, *recorded)

	onDisk, err := file.New(dir).Get(context.Background(), "agent_xyz")
	require.NoError(t, err)
	assert.Equal(t, want, *onDisk)
}

func TestDeploy_AgentNames(t *testing.T) {
	tests := []struct {
		template string
		cfg      config.BusinessConfig
		want     string
	}{
		{"receptionist", landscaping(), "Green Valley Landscaping AI Receptionist"},
		{"inbound-sales", config.BusinessConfig{CompanyName: "GreenLine AI", AgentName: "Sam"}, "GreenLine AI Sales Agent (Sam)"},
		{"outbound-sales", config.BusinessConfig{CompanyName: "GreenLine AI", AgentName: "Riley"}, "GreenLine AI Outbound Sales Agent (Riley)"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			fp, client := newFakePlatform(t)
			_, err := switchboard.NewDeployer(client).Deploy(context.Background(), tt.template, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fp.request("/create-agent")["agent_name"])
		})
	}
}

func TestDeploy_ConfigVoiceWins(t *testing.T) {
	fp, client := newFakePlatform(t)
	cfg := landscaping()
	cfg.VoiceID = "11labs-Myra"
	cfg.WebhookURL = "https://client.example.com/hook"

	d := switchboard.NewDeployer(client,
		switchboard.WithVoiceID("11labs-Other"),
		switchboard.WithWebhookURL("https://hooks.example.com/webhook"))
	_, err := d.Deploy(context.Background(), "receptionist", cfg)
	require.NoError(t, err)

	agent := fp.request("/create-agent")
	assert.Equal(t, "11labs-Myra", agent["voice_id"])
	assert.Equal(t, "https://client.example.com/hook", agent["webhook_url"])
}

func TestDeploy_RefusesInvalidFlow(t *testing.T) {
	fp, client := newFakePlatform(t)
	cfg := landscaping()
	cfg.TransferNumber = "555-1234"

	d := switchboard.NewDeployer(client)
	_, err := d.Deploy(context.Background(), "receptionist", cfg)
	require.Error(t, err)

	issues := validator.ValidationIssues(err)
	require.NotEmpty(t, issues)
	assert.Equal(t, validator.RuleTransferPhoneE164, issues[0].Rule)
	assert.Nil(t, fp.request("/create-conversation-flow"), "an invalid flow never reaches the platform")
}

func TestDeploy_DowngradedRuleDeploys(t *testing.T) {
	fp, client := newFakePlatform(t)
	cfg := landscaping()
	cfg.TransferNumber = "555-1234"

	d := switchboard.NewDeployer(client,
		switchboard.WithValidatorOptions(validator.WithSeverity(validator.RuleTransferPhoneE164, validator.SeverityWarning)))
	dep, err := d.Deploy(context.Background(), "receptionist", cfg)
	require.NoError(t, err)
	assert.Equal(t, "agent_xyz", dep.AgentID)
	assert.NotNil(t, fp.request("/create-conversation-flow"))
}

func TestDeploy_Errors(t *testing.T) {
	t.Run("Unknown Template", func(t *testing.T) {
		_, client := newFakePlatform(t)
		_, err := switchboard.NewDeployer(client).Deploy(context.Background(), "concierge", landscaping())
		assert.ErrorIs(t, err, domain.ErrUnknownTemplate)
	})

	t.Run("Invalid Configuration", func(t *testing.T) {
		fp, client := newFakePlatform(t)
		_, err := switchboard.NewDeployer(client).Deploy(context.Background(), "receptionist", config.BusinessConfig{CompanyName: "Acme"})
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		assert.Nil(t, fp.request("/create-conversation-flow"))
	})

	t.Run("Agent Creation Fails", func(t *testing.T) {
		fp, client := newFakePlatform(t)
		fp.failPath = "/create-agent"
		ledger := memory.NewLedger()

		_, err := switchboard.NewDeployer(client, switchboard.WithLedger(ledger)).Deploy(context.Background(), "receptionist", landscaping())
		assert.ErrorIs(t, err, retell.ErrRateLimited)
		assert.True(t, strings.Contains(err.Error(), "conversation_flow_abc"), "the orphaned flow is named: %v", err)

		list, err := ledger.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("No Platform", func(t *testing.T) {
		_, err := switchboard.NewDeployer(nil).Deploy(context.Background(), "receptionist", landscaping())
		assert.Error(t, err)
	})
}

type brokenLedger struct{ memory.Ledger }

func (*brokenLedger) Record(context.Context, domain.Deployment) error {
	return errors.New("disk full")
}

func TestDeploy_LedgerFailureKeepsDeployment(t *testing.T) {
	_, client := newFakePlatform(t)
	dep, err := switchboard.NewDeployer(client, switchboard.WithLedger(&brokenLedger{})).
		Deploy(context.Background(), "receptionist", landscaping())
	require.Error(t, err)
	require.NotNil(t, dep, "the created agent is still reported")
	assert.Equal(t, "agent_xyz", dep.AgentID)
}

func TestBuildFlow(t *testing.T) {
	cfg := landscaping()
	cfg.TransferNumber = "555-1234"

	b, err := switchboard.BuildFlow(context.Background(), "receptionist", cfg)
	require.NoError(t, err)
	assert.Equal(t, "Green Valley Landscaping AI Receptionist", b.AgentName)
	assert.Equal(t, "+15551234567", b.Config.PhoneNumber)
	assert.False(t, b.Report.Valid(), "a transfer number that is not E.164 blocks deployment")
	transfer := b.Report.ByRule(validator.RuleTransferPhoneE164)
	require.Len(t, transfer, 1)
	assert.Equal(t, validator.SeverityError, transfer[0].Severity)
	require.Len(t, b.Warnings, 1)
	assert.Equal(t, "transfer_number", b.Warnings[0].Field)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = switchboard.BuildFlow(ctx, "receptionist", cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVersion(t *testing.T) {
	assert.Regexp(t, `^\d+\.\d+\.\d+$`, strings.TrimSpace(switchboard.Version))
}
