package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/pkg/config"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/retell"
	"github.com/aretw0/switchboard/pkg/validator"
)

func flowCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addFlowFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestConfirm(t *testing.T) {
	for answer, want := range map[string]bool{
		"yes\n":  true,
		"Y\n":    true,
		"no\n":   false,
		"\n":     false,
		"yess\n": false,
		"":       false,
	} {
		var out bytes.Buffer
		assert.Equal(t, want, confirm(strings.NewReader(answer), &out, "Delete it?"), "answer %q", answer)
		assert.Equal(t, "Delete it? (yes/no): ", out.String())
	}
}

func TestInteractiveConfig(t *testing.T) {
	answers := strings.Join([]string{
		"Green Valley Landscaping",
		"Landscaping",
		"555-123-4567",
		"",
		"mowing, mulching",
		"",
		"Dana",
		"",
		"",
		"",
		"",
		"gpt-4.1-mini",
	}, "\n") + "\n"

	start := config.BusinessConfig{ServiceAreas: []string{"Springfield"}, VoiceID: "11labs-Rachel"}
	var out bytes.Buffer
	cfg := interactiveConfig(strings.NewReader(answers), &out, start)

	assert.Equal(t, "Green Valley Landscaping", cfg.CompanyName)
	assert.Equal(t, "landscaping", cfg.BusinessType)
	assert.Equal(t, "555-123-4567", cfg.PhoneNumber)
	assert.Equal(t, []string{"mowing", " mulching"}, cfg.Services)
	assert.Equal(t, []string{"Springfield"}, cfg.ServiceAreas, "blank answers keep the current value")
	assert.Equal(t, "Dana", cfg.OwnerName)
	assert.Equal(t, "11labs-Rachel", cfg.VoiceID)
	assert.Equal(t, "gpt-4.1-mini", cfg.Model)
	assert.Contains(t, out.String(), "Voice ID [11labs-Rachel]: ")
}

func TestBusinessConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("company_name: Acme\nbusiness_type: hvac\n"), 0o644))

	cfg, err := businessConfig(flowCommand(t, "--config", path, "--set", "phone_number=5551234567", "--set", "company_name=Acme HVAC"))
	require.NoError(t, err)
	assert.Equal(t, "Acme HVAC", cfg.CompanyName)
	assert.Equal(t, "hvac", cfg.BusinessType)
	assert.Equal(t, "5551234567", cfg.PhoneNumber)

	_, err = businessConfig(flowCommand(t, "--set", "colour=blue"))
	assert.Error(t, err)
}

func TestLoadFlow(t *testing.T) {
	ctx := context.Background()
	cmd := flowCommand(t, "--template", "receptionist",
		"--set", "company_name=Green Valley Landscaping",
		"--set", "business_type=landscaping",
		"--set", "phone_number=5551234567")

	flow, b, err := loadFlow(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.Report.Valid())

	data, err := retell.Encode(flow)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "flow.json")
	require.NoError(t, writeIndented(path, data))

	fromFile, b, err := loadFlow(ctx, flowCommand(t, "--file", path))
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Equal(t, flow, fromFile)

	_, _, err = loadFlow(ctx, flowCommand(t, "--file", filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, err)
}

func TestPreviewNode(t *testing.T) {
	cmd := flowCommand(t,
		"--set", "company_name=Green Valley Landscaping",
		"--set", "business_type=landscaping",
		"--set", "phone_number=5551234567")
	flow, _, err := loadFlow(context.Background(), cmd)
	require.NoError(t, err)

	text, err := previewNode(flow, "booking_confirmation", map[string]string{"caller_name": "Dana"})
	require.NoError(t, err)
	assert.Equal(t, "You're all set, Dana! Someone from Green Valley Landscaping will call you to confirm the exact time.\n\nIs there anything else I can help you with?", text)

	_, err = previewNode(flow, "nowhere", nil)
	assert.Error(t, err)
}

func TestOverlayFor(t *testing.T) {
	r := &validator.Report{Issues: []validator.Issue{
		{Rule: validator.RuleEdgeTargetsExist, Severity: validator.SeverityError, NodeID: "a"},
		{Rule: validator.RuleTransferPhoneE164, Severity: validator.SeverityWarning, NodeID: "b"},
		{Rule: validator.RuleStartNodeExists, Severity: validator.SeverityError},
	}}
	o := overlayFor(r)
	assert.Equal(t, []string{"a"}, o.ErrorNodes)
	assert.Equal(t, []string{"b"}, o.WarningNodes)
}

func TestOpenLeads_Encrypted(t *testing.T) {
	key := strings.Repeat("ab", 32)
	old := strings.Repeat("cd", 32)
	t.Setenv(envLeadKey, key)
	t.Setenv(envLeadOldKeys, old+", ")

	mws, err := leadMiddleware()
	require.NoError(t, err)
	assert.Len(t, mws, 2)

	ctx := context.Background()
	b, err := openLeads(ctx, "memory")
	require.NoError(t, err)
	defer b.close()

	lead := &domain.Lead{ID: "LEAD-1", ContactName: "Dana", Phone: "+15551234567", Notes: "ssn 123-45-6789"}
	require.NoError(t, b.store.Save(ctx, lead))
	got, err := b.store.FindByPhone(ctx, "5551234567")
	require.NoError(t, err)
	assert.Equal(t, "Dana", got.ContactName)
	assert.Equal(t, "ssn ***", got.Notes)

	t.Setenv(envLeadKey, hex.EncodeToString([]byte("short")))
	_, err = openLeads(ctx, "memory")
	assert.Error(t, err)

	t.Setenv(envLeadKey, "")
	mws, err = leadMiddleware()
	require.NoError(t, err)
	assert.Len(t, mws, 1)

	_, err = openLeads(ctx, "sqlite")
	assert.ErrorContains(t, err, "unknown store")
}
