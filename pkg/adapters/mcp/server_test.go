package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/flowbuilder"
	"github.com/aretw0/switchboard/pkg/validator"
)

const landscapingYAML = `
company_name: Green Valley Landscaping
business_type: landscaping
phone_number: (555) 123-4567
`

func newTestServer() *Server {
	return NewServer(logging.NewNop())
}

func TestListTemplates(t *testing.T) {
	out, err := newTestServer().handleListTemplates(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)

	names := make([]string, len(out.Templates))
	for i, tmpl := range out.Templates {
		names[i] = tmpl.Name
		assert.NotEmpty(t, tmpl.Description)
		assert.Contains(t, []string{"inbound", "outbound"}, tmpl.Direction)
	}
	assert.Equal(t, flowbuilder.Names(), names)
}

func TestBuildFlow(t *testing.T) {
	s := newTestServer()
	out, err := s.handleBuildFlow(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"template": "receptionist",
		"config":   landscapingYAML,
	})
	require.NoError(t, err)
	assert.Equal(t, "Green Valley Landscaping AI Receptionist", out.AgentName)
	assert.Equal(t, "greeting", out.Flow["start_node_id"])
	assert.NotEmpty(t, out.Flow["nodes"])
	assert.Empty(t, out.Warnings)

	t.Run("JSON Config With Warning", func(t *testing.T) {
		out, err := s.handleBuildFlow(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
			"template": "receptionist",
			"config":   `{"company_name":"Acme","business_type":"hvac","phone_number":"5551234567","transfer_number":"555-1234"}`,
		})
		require.NoError(t, err)
		require.Len(t, out.Warnings, 1)
		assert.Contains(t, out.Warnings[0], "transfer_number")
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := s.handleBuildFlow(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{})
		assert.ErrorContains(t, err, "template is required")

		_, err = s.handleBuildFlow(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
			"template": "receptionist",
			"config":   "company_name: [unclosed",
		})
		assert.Error(t, err)

		_, err = s.handleBuildFlow(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
			"template": "receptionist",
		})
		assert.Error(t, err, "receptionist needs a business type and phone number")
	})
}

func TestValidateFlow(t *testing.T) {
	s := newTestServer()

	t.Run("Template", func(t *testing.T) {
		out, err := s.handleValidateFlow(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
			"template": "receptionist",
			"config":   landscapingYAML + "transfer_number: 555-1234\n",
		})
		require.NoError(t, err)
		assert.False(t, out.Valid)
		require.Len(t, out.Errors, 1)
		assert.Equal(t, string(validator.RuleTransferPhoneE164), out.Errors[0].Rule)
		assert.Equal(t, 10, out.Errors[0].Number)
		assert.Equal(t, string(validator.SeverityError), out.Errors[0].Severity)
	})

	t.Run("Valid Template", func(t *testing.T) {
		out, err := s.handleValidateFlow(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
			"template": "receptionist",
			"config":   landscapingYAML + "transfer_number: 555-123-9876\n",
		})
		require.NoError(t, err)
		assert.True(t, out.Valid)
		assert.Empty(t, out.Errors)
	})

	t.Run("Flow Document", func(t *testing.T) {
		doc := `{
			"start_node_id": "hello",
			"nodes": [
				{"id": "hello", "type": "conversation", "instruction": {"type": "prompt", "text": "Hi"},
				 "always_edge": {"id": "hello_to_gone", "destination_node_id": "gone"}},
				{"id": "bye", "type": "end", "instruction": {"type": "prompt", "text": "Bye"}}
			]
		}`
		out, err := s.handleValidateFlow(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"flow": doc})
		require.NoError(t, err)
		assert.False(t, out.Valid)

		rules := map[string]bool{}
		for _, is := range out.Errors {
			rules[is.Rule] = true
		}
		assert.True(t, rules[string(validator.RuleEdgeTargetsExist)])
		assert.True(t, rules[string(validator.RuleReachableFromStart)])
	})

	t.Run("Bad Document", func(t *testing.T) {
		_, err := s.handleValidateFlow(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"flow": "{"})
		assert.ErrorContains(t, err, "invalid flow document")
	})
}

func TestRenderNode(t *testing.T) {
	s := newTestServer()
	args := func(vars string) map[string]interface{} {
		return map[string]interface{}{
			"template": "receptionist",
			"config":   landscapingYAML,
			"node_id":  "booking_confirmation",
			"vars":     vars,
		}
	}

	out, err := s.handleRenderNode(context.Background(), mcp.CallToolRequest{}, args(`{"caller_name":"Dana"}`))
	require.NoError(t, err)
	assert.Equal(t, "dialogue", out.Kind)
	assert.Equal(t, "You're all set, Dana! Someone from Green Valley Landscaping will call you to confirm the exact time.\n\nIs there anything else I can help you with?", out.Text)

	out, err = s.handleRenderNode(context.Background(), mcp.CallToolRequest{}, args(`{"caller_name":"Dana","caller_phone":"+15551234567"}`))
	require.NoError(t, err)
	assert.Contains(t, out.Text, "at +15551234567.")

	_, err = s.handleRenderNode(context.Background(), mcp.CallToolRequest{}, args(`["not","an","object"]`))
	assert.ErrorContains(t, err, "vars must be a JSON object")

	bad := args("")
	bad["node_id"] = "nowhere"
	_, err = s.handleRenderNode(context.Background(), mcp.CallToolRequest{}, bad)
	assert.ErrorContains(t, err, `no node "nowhere"`)
}
