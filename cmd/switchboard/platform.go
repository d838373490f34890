package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	loamAdapter "github.com/aretw0/switchboard/internal/adapters/loam"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

const playgroundURL = "https://dashboard.retellai.com/playground?call_id="

var listAgentsCmd = &cobra.Command{
	Use:   "list-agents",
	Short: "List the agents of the account",
	Run: func(cmd *cobra.Command, args []string) {
		client := retellClient()
		agents, err := client.ListAgents(cmd.Context())
		if err != nil {
			fail("Error listing agents", err)
		}
		deployments := localDeployments(cmd)

		rule := strings.Repeat("=", 80)
		fmt.Println(rule)
		fmt.Println("Your Retell AI Agents")
		fmt.Println(rule)
		if len(agents) == 0 {
			fmt.Println("No agents found.")
		}
		for _, a := range agents {
			name := a.AgentName
			if name == "" {
				name = "Unnamed Agent"
			}
			fmt.Printf("\n%s\n", name)
			fmt.Printf("   ID: %s\n", a.AgentID)
			fmt.Printf("   Voice: %s\n", a.VoiceID)
			if d, ok := deployments[a.AgentID]; ok {
				fmt.Printf("   Template: %s (deployed %s)\n", d.Template, d.CreatedAt.Format("2006-01-02 15:04"))
			}
		}
		fmt.Println("\n" + rule)
		fmt.Printf("Total: %d agent(s)\n", len(agents))
	},
}

var listFlowsCmd = &cobra.Command{
	Use:   "list-flows",
	Short: "List the conversation flows of the account",
	Run: func(cmd *cobra.Command, args []string) {
		client := retellClient()
		flows, err := client.ListConversationFlows(cmd.Context())
		if err != nil {
			fail("Error listing flows", err)
		}

		rule := strings.Repeat("=", 80)
		fmt.Println(rule)
		fmt.Println("Your Conversation Flows")
		fmt.Println(rule)
		if len(flows) == 0 {
			fmt.Println("No conversation flows found.")
		}
		for _, f := range flows {
			fmt.Printf("\nFlow ID: %s\n", f.ConversationFlowID)
			fmt.Printf("   Version: %d\n", f.Version)
			fmt.Printf("   Nodes: %d\n", len(f.Nodes))
		}
		fmt.Println("\n" + rule)
		fmt.Printf("Total: %d flow(s)\n", len(flows))
	},
}

var getAgentCmd = &cobra.Command{
	Use:   "get-agent AGENT_ID",
	Short: "Show one agent",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := retellClient()
		a, err := client.GetAgent(cmd.Context(), args[0])
		if err != nil {
			fail("Error getting agent", err)
		}
		name := a.AgentName
		if name == "" {
			name = "Unnamed"
		}

		rule := strings.Repeat("=", 60)
		fmt.Println(rule)
		fmt.Printf("Agent Details: %s\n", name)
		fmt.Println(rule)
		fmt.Printf("Agent ID:    %s\n", a.AgentID)
		fmt.Printf("Voice ID:    %s\n", a.VoiceID)
		fmt.Printf("Engine Type: %s\n", a.ResponseEngine.Type)
		if a.ResponseEngine.ConversationFlowID != "" {
			fmt.Printf("Flow ID:     %s\n", a.ResponseEngine.ConversationFlowID)
		}
		if a.WebhookURL != "" {
			fmt.Printf("Webhook:     %s\n", a.WebhookURL)
		}
		if d, ok := localDeployments(cmd)[a.AgentID]; ok {
			fmt.Printf("Template:    %s\n", d.Template)
			fmt.Printf("Company:     %s\n", d.CompanyName)
		}
		fmt.Println(rule)
	},
}

var testCmd = &cobra.Command{
	Use:   "test AGENT_ID",
	Short: "Open a browser test call with an agent",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := retellClient()
		fmt.Printf("Creating test web call for agent %s...\n", args[0])
		call, err := client.CreateWebCall(cmd.Context(), args[0])
		if err != nil {
			fail("Error creating test call", err)
		}

		rule := strings.Repeat("=", 60)
		fmt.Println(rule)
		fmt.Println("Test Web Call Created!")
		fmt.Println(rule)
		fmt.Printf("Call ID: %s\n", call.CallID)
		fmt.Printf("Access Token: %s\n", call.AccessToken)
		fmt.Println("\nOpen this URL to test your agent:")
		fmt.Printf("   %s%s\n", playgroundURL, call.CallID)
		fmt.Println(rule)
	},
}

var deleteAgentCmd = &cobra.Command{
	Use:   "delete-agent AGENT_ID",
	Short: "Delete an agent",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := retellClient()
		id := args[0]
		ok, err := mayDelete(cmd, "agent "+id)
		if err != nil {
			fail("Error deleting agent", err)
		}
		if !ok {
			fmt.Println("Deletion cancelled.")
			return
		}
		if err := client.DeleteAgent(cmd.Context(), id); err != nil {
			fail("Error deleting agent", err)
		}
		if ledger := openLedger(cmd); ledger != nil {
			if err := ledger.Delete(cmd.Context(), id); err != nil {
				newLogger(cmd).Warn("agent deleted but its ledger record remains", "agent_id", id, "err", err)
			}
		}
		fmt.Printf("Agent %s deleted successfully.\n", id)
	},
}

var deleteFlowCmd = &cobra.Command{
	Use:   "delete-flow FLOW_ID",
	Short: "Delete a conversation flow",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := retellClient()
		id := args[0]
		ok, err := mayDelete(cmd, "flow "+id)
		if err != nil {
			fail("Error deleting flow", err)
		}
		if !ok {
			fmt.Println("Deletion cancelled.")
			return
		}
		if err := client.DeleteConversationFlow(cmd.Context(), id); err != nil {
			fail("Error deleting flow", err)
		}
		fmt.Printf("Conversation flow %s deleted successfully.\n", id)
	},
}

var exportFlowCmd = &cobra.Command{
	Use:   "export-flow FLOW_ID",
	Short: "Save a stored conversation flow as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := retellClient()
		id := args[0]
		raw, err := client.GetConversationFlow(cmd.Context(), id)
		if err != nil {
			fail("Error exporting flow", err)
		}
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = "flow_" + id + ".json"
		}
		if err := writeIndented(output, raw); err != nil {
			fail("Error exporting flow", err)
		}
		fmt.Printf("Flow exported to: %s\n", output)
	},
}

func init() {
	rootCmd.AddCommand(listAgentsCmd, listFlowsCmd, getAgentCmd, testCmd, deleteAgentCmd, deleteFlowCmd, exportFlowCmd)

	deleteAgentCmd.Flags().BoolP("yes", "y", false, "Delete without asking")
	deleteFlowCmd.Flags().BoolP("yes", "y", false, "Delete without asking")
	exportFlowCmd.Flags().StringP("output", "o", "", "Output file (default flow_<id>.json)")
}

func writeIndented(path string, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("flow is not valid JSON: %w", err)
	}
	buf.WriteByte('\n')
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// openLedger returns nil when the ledger directory does not exist yet.
func openLedger(cmd *cobra.Command) ports.DeploymentLedger {
	dir, _ := cmd.Flags().GetString("ledger-dir")
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	ledger, err := loamAdapter.Open(dir)
	if err != nil {
		newLogger(cmd).Warn("deployment ledger unavailable", "dir", dir, "err", err)
		return nil
	}
	return ledger
}

func localDeployments(cmd *cobra.Command) map[string]domain.Deployment {
	ledger := openLedger(cmd)
	if ledger == nil {
		return nil
	}
	list, err := ledger.List(cmd.Context())
	if err != nil {
		newLogger(cmd).Warn("failed to read deployment ledger", "err", err)
		return nil
	}
	out := make(map[string]domain.Deployment, len(list))
	for _, d := range list {
		out[d.AgentID] = d
	}
	return out
}
