package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/adapters/file"
	loamAdapter "github.com/aretw0/switchboard/internal/adapters/loam"
	"github.com/aretw0/switchboard/internal/presentation/tui"
	"github.com/aretw0/switchboard/pkg/config"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a voice agent from a business config",
	Long: `Builds the template with the business config, validates the flow, creates the
conversation flow and an agent bound to it, and records the deployment.

Without --config the fields are asked for interactively.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := retellClient()
		logger := newLogger(cmd)

		cfg, err := businessConfig(cmd)
		if err != nil {
			fail("Error loading config", err)
		}
		if path, _ := cmd.Flags().GetString("config"); path == "" {
			if !isTerminal(os.Stdin) {
				fail("Error loading config", fmt.Errorf("no --config given and stdin is not a terminal"))
			}
			cfg = interactiveConfig(os.Stdin, os.Stdout, cfg)
		}

		ledgerDir, _ := cmd.Flags().GetString("ledger-dir")
		ledger, err := loamAdapter.Open(ledgerDir)
		if err != nil {
			fail("Error opening ledger", err)
		}
		outputDir, _ := cmd.Flags().GetString("output-dir")
		template, _ := cmd.Flags().GetString("template")
		webhook, _ := cmd.Flags().GetString("webhook-url")

		d := switchboard.NewDeployer(client,
			switchboard.WithLogger(logger),
			switchboard.WithLedger(ledger),
			switchboard.WithLedger(file.New(outputDir)),
			switchboard.WithWebhookURL(webhook),
		)

		tui.PrintBanner(os.Stdout)
		fmt.Printf("Creating agent for %s...\n", cfg.CompanyName)

		dep, err := d.Deploy(cmd.Context(), template, cfg)
		if err != nil {
			fail("Error creating agent", err)
		}

		rule := strings.Repeat("=", 60)
		fmt.Println()
		fmt.Println(rule)
		fmt.Println(tui.Status("Agent Created Successfully!", true))
		fmt.Println(rule)
		fmt.Printf("Company:              %s\n", dep.CompanyName)
		fmt.Printf("Template:             %s\n", dep.Template)
		fmt.Printf("Conversation Flow ID: %s\n", dep.ConversationFlowID)
		fmt.Printf("Agent ID:             %s\n", dep.AgentID)
		fmt.Println(rule)
		fmt.Printf("\nAgent details saved to: %s\n", filepath.Join(outputDir, "agent_"+dep.AgentID+".json"))
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	addConfigFlags(createCmd)
	createCmd.Flags().StringP("output-dir", "o", ".", "Directory for the agent_<id>.json record")
	createCmd.Flags().String("webhook-url", "", "Webhook for agents whose config has none")
}

// interactiveConfig asks for the fields a receptionist needs. Answers left
// blank keep what cfg already has.
func interactiveConfig(in io.Reader, out io.Writer, cfg config.BusinessConfig) config.BusinessConfig {
	r := bufio.NewReader(in)
	ask := func(prompt, current string) string {
		if current != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, current)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, _ := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
		return current
	}
	list := func(prompt string, current []string) []string {
		answer := ask(prompt+" (comma-separated)", strings.Join(current, ", "))
		if answer == "" {
			return current
		}
		return strings.Split(answer, ",")
	}

	fmt.Fprintln(out, "\nInteractive Agent Configuration")
	fmt.Fprintln(out, strings.Repeat("-", 40))
	cfg.CompanyName = ask("Company Name", cfg.CompanyName)
	cfg.BusinessType = strings.ToLower(ask("Business Type (landscaping/hvac/other)", cfg.BusinessType))
	cfg.PhoneNumber = ask("Business Phone", cfg.PhoneNumber)
	cfg.BusinessHours = ask("Business Hours", cfg.BusinessHours)
	cfg.Services = list("Services", cfg.Services)
	cfg.ServiceAreas = list("Service Areas", cfg.ServiceAreas)
	cfg.OwnerName = ask("Owner/Manager Name (for messages & transfers)", cfg.OwnerName)
	cfg.TransferNumber = ask("Transfer Number for emergencies (optional)", cfg.TransferNumber)
	cfg.EmergencyAvailability = ask("Emergency Availability", cfg.EmergencyAvailability)
	cfg.WebhookURL = ask("Webhook URL (optional)", cfg.WebhookURL)

	fmt.Fprintln(out, "\nVoice Options: 11labs-Adrian, 11labs-Rachel, 11labs-Drew, 11labs-Sarah")
	cfg.VoiceID = ask("Voice ID", cfg.VoiceID)
	fmt.Fprintln(out, "\nModel Options: gpt-4.1, gpt-4.1-mini, claude-4.5-sonnet, claude-4.5-haiku")
	cfg.Model = ask("Model", cfg.Model)
	return cfg
}
