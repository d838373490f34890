package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/config"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/retell"
)

const (
	envAPIKey        = "RETELL_API_KEY"
	envBaseURL       = "RETELL_BASE_URL"
	envWebhookSecret = "SWITCHBOARD_WEBHOOK_SECRET"
	envRedisAddr     = "REDIS_ADDR"
	envRedisPassword = "REDIS_PASSWORD"
	envDatabaseURL   = "DATABASE_URL"
	envLeadKey       = "SWITCHBOARD_ENCRYPTION_KEY"
	envLeadOldKeys   = "SWITCHBOARD_ENCRYPTION_FALLBACK_KEYS"
)

// fail prints what went wrong and exits with status 1.
func fail(what string, err error) {
	fmt.Printf("%s: %v\n", what, err)
	os.Exit(1)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	levelStr, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v, using info\n", err)
	}
	return logging.NewWith(os.Stderr, level, logging.Format(format))
}

// retellClient exits when no API key is configured.
func retellClient() *retell.Client {
	key := os.Getenv(envAPIKey)
	if key == "" {
		fmt.Println("Error: RETELL_API_KEY environment variable not set")
		os.Exit(1)
	}
	var opts []retell.Option
	if base := os.Getenv(envBaseURL); base != "" {
		opts = append(opts, retell.WithBaseURL(base))
	}
	return retell.NewClient(key, opts...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Path to the business config (YAML or JSON)")
	cmd.Flags().StringP("template", "t", "receptionist", "Flow template")
	cmd.Flags().StringToString("set", nil, "Override config fields, e.g. --set company_name=Acme")
}

func addFlowFlags(cmd *cobra.Command) {
	addConfigFlags(cmd)
	cmd.Flags().StringP("file", "f", "", "Read a conversation flow document instead of building a template")
}

// businessConfig reads --config and applies --set. Without --config the
// configuration starts empty, so template defaults and --set fill it in.
func businessConfig(cmd *cobra.Command) (config.BusinessConfig, error) {
	var cfg config.BusinessConfig
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	pairs, _ := cmd.Flags().GetStringToString("set")
	return config.Override(cfg, pairs)
}

// loadFlow returns the flow named by --file, or builds --template.
// The build is nil for a flow read from a file.
func loadFlow(ctx context.Context, cmd *cobra.Command) (*domain.Flow, *switchboard.Build, error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read flow %s: %w", file, err)
		}
		flow, err := retell.Decode(data)
		if err != nil {
			return nil, nil, fmt.Errorf("flow %s: %w", file, err)
		}
		return flow, nil, nil
	}

	template, _ := cmd.Flags().GetString("template")
	cfg, err := businessConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	b, err := switchboard.BuildFlow(ctx, template, cfg)
	if err != nil {
		return nil, nil, err
	}
	return b.Flow, b, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// confirm asks a yes/no question. Only an explicit "yes" or "y" agrees.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s (yes/no): ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y":
		return true
	default:
		return false
	}
}

var errNeedsConfirmation = errors.New("stdin is not a terminal; pass --yes to confirm")

// mayDelete reports whether a deletion can go ahead.
func mayDelete(cmd *cobra.Command, what string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	if !isTerminal(os.Stdin) {
		return false, errNeedsConfirmation
	}
	return confirm(os.Stdin, os.Stdout, fmt.Sprintf("Are you sure you want to delete %s?", what)), nil
}
