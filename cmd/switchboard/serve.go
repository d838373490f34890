package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	webhook "github.com/aretw0/switchboard/internal/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Receives call events from the platform and turns finished calls into leads.
Also serves the calendar and lead tools the flows call, plus /leads, /healthz and /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		kind, _ := cmd.Flags().GetString("store")
		logger := newLogger(cmd)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		leads, err := openLeads(ctx, kind)
		if err != nil {
			fail("Error opening lead store", err)
		}
		defer func() {
			if err := leads.close(); err != nil {
				logger.Warn("failed to close lead store", "err", err)
			}
		}()

		secret := os.Getenv(envWebhookSecret)
		if secret == "" {
			logger.Warn("webhook signatures are not checked", "env", envWebhookSecret)
		}

		server, err := webhook.NewServer(ctx, webhook.Config{
			Store:  leads.store,
			Locker: leads.locker,
			Secret: secret,
			Logger: logger,
		})
		if err != nil {
			fail("Error initializing server", err)
		}

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("webhook server listening", "address", srv.Addr, "store", kind)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				fail("Server error", err)
			}
		case <-ctx.Done():
			logger.Info("shutting down webhook server")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			logger.Info("webhook server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", envOr("PORT", "8080"), "Port to listen on")
	serveCmd.Flags().String("store", "memory", "Lead store: memory, redis or postgres")
}
