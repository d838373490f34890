package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/switchboard/internal/presentation/tui"
	"github.com/aretw0/switchboard/pkg/leads"
)

var importLeadsCmd = &cobra.Command{
	Use:   "import-leads FILE",
	Short: "Import leads from a CSV export",
	Long: `Reads a lead list export (Business Name, Phone Number, Rating, Review Count,
Address, City, State, ZIP, Website, Lead Quality, Owner Name, Owner Email,
Contact Email, Notes) and inserts the leads in batches of 100.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, _ := cmd.Flags().GetString("store")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		industry, _ := cmd.Flags().GetString("industry")
		logger := newLogger(cmd)

		f, err := os.Open(args[0])
		if err != nil {
			fail("Error reading leads", err)
		}
		defer f.Close()

		backend, err := openLeads(cmd.Context(), kind)
		if err != nil {
			fail("Error opening lead store", err)
		}
		defer func() { _ = backend.close() }()

		res, err := leads.Import(cmd.Context(), f, backend.store, leads.ImportOptions{
			Industry: industry,
			DryRun:   dryRun,
		})
		if res != nil {
			for _, s := range res.Skipped {
				logger.Warn("row skipped", "line", s.Line, "reason", s.Reason)
			}
		}
		if err != nil {
			if res != nil {
				fmt.Printf("Inserted %d lead(s) before the failure.\n", res.Inserted)
			}
			fail("Error importing leads", err)
		}

		fmt.Printf("Parsed %d lead(s), skipped %d row(s).\n", len(res.Leads), len(res.Skipped))
		if dryRun {
			fmt.Println(tui.Status("Dry run: nothing was written.", true))
			return
		}
		fmt.Println(tui.Status(fmt.Sprintf("Inserted %d lead(s) in %d batch(es) into %s.", res.Inserted, res.Batches, kind), true))
	},
}

func init() {
	rootCmd.AddCommand(importLeadsCmd)
	importLeadsCmd.Flags().String("store", "memory", "Lead store: memory, redis or postgres")
	importLeadsCmd.Flags().Bool("dry-run", false, "Parse and map rows without writing")
	importLeadsCmd.Flags().String("industry", "", "Industry to set on every lead")
}
