package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crawlscope/crawlscope/internal/app"
	"github.com/crawlscope/crawlscope/internal/database"
)

func newExportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored analyses as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExportCommand(cmd, outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func runExportCommand(cmd *cobra.Command, outPath string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	// Export only reads the store; no browser is needed.
	cfg.Probe.Enabled = false

	a, err := app.NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer a.Close()

	rows, err := a.Store().List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list analyses: %w", err)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return database.WriteCSV(out, rows)
}
