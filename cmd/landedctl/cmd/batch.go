package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Simplici0/landedcost/internal/duty"
	"github.com/Simplici0/landedcost/internal/report"
)

var (
	batchOut    string
	templateOut string
)

var batchCmd = &cobra.Command{
	Use:   "batch <shipment.csv>",
	Short: "Calculate landed costs for every row of a CSV upload",
	Long: `Batch reads a shipment CSV (see "landedctl template"), resolves each row
against the reference database and writes one result line per row. A
failing row is reported in the error column and never stops the others.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write an example shipment CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withOutput(cmd, templateOut, report.WriteTemplate)
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "write results to this file instead of stdout")
	templateCmd.Flags().StringVarP(&templateOut, "out", "o", "", "write the template to this file instead of stdout")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	calc, store, err := newEngine(ctx, database)
	if err != nil {
		return err
	}

	rows, err := report.ReadBatchCSV(f, calc.Config())
	if err != nil {
		return err
	}
	entries, err := duty.ResolveEntries(ctx, store, rows)
	if err != nil {
		return err
	}
	res, err := duty.NewBatchProcessor(calc, cfg.BatchWorkers, logger).Process(ctx, entries)
	if err != nil {
		return err
	}

	if err := withOutput(cmd, batchOut, func(w io.Writer) error { return report.WriteResults(w, res) }); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), report.FormatSummary(res))
	return nil
}

// withOutput runs write against path, or the command's stdout when path is
// empty.
func withOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
