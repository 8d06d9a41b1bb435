package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osm-audit/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [name...]",
	Short: "Run aggregate reports over the loaded tables",
	Long: fmt.Sprintf(`Runs the named reports, or all of them, against the configured store.

Reports: %s`, strings.Join(report.Names(), ", ")),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Check("report"); err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		if format == report.FormatXLSX && (outPath == "" || outPath == "-") {
			return eris.New("report: --out is required for xlsx output")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		results, err := report.Run(ctx, st.DB(), args...)
		if err != nil {
			return err
		}

		out, closeOut, err := createOutput(outPath)
		if err != nil {
			return err
		}
		if err := report.Write(out, results, format); err != nil {
			closeOut() //nolint:errcheck
			return err
		}
		if err := closeOut(); err != nil {
			return eris.Wrap(err, "report: close output")
		}
		if out != os.Stdout {
			fmt.Fprintf(os.Stderr, "Wrote %d reports to %s\n", len(results), outPath)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().String("format", report.FormatText, "output format: text, json or xlsx")
	reportCmd.Flags().String("out", "", "output file (default stdout; required for xlsx)")
	rootCmd.AddCommand(reportCmd)
}
