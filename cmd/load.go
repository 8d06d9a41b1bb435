package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-audit/internal/store"
)

var loadCmd = &cobra.Command{
	Use:   "load [dir]",
	Short: "Load the CSV record streams into SQLite or Postgres",
	Long: `Creates the nodes, nodes_tags, ways, ways_nodes and ways_tags tables (if missing)
and bulk-loads the CSV streams from dir. Parent tables load before their children.
Every table load is recorded in load_runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Check("load"); err != nil {
			return err
		}
		dir := cfg.Output.Dir
		if len(args) > 0 {
			dir = args[0]
		}
		reset, _ := cmd.Flags().GetBool("reset")
		tables, _ := cmd.Flags().GetString("tables")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		if batchSize == 0 {
			batchSize = cfg.Store.BatchSize
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if reset {
			zap.L().Warn("dropping loaded tables", zap.String("command", "load"))
			if err := st.Reset(ctx); err != nil {
				return err
			}
		}
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := store.LoadDir(ctx, st, dir, store.LoadOptions{
			BatchSize: batchSize,
			Tables:    splitAndTrim(tables),
		})
		if err != nil {
			return eris.Wrap(err, "load")
		}

		formatLoads(os.Stdout, runs)
		return nil
	},
}

var loadHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded table loads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Check("load"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListLoads(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "load history")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No loads found.")
			return nil
		}

		formatLoads(os.Stdout, runs)
		return nil
	},
}

func formatLoads(w io.Writer, runs []store.LoadRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tTABLE\tROWS\tSTARTED\tDURATION\tSOURCE")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			shortID(r.ID),
			r.Table,
			r.Rows,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Source,
		)
	}
	_ = tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	loadCmd.Flags().Bool("reset", false, "drop the loaded tables before loading")
	loadCmd.Flags().String("tables", "", "comma-separated tables to load (default all five)")
	loadCmd.Flags().Int("batch-size", 0, "rows per insert batch (default from config)")
	loadHistoryCmd.Flags().Int("limit", 20, "maximum loads to list")
	loadCmd.AddCommand(loadHistoryCmd)
	rootCmd.AddCommand(loadCmd)
}
