package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-audit/internal/normalize"
	"github.com/sells-group/osm-audit/internal/osmxml"
	"github.com/sells-group/osm-audit/internal/pipeline"
	"github.com/sells-group/osm-audit/internal/sink"
	"github.com/sells-group/osm-audit/internal/validate"
)

var processCmd = &cobra.Command{
	Use:   "process [source]",
	Short: "Normalize an OSM extract into five CSV record streams",
	Long: `Streams nodes and ways from an OSM XML document (optionally .gz or .bz2),
normalizes street suffixes, postcodes and state codes, and writes nodes.csv,
nodes_tags.csv, ways.csv, ways_nodes.csv and ways_tags.csv to the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Check("process"); err != nil {
			return err
		}
		src, err := sourceFlag(cmd, args)
		if err != nil {
			return err
		}
		kinds, err := osmxml.ParseKinds(kindsFlag(cmd))
		if err != nil {
			return err
		}

		outDir, _ := cmd.Flags().GetString("out")
		if outDir == "" {
			outDir = cfg.Output.Dir
		}
		doValidate := cfg.Validate
		if cmd.Flags().Changed("validate") {
			doValidate, _ = cmd.Flags().GetBool("validate")
		}
		textfile, _ := cmd.Flags().GetString("metrics-textfile")
		if textfile == "" {
			textfile = cfg.Metrics.Textfile
		}

		log := zap.L().With(zap.String("command", "process"))

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "process: create %s", outDir)
		}
		csvSink, err := sink.NewCSV(outDir)
		if err != nil {
			return err
		}

		opts := []pipeline.Option{
			pipeline.WithProgressInterval(time.Duration(cfg.Progress.IntervalSecs) * time.Second),
		}
		if doValidate {
			v, err := validate.New()
			if err != nil {
				csvSink.Close() //nolint:errcheck
				return err
			}
			opts = append(opts, pipeline.WithValidator(v))
		}

		p := pipeline.New(normalize.New(normalize.DefaultRules()), csvSink, opts...)

		log.Info("processing",
			zap.String("source", src),
			zap.String("out", outDir),
			zap.Bool("validate", doValidate),
		)
		stats, runErr := p.Run(ctx, osmxml.File(ctx, src, kinds...))
		if err := csvSink.Close(); err != nil && runErr == nil {
			runErr = err
		}

		if textfile != "" {
			if err := p.Metrics().WriteTextfile(textfile); err != nil {
				log.Warn("metrics textfile not written", zap.Error(err))
			}
		}
		if runErr != nil {
			return eris.Wrap(runErr, "process")
		}

		printStats(stats)
		return nil
	},
}

func printStats(stats pipeline.Stats) {
	fmt.Printf("Processed %d elements in %s (%d skipped)\n", stats.Elements, stats.Elapsed.Round(time.Millisecond), stats.Skipped)
	tables := make([]string, 0, len(stats.Records))
	for t := range stats.Records {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Printf("  %-12s %d\n", t, stats.Records[t])
	}
}

func init() {
	processCmd.Flags().String("source", "", "OSM XML file (default from config)")
	processCmd.Flags().String("out", "", "output directory for the CSV streams (default from config)")
	processCmd.Flags().String("kinds", "", "comma-separated element kinds (default node,way)")
	processCmd.Flags().Bool("validate", false, "validate each shaped element against the record schema")
	processCmd.Flags().String("metrics-textfile", "", "write run metrics in node-exporter textfile format")
	rootCmd.AddCommand(processCmd)
}
