package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/paulmach/osm"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osm-audit/internal/osmxml"
	"github.com/sells-group/osm-audit/internal/sample"
)

var sampleCmd = &cobra.Command{
	Use:   "sample [source]",
	Short: "Write every k-th top-level element to a smaller OSM document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Check("sample"); err != nil {
			return err
		}
		src, err := sourceFlag(cmd, args)
		if err != nil {
			return err
		}
		k, _ := cmd.Flags().GetInt("k")
		outPath, _ := cmd.Flags().GetString("out")

		out, closeOut, err := createOutput(outPath)
		if err != nil {
			return err
		}

		seq := osmxml.File(ctx, src, osm.TypeNode, osm.TypeWay, osm.TypeRelation)
		n, err := sample.Write(ctx, out, seq, k)
		if cerr := closeOut(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			return eris.Wrap(err, "sample")
		}

		fmt.Fprintf(os.Stderr, "Sampled %d elements (k=%d)\n", n, k)
		return nil
	},
}

func init() {
	sampleCmd.Flags().String("source", "", "OSM XML file (default from config)")
	sampleCmd.Flags().Int("k", 10, "keep every k-th element")
	sampleCmd.Flags().String("out", "", "output file (default stdout)")
	rootCmd.AddCommand(sampleCmd)
}
