package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osm-audit/internal/audit"
	"github.com/sells-group/osm-audit/internal/normalize"
	"github.com/sells-group/osm-audit/internal/osmxml"
)

var auditCmd = &cobra.Command{
	Use:   "audit [source]",
	Short: "Report street, postcode, state and tag-key problems without writing records",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Check("audit"); err != nil {
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
		format, _ := cmd.Flags().GetString("format")

		a := audit.New(normalize.New(normalize.DefaultRules()))
		rep, err := a.Run(osmxml.File(ctx, src, kinds...))
		if err != nil {
			return eris.Wrap(err, "audit")
		}
		return audit.Write(os.Stdout, rep, format)
	},
}

func init() {
	auditCmd.Flags().String("source", "", "OSM XML file (default from config)")
	auditCmd.Flags().String("kinds", "", "comma-separated element kinds (default node,way)")
	auditCmd.Flags().String("format", audit.FormatYAML, "output format: yaml or json")
	rootCmd.AddCommand(auditCmd)
}
