package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-audit/internal/geo"
	"github.com/sells-group/osm-audit/internal/store"
)

var waysCmd = &cobra.Command{
	Use:   "ways",
	Short: "Rebuild way geometries from the loaded tables",
	Long: `Joins ways_nodes to nodes in position order and rebuilds each way as a line,
longest first. Prints WKT by default, or writes a POLYLINE shapefile with
--shapefile. With --postgis (postgres store only) the lines are also loaded into
way_geoms.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Check("ways"); err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		shapefile, _ := cmd.Flags().GetString("shapefile")
		postgis, _ := cmd.Flags().GetBool("postgis")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ways, err := geo.Ways(ctx, st.DB(), geo.Options{Limit: limit})
		if err != nil {
			return err
		}

		if postgis {
			pg, ok := st.(*store.PostgresStore)
			if !ok {
				return eris.New("ways: --postgis requires the postgres store driver")
			}
			n, err := geo.LoadPostGIS(ctx, pg.Pool(), pg.Schema(), ways)
			if err != nil {
				return err
			}
			zap.L().Info("loaded way geometries", zap.String("command", "ways"), zap.Int("ways", n))
		}

		if shapefile != "" {
			if err := geo.WriteShapefile(shapefile, ways); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %d ways to %s\n", len(ways), shapefile)
			return nil
		}

		for _, w := range ways {
			text, err := w.WKT()
			if err != nil {
				return err
			}
			fmt.Printf("%d\t%.6f\t%s\n", w.ID, w.Length, text)
		}
		return nil
	},
}

func init() {
	waysCmd.Flags().Int("limit", 0, "keep only the N longest ways (0 = all)")
	waysCmd.Flags().String("shapefile", "", "write a POLYLINE shapefile instead of WKT")
	waysCmd.Flags().Bool("postgis", false, "also load the lines into the way_geoms PostGIS table")
	rootCmd.AddCommand(waysCmd)
}
