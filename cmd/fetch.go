package main

import (
	"fmt"
	"net/url"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-audit/internal/fetcher"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download an OSM extract over HTTP(S) or FTP",
	Long: `Downloads an extract to --out. HTTP(S) downloads are mirrored: the ETag is kept
beside the file and an unchanged remote is not downloaded again. Zipped extracts
are unpacked next to the archive.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Check("fetch"); err != nil {
			return err
		}
		rawURL := args[0]
		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			name, err := fileNameFromURL(rawURL)
			if err != nil {
				return err
			}
			outPath = filepath.Join(cfg.Output.Dir, name)
		}

		log := zap.L().With(zap.String("command", "fetch"), zap.String("url", rawURL))
		timeout := time.Duration(cfg.Fetch.TimeoutSecs) * time.Second
		opts := fetcher.Options{
			HTTP: fetcher.HTTPOptions{
				UserAgent:    cfg.Fetch.UserAgent,
				Timeout:      timeout,
				MaxRetries:   cfg.Fetch.MaxRetries,
				RateLimiters: fetcher.DefaultRateLimiters(),
			},
			FTP: fetcher.FTPOptions{
				Timeout:    timeout,
				MaxRetries: cfg.Fetch.MaxRetries,
			},
		}

		f, err := fetcher.ForURL(rawURL, opts)
		if err != nil {
			return err
		}

		if hf, ok := f.(*fetcher.HTTPFetcher); ok {
			res, err := hf.Mirror(ctx, rawURL, outPath)
			if err != nil {
				return eris.Wrap(err, "fetch")
			}
			if !res.Changed {
				fmt.Printf("%s is up to date\n", outPath)
				return nil
			}
			log.Info("extract downloaded", zap.String("path", outPath), zap.Int64("bytes", res.Bytes))
		} else {
			n, err := f.DownloadToFile(ctx, rawURL, outPath)
			if err != nil {
				return eris.Wrap(err, "fetch")
			}
			log.Info("extract downloaded", zap.String("path", outPath), zap.Int64("bytes", n))
		}

		final := outPath
		if strings.EqualFold(filepath.Ext(outPath), ".zip") {
			final, err = fetcher.ExtractOSM(outPath, filepath.Dir(outPath))
			if err != nil {
				return eris.Wrap(err, "fetch")
			}
		}

		fmt.Println(final)
		return nil
	},
}

// fileNameFromURL returns the last path segment of rawURL.
func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "fetch: parse url")
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", eris.Errorf("fetch: cannot derive a file name from %q; pass --out", rawURL)
	}
	return name, nil
}

func init() {
	fetchCmd.Flags().String("out", "", "destination file (default: output dir + URL file name)")
	rootCmd.AddCommand(fetchCmd)
}
