// Package fetcher downloads OSM extracts over HTTP(S) and FTP, unpacks zipped
// extracts, and streams delimited record files back for loading.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Options configures the fetchers returned by ForURL.
type Options struct {
	HTTP HTTPOptions
	FTP  FTPOptions
}

// ForURL returns the fetcher for rawURL's scheme.
func ForURL(rawURL string, opts Options) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: parse url")
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(opts.HTTP), nil
	case "ftp":
		return NewFTPFetcher(opts.FTP), nil
	}
	return nil, eris.Errorf("fetch: unsupported scheme %q", u.Scheme)
}

// writeFile copies r to path through a ".part" sibling that is renamed into
// place only after a complete copy.
func writeFile(path string, r io.Reader) (int64, error) {
	part := path + ".part"
	f, err := os.Create(part)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()       //nolint:errcheck
		os.Remove(part) //nolint:errcheck
		return n, eris.Wrap(err, "write file")
	}
	if err := f.Close(); err != nil {
		os.Remove(part) //nolint:errcheck
		return n, eris.Wrap(err, "close file")
	}
	if err := os.Rename(part, path); err != nil {
		return n, eris.Wrap(err, "rename file")
	}
	return n, nil
}
