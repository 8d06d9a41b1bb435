package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// osmExtensions are the archive entry suffixes accepted as an OSM extract.
var osmExtensions = []string{".osm", ".osm.gz", ".osm.bz2", ".xml"}

// IsOSMFile reports whether name carries an OSM XML extension.
func IsOSMFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range osmExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ExtractOSM extracts the single OSM XML entry from a zipped extract and
// returns its path. Other entries, such as licence files, are ignored.
func ExtractOSM(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var matches []*zip.File
	for _, f := range r.File {
		if !f.FileInfo().IsDir() && IsOSMFile(f.Name) {
			matches = append(matches, f)
		}
	}

	if len(matches) != 1 {
		return "", eris.Errorf("zip: expected exactly 1 OSM file in %s, got %d", zipPath, len(matches))
	}

	return extractZIPEntry(matches[0], destDir)
}

// extractZIPEntry extracts a single zip.File to the destination directory.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}

	return destPath, nil
}
