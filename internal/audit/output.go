package audit

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Write encodes r to w in the given format.
func Write(w io.Writer, r Report, format string) error {
	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "audit: encode yaml")
		}
		return eris.Wrap(enc.Close(), "audit: close yaml encoder")
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "audit: encode json")
		}
		return nil
	}
	return eris.Errorf("audit: unknown format %q", format)
}
