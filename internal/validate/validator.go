// Package validate checks shaped records against embedded JSON schemas.
package validate

import (
	"embed"
	"fmt"
	"strconv"

	"github.com/paulmach/osm"
	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sells-group/osm-audit/internal/model"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ValidationError identifies the first field of a shaped record that violates
// its schema.
type ValidationError struct {
	Kind        osm.Type
	ID          string
	Field       string
	Constraint  string
	Description string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate: %s %s: field %q violates %s: %s", e.Kind, e.ID, e.Field, e.Constraint, e.Description)
}

// Validator holds the compiled schema for each shaped kind.
type Validator struct {
	schemas map[osm.Type]*gojsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	v := &Validator{schemas: make(map[osm.Type]*gojsonschema.Schema, 2)}
	for _, kind := range []osm.Type{osm.TypeNode, osm.TypeWay} {
		raw, err := schemaFS.ReadFile("schemas/" + string(kind) + ".json")
		if err != nil {
			return nil, eris.Wrapf(err, "validate: read %s schema", kind)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, eris.Wrapf(err, "validate: compile %s schema", kind)
		}
		v.schemas[kind] = schema
	}
	return v, nil
}

// Validate checks s against the schema for its kind.
func (v *Validator) Validate(s *model.Shaped) error {
	return v.check(s.Kind, strconv.FormatInt(s.ElementID(), 10), gojsonschema.NewGoLoader(s))
}

// ValidateJSON checks a JSON document against the schema for kind.
func (v *Validator) ValidateJSON(kind osm.Type, id string, doc []byte) error {
	return v.check(kind, id, gojsonschema.NewBytesLoader(doc))
}

func (v *Validator) check(kind osm.Type, id string, doc gojsonschema.JSONLoader) error {
	schema, ok := v.schemas[kind]
	if !ok {
		return eris.Errorf("validate: no schema for kind %q", kind)
	}

	result, err := schema.Validate(doc)
	if err != nil {
		return eris.Wrapf(err, "validate: %s %s", kind, id)
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	return &ValidationError{
		Kind:        kind,
		ID:          id,
		Field:       fieldPath(first),
		Constraint:  first.Type(),
		Description: first.Description(),
	}
}

// fieldPath returns the dotted path of the offending field. For missing
// properties the property name is appended to its parent's path.
func fieldPath(e gojsonschema.ResultError) string {
	field := e.Field()
	if e.Type() != "required" {
		return field
	}
	prop, ok := e.Details()["property"].(string)
	if !ok {
		return field
	}
	if field == "" || field == gojsonschema.STRING_CONTEXT_ROOT {
		return prop
	}
	return field + "." + prop
}
