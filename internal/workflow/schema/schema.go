// Package schema validates workflow payloads against the JSON Schema of
// their workflow type.
package schema

import (
	"bytes"
	"embed"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"regulus/internal/workflow/models"
	dErrors "regulus/pkg/domain-errors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const baseURL = "https://regulus.local/schemas/workflow/"

// Validator holds one compiled schema per workflow type.
type Validator struct {
	schemas map[models.Type]*jsonschema.Schema
}

// New compiles the embedded schema of every workflow type.
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	v := &Validator{schemas: make(map[models.Type]*jsonschema.Schema, len(models.Sequences))}
	for t := range models.Sequences {
		name := string(t) + ".json"
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("load %s schema: %w", t, err)
		}
		if err := c.AddResource(baseURL+name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add %s schema: %w", t, err)
		}
		compiled, err := c.Compile(baseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", t, err)
		}
		v.schemas[t] = compiled
	}
	return v, nil
}

// Validate checks payload against the schema of t. The payload must hold
// JSON-decoded values (see models.Metadata.Clone).
func (v *Validator) Validate(t models.Type, payload models.Metadata) error {
	s, ok := v.schemas[t]
	if !ok {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown workflow type %q", t))
	}
	if err := s.Validate(map[string]any(payload)); err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid "+string(t)+" payload: "+describe(err))
	}
	return nil
}

// describe flattens the innermost causes into one line without echoing
// payload values.
func describe(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return "schema validation failed"
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := leaf.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + leaf.Message
}
