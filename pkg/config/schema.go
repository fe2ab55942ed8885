package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed settings.schema.json
var settingsSchemaJSON []byte

// settingsSchemaURL matches the $id inside the schema.
const settingsSchemaURL = "https://chessinsight.dev/schemas/settings.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func settingsSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(settingsSchemaURL, bytes.NewReader(settingsSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add settings schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(settingsSchemaURL)
	})
	return schema, schemaErr
}

// SchemaJSON returns the JSON Schema settings files are validated against.
func SchemaJSON() []byte {
	return bytes.Clone(settingsSchemaJSON)
}

// FieldError is one schema violation in a settings file.
type FieldError struct {
	// Field is the dotted path of the offending value, "" for the root.
	Field   string
	Message string
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// validateDocument checks a decoded YAML document against the settings
// schema. The document goes through JSON first so numbers and maps have the
// types the validator expects.
func validateDocument(doc any) ([]FieldError, error) {
	s, err := settingsSchema()
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("settings are not representable as JSON: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}

	err = s.Validate(v)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, err
	}
	var fields []FieldError
	collectFieldErrors(verr, &fields)
	return fields, nil
}

// collectFieldErrors flattens the leaves of a validation error tree.
func collectFieldErrors(err *jsonschema.ValidationError, out *[]FieldError) {
	if len(err.Causes) == 0 {
		*out = append(*out, FieldError{
			Field:   pointerToField(err.InstanceLocation),
			Message: err.Message,
		})
		return
	}
	for _, cause := range err.Causes {
		collectFieldErrors(cause, out)
	}
}

func pointerToField(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	return strings.ReplaceAll(ptr, "/", ".")
}
