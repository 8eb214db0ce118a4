// Package schemas validates task payloads against JSON Schemas.
package schemas

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	payloadschemas "github.com/jonathan/resume-matcher/schemas"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:")
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, " %d. %s: %s;", i+1, err.Field, err.Message)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// Registry holds compiled payload schemas keyed by task type.
type Registry struct {
	schemas map[string]*gojsonschema.Schema
}

// NewRegistry compiles the embedded payload schemas.
func NewRegistry() (*Registry, error) {
	r := &Registry{schemas: make(map[string]*gojsonschema.Schema, len(payloadschemas.Files))}
	for taskType, file := range payloadschemas.Files {
		data, err := payloadschemas.FS.ReadFile(file)
		if err != nil {
			return nil, &SchemaLoadError{Path: file, Message: "schema file not found", Cause: err}
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, &SchemaLoadError{Path: file, Message: "invalid schema", Cause: err}
		}
		r.schemas[taskType] = schema
	}
	return r, nil
}

// Types returns the task types with a schema, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.schemas))
	for t := range r.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Validate checks payload against the schema for taskType.
func (r *Registry) Validate(taskType string, payload []byte) error {
	schema, ok := r.schemas[taskType]
	if !ok {
		return fmt.Errorf("no schema for task type %s", taskType)
	}
	if !json.Valid(payload) {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "payload is not valid JSON"}}}
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("failed to validate %s payload: %w", taskType, err)
	}
	return resultError(result)
}

// Validator returns a payload validator bound to taskType.
func (r *Registry) Validator(taskType string) func(json.RawMessage) error {
	return func(payload json.RawMessage) error {
		return r.Validate(taskType, payload)
	}
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return resultError(result)
}

func resultError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
