// Package schemas validates structured LLM output against JSON Schemas.
package schemas

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// SelectionSchemaFile is the structured-output schema sent with article selection requests.
const SelectionSchemaFile = "selection.schema.json"

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
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Selection validates article selection responses. The envelope and each
// entry are checked separately so one bad entry does not sink the rest.
type Selection struct {
	raw      map[string]any
	envelope *gojsonschema.Schema
	item     *gojsonschema.Schema
}

var (
	selectionOnce sync.Once
	selection     *Selection
	selectionErr  error
)

// LoadSelection returns the compiled selection schemas. Compilation happens once.
func LoadSelection() (*Selection, error) {
	selectionOnce.Do(func() {
		selection, selectionErr = loadSelection()
	})
	return selection, selectionErr
}

func loadSelection() (*Selection, error) {
	data, err := schemaFiles.ReadFile(SelectionSchemaFile)
	if err != nil {
		return nil, &SchemaLoadError{Path: SelectionSchemaFile, Message: "embedded file missing", Cause: err}
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaLoadError{Path: SelectionSchemaFile, Message: "invalid JSON", Cause: err}
	}

	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data)); err != nil {
		return nil, &SchemaLoadError{Path: SelectionSchemaFile, Message: "schema did not compile", Cause: err}
	}

	envelopeRaw, itemRaw, err := splitSchema(data)
	if err != nil {
		return nil, err
	}
	envelope, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(envelopeRaw))
	if err != nil {
		return nil, &SchemaLoadError{Path: SelectionSchemaFile, Message: "envelope schema did not compile", Cause: err}
	}
	item, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(itemRaw))
	if err != nil {
		return nil, &SchemaLoadError{Path: SelectionSchemaFile, Message: "item schema did not compile", Cause: err}
	}

	return &Selection{raw: raw, envelope: envelope, item: item}, nil
}

// splitSchema separates properties.selected_articles.items from the rest.
// The returned envelope accepts any array entries.
func splitSchema(data []byte) (envelope, item map[string]any, err error) {
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, nil, &SchemaLoadError{Path: SelectionSchemaFile, Message: "invalid JSON", Cause: err}
	}
	props, _ := envelope["properties"].(map[string]any)
	list, _ := props["selected_articles"].(map[string]any)
	item, ok := list["items"].(map[string]any)
	if !ok {
		return nil, nil, &SchemaLoadError{Path: SelectionSchemaFile, Message: "properties.selected_articles.items is not an object"}
	}
	delete(list, "items")
	return envelope, item, nil
}

// Raw returns a fresh copy of the schema as a generic map, suitable for
// sending as response_format.schema.
func (s *Selection) Raw() map[string]any {
	data, _ := json.Marshal(s.raw)
	var cp map[string]any
	_ = json.Unmarshal(data, &cp)
	return cp
}

// ValidateEnvelope checks the overall response shape. Individual entries are
// not inspected beyond being present in an array.
func (s *Selection) ValidateEnvelope(doc string) error {
	return validate(s.envelope, gojsonschema.NewStringLoader(doc))
}

// ValidateItem checks one entry of selected_articles.
func (s *Selection) ValidateItem(item json.RawMessage) error {
	return validate(s.item, gojsonschema.NewBytesLoader(item))
}

func validate(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) error {
	result, err := schema.Validate(doc)
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	return toValidationError(result)
}

func toValidationError(result *gojsonschema.Result) error {
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
