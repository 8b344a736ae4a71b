// Package jsonschema supplies two complementary pieces of the tool
// substrate's schema story: generating a tool's JSON Schema document from a
// Go input struct (github.com/invopop/jsonschema), and validating inbound
// tool-call input against a schema at runtime
// (github.com/santhosh-tekuri/jsonschema/v6), wired in as a
// tool.SchemaValidator for tool.ValidateInput.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	gen "github.com/invopop/jsonschema"
	validate "github.com/santhosh-tekuri/jsonschema/v6"
)

// GenerateSchema reflects a Go value's type into a JSON Schema document
// suitable for tool.Tool.InputSchema. Pass a zero value or nil pointer of
// the input struct type; only its shape is inspected.
func GenerateSchema(v any) (json.RawMessage, error) {
	reflector := &gen.Reflector{
		DoNotReference:            true,
		ExpandedStruct:             true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(v)
	return json.Marshal(schema)
}

// Validator implements tool.SchemaValidator by compiling each distinct
// schema document once (keyed by its bytes) and caching the compiled
// validator, since compilation is the expensive part and a registry's
// schemas are static after assembly.
type Validator struct {
	mu     sync.Mutex
	cached map[string]*validate.Schema
}

// NewValidator constructs an empty, ready-to-use Validator.
func NewValidator() *Validator {
	return &Validator{cached: make(map[string]*validate.Schema)}
}

// Validate compiles (or reuses a cached compilation of) schema and checks
// instance against it, returning a descriptive error on the first
// validation failure.
func (v *Validator) Validate(schema []byte, instance []byte) error {
	compiled, err := v.compile(schema)
	if err != nil {
		return fmt.Errorf("jsonschema: compile: %w", err)
	}
	var inst any
	if err := json.Unmarshal(instance, &inst); err != nil {
		return fmt.Errorf("jsonschema: input is not valid JSON: %w", err)
	}
	if err := compiled.Validate(inst); err != nil {
		return err
	}
	return nil
}

func (v *Validator) compile(schema []byte) (*validate.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := string(schema)
	if s, ok := v.cached[key]; ok {
		return s, nil
	}
	c := validate.NewCompiler()
	const resourceName = "schema.json"
	var doc any
	if err := json.NewDecoder(bytes.NewReader(schema)).Decode(&doc); err != nil {
		return nil, err
	}
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return nil, err
	}
	v.cached[key] = compiled
	return compiled, nil
}
