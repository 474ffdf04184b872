package schema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/flowmesh/schemagate/internal/jsoncodec"
)

// Validation messages for events that never reach structural validation
const (
	MsgMissingSchemaID = "missing required property 'schema_id'"
)

// Validator checks property bags against Draft-07 schemas resolved through
// a Getter.
type Validator struct {
	schemas  Getter
	compiled sync.Map // schemaID -> *compiledEntry
}

// compiledEntry remembers which Schema it was built from, so a document the
// store refetched after Purge is compiled again.
type compiledEntry struct {
	from   *Schema
	schema *jsonschema.Schema
}

// NewValidator creates a new schema validator
func NewValidator(schemas Getter) *Validator {
	return &Validator{schemas: schemas}
}

// Validate validates properties against the schema named by schemaID.
// Only an unreachable schema source is returned as an error; every other
// problem is reported as an invalid Result.
func (v *Validator) Validate(ctx context.Context, schemaID string, properties map[string]any) (Result, error) {
	if schemaID == "" {
		return invalid(MsgMissingSchemaID), nil
	}

	s, err := v.schemas.GetSchema(ctx, schemaID)
	if err != nil {
		var notFound NotFoundError
		var bad InvalidSchemaError
		switch {
		case errors.As(err, &notFound):
			return invalid(notFound.Error()), nil
		case errors.As(err, &bad):
			return invalid(bad.Error()), nil
		default:
			return Result{}, err
		}
	}

	compiled, err := v.compile(s)
	if err != nil {
		return invalid(err.Error()), nil
	}

	errs := violations(compiled.Validate(stripInstance(properties)))
	return Result{Valid: len(errs) == 0, Errors: errs}, nil
}

// compile compiles the schema_id-free copy of s and caches it per schema ID
func (v *Validator) compile(s *Schema) (*jsonschema.Schema, error) {
	if cached, ok := v.compiled.Load(s.ID); ok {
		if entry := cached.(*compiledEntry); entry.from == s {
			return entry.schema, nil
		}
	}

	definition, err := jsoncodec.Marshal(stripSchema(s.Document))
	if err != nil {
		return nil, InvalidSchemaError{SchemaID: s.ID, Reason: err.Error()}
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource("schema.json", bytes.NewReader(definition)); err != nil {
		return nil, InvalidSchemaError{SchemaID: s.ID, Reason: fmt.Sprintf("failed to add schema resource: %v", err)}
	}

	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, InvalidSchemaError{SchemaID: s.ID, Reason: err.Error()}
	}

	v.compiled.Store(s.ID, &compiledEntry{from: s, schema: compiled})
	return compiled, nil
}

// ClearCache clears the compiled schema cache
func (v *Validator) ClearCache() {
	v.compiled.Range(func(key, _ any) bool {
		v.compiled.Delete(key)
		return true
	})
}

func invalid(msg string) Result {
	return Result{Valid: false, Errors: []string{msg}}
}

// violations flattens a validation error into sorted leaf messages of the
// form "<instance pointer>: <message>". Root-level messages carry no prefix.
func violations(err error) []string {
	if err == nil {
		return []string{}
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}

	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, render(e))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)

	sort.Strings(out)
	return out
}

func render(e *jsonschema.ValidationError) string {
	if e.InstanceLocation == "" {
		return e.Message
	}
	return e.InstanceLocation + ": " + e.Message
}

// stripInstance returns properties without schema_id. The input is not modified.
func stripInstance(properties map[string]any) map[string]any {
	out := make(map[string]any, len(properties))
	for k, val := range properties {
		if k == IDProperty {
			continue
		}
		out[k] = val
	}
	return out
}

// stripSchema returns a copy of doc with schema_id removed from the
// top-level properties and required list. Non-object documents pass through.
func stripSchema(doc any) any {
	m, ok := doc.(map[string]any)
	if !ok {
		return doc
	}

	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}

	if props, ok := m["properties"].(map[string]any); ok {
		stripped := make(map[string]any, len(props))
		for k, val := range props {
			if k != IDProperty {
				stripped[k] = val
			}
		}
		out["properties"] = stripped
	}

	if required, ok := m["required"].([]any); ok {
		stripped := make([]any, 0, len(required))
		for _, r := range required {
			if r != IDProperty {
				stripped = append(stripped, r)
			}
		}
		if len(stripped) == 0 {
			delete(out, "required")
		} else {
			out["required"] = stripped
		}
	}

	return out
}
