package sorbe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const jsonSchemaDraft = "https://json-schema.org/draft/2020-12/schema"

// JSONSchema returns a JSON Schema (draft 2020-12) document describing the
// values s accepts. JSON does not separate integers from floats, so a float
// field also accepts whole numbers there.
func (d *SchemaDict) JSONSchema() map[string]any {
	doc := jsonSchemaOf(d)
	doc["$schema"] = jsonSchemaDraft
	return doc
}

func jsonSchemaOf(s Schema) map[string]any {
	switch s := s.(type) {
	case Primitive:
		switch s {
		case StringType:
			return map[string]any{"type": "string"}
		case BoolType:
			return map[string]any{"type": "boolean"}
		case IntegerType:
			return map[string]any{"type": "integer"}
		case UnsignedIntegerType:
			return map[string]any{"type": "integer", "minimum": 0}
		case FloatType:
			return map[string]any{"type": "number"}
		}
	case Optional:
		return map[string]any{
			"anyOf": []any{
				map[string]any{"type": "null"},
				jsonSchemaOf(s.Inner),
			},
		}
	case *SchemaDict:
		props := make(map[string]any, s.Len())
		required := make([]string, 0, s.Len())
		for k, e := range s.All() {
			props[k] = jsonSchemaOf(e)
			required = append(required, k)
		}
		return map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		}
	}

	return map[string]any{}
}

// CompileJSONSchema compiles the JSON Schema of s for validating JSON
// documents.
func CompileJSONSchema(s *SchemaDict) (*jsonschema.Schema, error) {
	doc, err := json.Marshal(s.JSONSchema())
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	url := "schema://main.json"
	if err := compiler.AddResource(url, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(url)
}

// JSONValue converts v into the generic form produced by decoding JSON with
// json.Decoder.UseNumber, suitable for (*jsonschema.Schema).Validate.
func JSONValue(v Value) any {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Int:
		return json.Number(strconv.FormatInt(int64(v), 10))
	case Uint:
		return json.Number(strconv.FormatUint(uint64(v), 10))
	case Float:
		return json.Number(strconv.FormatFloat(float64(v), 'g', -1, 64))
	case String:
		return string(v)
	case *Dict:
		m := make(map[string]any, v.Len())
		for k, e := range v.All() {
			m[k] = JSONValue(e)
		}
		return m
	}
	return nil
}
