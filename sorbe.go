// Package sorbe parses sorbe configuration documents and their schemas.
//
// A configuration document is a list of "key = value" statements, one per
// line. Keys are dotted paths that nest into tables:
//
//	# server settings
//	server.host = "localhost"
//	server.port = 8080
//	debug = false
//
// A schema document uses the same layout with ':' as separator and a type
// symbol as value: string, bool, integer, unsigned_integer or float, with a
// trailing '?' for optional values.
//
//	server.host: string
//	server.port: unsigned_integer
//	debug: bool?
//
// ParseConfig infers a scalar type for each value. ParseConfigWithSchema
// additionally validates the document against a schema and narrows numbers
// to the declared representation.
package sorbe

import (
	"fmt"
	"io"
)

// ParseConfig parses a configuration document into a value tree.
func ParseConfig(text string) (*Dict, error) {
	patterns, err := parseDocument(text, ConfigDialect)
	if err != nil {
		return nil, err
	}

	return buildDict(patterns), nil
}

// ParseSchema parses a schema document into a type tree.
func ParseSchema(text string) (*SchemaDict, error) {
	patterns, err := parseDocument(text, SchemaDialect)
	if err != nil {
		return nil, err
	}

	return buildSchema(patterns)
}

// ParseConfigWithSchema parses both documents, validates the configuration
// against the schema and returns the cast value tree.
func ParseConfigWithSchema(config, schema string) (*Dict, error) {
	v, err := ParseConfig(config)
	if err != nil {
		return nil, err
	}
	s, err := ParseSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	return Conform(v, s)
}

// Conform validates v against s and returns the cast tree.
func Conform(v *Dict, s *SchemaDict) (*Dict, error) {
	if err := Validate(v, s); err != nil {
		return nil, err
	}

	return Cast(v, s).(*Dict), nil
}

// ReadConfig reads r to the end and parses it as a configuration document.
func ReadConfig(r io.Reader) (*Dict, error) {
	text, err := readAll(r)
	if err != nil {
		return nil, err
	}
	return ParseConfig(text)
}

// ReadSchema reads r to the end and parses it as a schema document.
func ReadSchema(r io.Reader) (*SchemaDict, error) {
	text, err := readAll(r)
	if err != nil {
		return nil, err
	}
	return ParseSchema(text)
}

// ReadConfigWithSchema reads both documents and behaves like
// ParseConfigWithSchema.
func ReadConfigWithSchema(config, schema io.Reader) (*Dict, error) {
	c, err := readAll(config)
	if err != nil {
		return nil, err
	}
	s, err := readAll(schema)
	if err != nil {
		return nil, err
	}
	return ParseConfigWithSchema(c, s)
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	return string(b), nil
}

// parseDocument runs the shared front end: lexing, statement validation and
// key path checks.
func parseDocument(text string, d *Dialect) ([]Pattern, error) {
	tokens, err := Tokenize(text, d)
	if err != nil {
		return nil, err
	}

	patterns, err := ParsePatterns(tokens)
	if err != nil {
		return nil, err
	}

	if err := checkPatterns(patterns); err != nil {
		return nil, err
	}

	return patterns, nil
}
