package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaJSON is the JSON Schema every configuration document must
// satisfy before it is decoded. Keeping it as a standalone file lets
// editors use it for completion too.
//
//go:embed schema.json
var schemaJSON string

var (
	schemaOnce    sync.Once
	schemaCached  *jsonschema.Schema
	schemaCompile error
)

// configSchema compiles the embedded schema on first use.
func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("schema.json", strings.NewReader(schemaJSON)); err != nil {
			schemaCompile = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		schemaCached, schemaCompile = compiler.Compile("schema.json")
	})
	return schemaCached, schemaCompile
}

// validateSchema checks a decoded YAML document against the embedded
// configuration schema. The document is round-tripped through JSON so
// the validator sees consistent types.
func validateSchema(doc any) *Result {
	result := &Result{}

	schema, err := configSchema()
	if err != nil {
		result.AddError("", err.Error())
		return result
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		result.AddError("", fmt.Sprintf("configuration is not JSON-compatible: %v", err))
		return result
	}
	var jsonDoc any
	if err := json.Unmarshal(jsonBytes, &jsonDoc); err != nil {
		result.AddError("", err.Error())
		return result
	}

	if err := schema.Validate(jsonDoc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			collectSchemaErrors(ve, result)
		} else {
			result.AddError("", err.Error())
		}
	}

	return result
}

// collectSchemaErrors flattens nested schema violations into the
// result, keeping only leaf causes since the parents restate them.
func collectSchemaErrors(err *jsonschema.ValidationError, result *Result) {
	if len(err.Causes) == 0 {
		result.AddError(pathFromPointer(err.InstanceLocation), err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, result)
	}
}

// pathFromPointer converts a JSON Pointer like "/admin/port" to dot
// notation.
func pathFromPointer(pointer string) string {
	if pointer == "" || pointer == "/" {
		return ""
	}
	pointer = strings.TrimPrefix(pointer, "/")
	return strings.ReplaceAll(pointer, "/", ".")
}
