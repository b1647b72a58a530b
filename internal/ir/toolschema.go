package ir

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var toolSchemaCache sync.Map

func compileToolSchema(name string, schema json.RawMessage) (*jsonschema.Schema, error) {
	key := name + "\x00" + string(schema)
	if cached, ok := toolSchemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString(name+".schema.json", string(schema))
	if err != nil {
		return nil, err
	}
	toolSchemaCache.Store(key, compiled)
	return compiled, nil
}

// ValidateToolSchema compiles a tool's declared JSON Schema parameters,
// catching a malformed tool declaration at inbound-parse time rather
// than letting it surface as a confusing failure only once a model
// tries to call it.
func ValidateToolSchema(tool Tool) error {
	if len(tool.Parameters) == 0 {
		return nil
	}
	if _, err := compileToolSchema(tool.Name, tool.Parameters); err != nil {
		return &Error{Type: ErrValidation, Message: fmt.Sprintf("tool %q: invalid parameters schema: %v", tool.Name, err), Cause: err}
	}
	return nil
}

// ValidateToolArguments checks a tool call's JSON-encoded arguments
// against the tool's declared JSON Schema parameters. It checks fully
// formed arguments only; the dialect inbound parsers do not call it, so
// neither unary tool calls nor streamed argument fragments pass through
// it during translation.
func ValidateToolArguments(tool Tool, arguments string) error {
	if len(tool.Parameters) == 0 {
		return nil
	}

	schema, err := compileToolSchema(tool.Name, tool.Parameters)
	if err != nil {
		return &Error{Type: ErrValidation, Message: fmt.Sprintf("tool %q: compiling parameter schema: %v", tool.Name, err), Cause: err}
	}

	var decoded any
	if err := json.Unmarshal([]byte(arguments), &decoded); err != nil {
		return &Error{Type: ErrValidation, Message: fmt.Sprintf("tool %q: arguments are not valid JSON: %v", tool.Name, err), Cause: err}
	}

	if err := schema.Validate(decoded); err != nil {
		return &Error{Type: ErrValidation, Message: fmt.Sprintf("tool %q: arguments do not match parameters schema: %v", tool.Name, err), Cause: err}
	}

	return nil
}
