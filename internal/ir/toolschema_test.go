package ir

import (
	"encoding/json"
	"testing"
)

func TestValidateToolSchemaAcceptsWellFormedSchema(t *testing.T) {
	tool := Tool{
		Name:       "get_weather",
		Parameters: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
	}
	if err := ValidateToolSchema(tool); err != nil {
		t.Fatalf("ValidateToolSchema() error = %v", err)
	}
}

func TestValidateToolSchemaRejectsMalformedSchema(t *testing.T) {
	tool := Tool{
		Name:       "get_weather",
		Parameters: json.RawMessage(`{"type":"object","properties":{"city":{"type":"not-a-real-type"}}}`),
	}
	err := ValidateToolSchema(tool)
	if err == nil {
		t.Fatal("expected error for malformed schema")
	}
	irErr, ok := err.(*Error)
	if !ok || irErr.Type != ErrValidation {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestValidateToolSchemaSkipsEmptyParameters(t *testing.T) {
	tool := Tool{Name: "no_args"}
	if err := ValidateToolSchema(tool); err != nil {
		t.Errorf("ValidateToolSchema() error = %v, want nil for empty parameters", err)
	}
}

func TestValidateToolArgumentsAcceptsMatchingArguments(t *testing.T) {
	tool := Tool{
		Name:       "get_weather",
		Parameters: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
	}
	if err := ValidateToolArguments(tool, `{"city":"boston"}`); err != nil {
		t.Errorf("ValidateToolArguments() error = %v", err)
	}
}

func TestValidateToolArgumentsRejectsMissingRequiredField(t *testing.T) {
	tool := Tool{
		Name:       "get_weather",
		Parameters: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
	}
	err := ValidateToolArguments(tool, `{}`)
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
	irErr, ok := err.(*Error)
	if !ok || irErr.Type != ErrValidation {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestValidateToolArgumentsRejectsInvalidJSON(t *testing.T) {
	tool := Tool{
		Name:       "get_weather",
		Parameters: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
	}
	err := ValidateToolArguments(tool, `{not json`)
	if err == nil {
		t.Fatal("expected error for invalid JSON arguments")
	}
}

func TestValidateToolArgumentsSkipsEmptyParameters(t *testing.T) {
	tool := Tool{Name: "no_args"}
	if err := ValidateToolArguments(tool, `{"anything":true}`); err != nil {
		t.Errorf("ValidateToolArguments() error = %v, want nil for empty parameters", err)
	}
}
