package api

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/CoWork-OS/warden/internal/risk"
	"github.com/CoWork-OS/warden/internal/trigger"
)

// conditionsSchemaJSON constrains the shape of a rule's conditions document.
// The operator vocabulary is checked separately so the error can name the
// bad operator.
const conditionsSchemaJSON = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["field", "operator"],
		"properties": {
			"field":    {"type": "string", "minLength": 1},
			"operator": {"type": "string"},
			"value":    {}
		},
		"additionalProperties": false
	}
}`

// signalConfigSchemaJSON constrains a project's per-signal overrides: a flat
// map of signal name to {enabled, weight}.
const signalConfigSchemaJSON = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"properties": {
			"enabled": {"type": "boolean"},
			"weight":  {"type": "integer", "minimum": 0}
		},
		"additionalProperties": false
	}
}`

var (
	conditionsSchema   = mustCompileSchema(conditionsSchemaJSON)
	signalConfigSchema = mustCompileSchema(signalConfigSchemaJSON)
)

func mustCompileSchema(src string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		panic(err)
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		panic(err)
	}
	return sch
}

// validateConditions checks a conditions document against the schema and the
// operator vocabulary. The returned error is client-facing.
func validateConditions(raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("conditions is not valid JSON")
	}
	if err := conditionsSchema.Validate(doc); err != nil {
		return fmt.Errorf("conditions failed validation: %v", err)
	}

	var conditions []ConditionReq
	if err := json.Unmarshal(raw, &conditions); err != nil {
		return fmt.Errorf("conditions is not valid JSON")
	}
	for i, c := range conditions {
		if _, err := trigger.ParseOperator(c.Operator); err != nil {
			return fmt.Errorf("conditions[%d]: unknown operator %q", i, c.Operator)
		}
	}
	return nil
}

// validateSignalConfig checks a signal_config document against the schema and
// the known signal catalog. The returned error is client-facing.
func validateSignalConfig(raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("signal_config is not valid JSON")
	}
	if err := signalConfigSchema.Validate(doc); err != nil {
		return fmt.Errorf("signal_config failed validation: %v", err)
	}

	m, _ := doc.(map[string]any)
	for name := range m {
		if !knownSignal(risk.Signal(name)) {
			return fmt.Errorf("signal_config: unknown signal %q", name)
		}
	}
	return nil
}

func knownSignal(s risk.Signal) bool {
	for _, known := range risk.KnownSignals() {
		if known == s {
			return true
		}
	}
	return false
}
