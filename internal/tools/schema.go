package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// paramSchemas holds the compiled JSON Schema for each tool's parameter
// object, per §4.H's "required parameters" list.
var paramSchemas = compileParamSchemas()

const googleCalendarSchemaJSON = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string", "enum": ["check_availability", "create_booking", "delete_event"]}
  },
  "allOf": [
    {
      "if": {"properties": {"action": {"const": "check_availability"}}},
      "then": {"required": ["date", "treatment"]}
    },
    {
      "if": {"properties": {"action": {"const": "create_booking"}}},
      "then": {"required": ["treatment", "date", "time", "patient_name", "patient_phone"]}
    },
    {
      "if": {"properties": {"action": {"const": "delete_event"}}},
      "then": {"required": ["event_id"]}
    }
  ]
}`

const sendEmailSchemaJSON = `{
  "type": "object",
  "required": ["to_email", "template_name", "template_vars"]
}`

const createTicketSchemaJSON = `{
  "type": "object",
  "required": ["subject", "description", "priority", "requester_id"],
  "properties": {
    "priority": {"type": "string", "enum": ["low", "medium", "high"]}
  }
}`

const closeTicketSchemaJSON = `{
  "type": "object",
  "required": ["ticket_id"]
}`

func compileParamSchemas() map[Name]*jsonschema.Schema {
	sources := map[Name]string{
		GoogleCalendar: googleCalendarSchemaJSON,
		SendEmail:      sendEmailSchemaJSON,
		CreateTicket:   createTicketSchemaJSON,
		CloseTicket:    closeTicketSchemaJSON,
	}

	compiler := jsonschema.NewCompiler()
	for name, src := range sources {
		if err := compiler.AddResource(string(name)+".json", bytes.NewReader([]byte(src))); err != nil {
			panic(err)
		}
	}

	schemas := make(map[Name]*jsonschema.Schema, len(sources))
	for name := range sources {
		schema, err := compiler.Compile(string(name) + ".json")
		if err != nil {
			panic(err)
		}
		schemas[name] = schema
	}
	return schemas
}

// validateParams checks params against tool's compiled schema.
func validateParams(tool Name, params map[string]any) error {
	schema, ok := paramSchemas[tool]
	if !ok {
		return fmt.Errorf("unrecognized tool %q", tool)
	}

	// Round-trip through JSON so the validator sees the same shape a wire
	// payload would produce (e.g. numeric types normalized to float64).
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
