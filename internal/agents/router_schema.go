package agents

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// classificationSchemaJSON is the JSON Schema the router's raw completion
// must satisfy before Parse trusts it as a canonical classification.
const classificationSchemaJSON = `{
  "type": "object",
  "required": ["intent", "confidence"],
  "properties": {
    "intent": {"type": "string", "enum": ["SALES", "SUPPORT", "EMERGENCY", "SCHEDULE"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "keywords": {"type": "array", "items": {"type": "string"}},
    "reasoning": {"type": "string"}
  }
}`

var classificationSchema = compileClassificationSchema()

func compileClassificationSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("classification.json", bytes.NewReader([]byte(classificationSchemaJSON))); err != nil {
		panic(err)
	}
	schema, err := compiler.Compile("classification.json")
	if err != nil {
		panic(err)
	}
	return schema
}

// validatesAgainstSchema reports whether raw JSON bytes satisfy the
// classification schema.
func validatesAgainstSchema(raw []byte) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return classificationSchema.Validate(v) == nil
}
