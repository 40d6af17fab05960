package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// decisionSchema is the strict contract for well-formed provider output.
// Parse stays tolerant regardless; this check exists so providers can be
// validated explicitly (tests, provider health checks).
const decisionSchema = `{
	"type": "object",
	"required": ["action", "symbol"],
	"properties": {
		"action":     {"type": "string"},
		"symbol":     {"type": "string", "minLength": 1},
		"confidence": {"type": "integer", "minimum": 0, "maximum": 100},
		"reasoning":  {"type": "string"}
	}
}`

var compiledSchema = jsonschema.MustCompileString("decision.json", decisionSchema)

// ValidateSchema checks a payload against the strict decision contract.
func ValidateSchema(raw []byte) error {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return fmt.Errorf("empty payload")
	}
	// jsonschema wants json.Number decoding for integer bounds
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("decision schema: %w", err)
	}
	return nil
}
