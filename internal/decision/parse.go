package decision

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Parse turns a raw payload into a Decision. Malformed or missing fields never
// produce an error: the result degrades to HOLD with confidence 0 and the
// reason recorded on Decision.Degraded, so a single bad payload costs one
// skipped cycle and nothing more.
func Parse(raw []byte, fallbackSymbol string) Decision {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return Hold(fallbackSymbol, "empty payload")
	}
	if !gjson.Valid(text) {
		// collaborators sometimes wrap JSON in prose or code fences
		if extracted, ok := extractJSONObject(text); ok {
			text = extracted
		} else {
			return Hold(fallbackSymbol, "payload is not valid JSON")
		}
	}
	parsed := gjson.Parse(text)
	if parsed.IsArray() {
		// take the first entry of a decision array
		arr := parsed.Array()
		if len(arr) == 0 {
			return Hold(fallbackSymbol, "empty decision array")
		}
		parsed = arr[0]
	}
	if !parsed.IsObject() {
		return Hold(fallbackSymbol, "payload is not a JSON object")
	}

	action := NormalizeAction(parsed.Get("action").String())
	if action == "" {
		return Hold(fallbackSymbol, "unknown or missing action")
	}
	symbol := strings.ToUpper(strings.TrimSpace(parsed.Get("symbol").String()))
	if symbol == "" {
		symbol = fallbackSymbol
	}
	confidence := int(parsed.Get("confidence").Int())
	degraded := ""
	if confidence < 0 || confidence > 100 {
		confidence = 0
		degraded = "confidence out of range"
	}
	return Decision{
		Action:     action,
		Symbol:     symbol,
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(parsed.Get("reasoning").String()),
		Degraded:   degraded,
	}
}

// extractJSONObject finds the first balanced {...} block in free text.
func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := raw[start : i+1]
				if gjson.Valid(candidate) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}
