package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// Structured sends req and coerces the model's reply into T. The JSON schema
// for T is appended to the system prompt so the model knows the expected
// shape. Malformed JSON is run through jsonrepair once before the call is
// considered uncoercible; the gateway fails, it never guesses.
func Structured[T any](ctx context.Context, p Provider, req *ChatRequest) (T, error) {
	var zero T

	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return zero, fmt.Errorf("derive schema: %w", err)
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return zero, fmt.Errorf("marshal schema: %w", err)
	}

	structured := *req
	structured.SystemPrompt = strings.TrimSpace(req.SystemPrompt) +
		"\n\nRespond with ONLY a single JSON object matching this schema, no prose, no code fences:\n" +
		string(schemaJSON)

	resp, err := p.Chat(ctx, &structured)
	if err != nil {
		return zero, err
	}

	var out T
	if err := unmarshalRepaired([]byte(stripFences(resp.Content)), &out); err != nil {
		return zero, fmt.Errorf("coerce structured output %q: %w", resp.Content, err)
	}
	return out, nil
}

// unmarshalRepaired unmarshals JSON data into v, attempting to repair
// malformed JSON on syntax errors before retrying.
func unmarshalRepaired(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr != nil {
			return repairErr
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

// stripFences removes a surrounding markdown code fence, which models emit
// despite instructions not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
