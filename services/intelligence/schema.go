package ai

import (
	genai "github.com/google/generative-ai-go/genai"
)

var geminiTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

// toGeminiSchema converts the JSON Schema subset used by the tool catalog.
func toGeminiSchema(js map[string]interface{}) *genai.Schema {
	if js == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := js["type"].(string); ok {
		s.Type = geminiTypes[t]
	}
	if d, ok := js["description"].(string); ok {
		s.Description = d
	}
	if props, ok := js["properties"].(map[string]interface{}); ok && len(props) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]interface{}); ok {
				s.Properties[name] = toGeminiSchema(pm)
			}
		}
	}
	if items, ok := js["items"].(map[string]interface{}); ok {
		s.Items = toGeminiSchema(items)
	}
	s.Required = stringList(js["required"])
	s.Enum = stringList(js["enum"])
	return s
}

func stringList(v interface{}) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []interface{}:
		out := make([]string, 0, len(l))
		for _, x := range l {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
