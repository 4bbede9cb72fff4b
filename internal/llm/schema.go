package llm

import (
	"sort"
	"strings"

	"google.golang.org/genai"
)

// Schema is the subset of JSON Schema understood by every provider.
type Schema struct {
	Type                 string             `json:"type"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Enum                 []string           `json:"enum,omitempty"`
	MinItems             *int               `json:"minItems,omitempty"`
	MaxItems             *int               `json:"maxItems,omitempty"`
	MinLength            *int               `json:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
}

// GenaiSchema converts s for the Gemini API, which has no additionalProperties.
func (s *Schema) GenaiSchema() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       s.Items.GenaiSchema(),
		MinItems:    toInt64(s.MinItems),
		MaxItems:    toInt64(s.MaxItems),
		MinLength:   toInt64(s.MinLength),
		MaxLength:   toInt64(s.MaxLength),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = prop.GenaiSchema()
			out.PropertyOrdering = append(out.PropertyOrdering, name)
		}
		sort.Strings(out.PropertyOrdering)
	}
	return out
}

func toInt64(v *int) *int64 {
	if v == nil {
		return nil
	}
	return genai.Ptr(int64(*v))
}
