package models

import "encoding/json"

// JSONSchema is the subset of JSON Schema used to describe and validate task
// data submitted at a stage.
type JSONSchema struct {
	Schema      string               `json:"$schema,omitempty"`
	Type        string               `json:"type"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
}

// Property is one entry of JSONSchema.Properties. An empty Types accepts any value.
type Property struct {
	Types       SchemaTypes `json:"type,omitempty"`
	Description string      `json:"description,omitempty"`
	MinLength   *int        `json:"minLength,omitempty"`
}

// SchemaTypes marshals as a plain string when it holds one type.
type SchemaTypes []string

func (s SchemaTypes) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}

	return json.Marshal([]string(s))
}

func (s *SchemaTypes) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = SchemaTypes{one}

		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}

	*s = many

	return nil
}
