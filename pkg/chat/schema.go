package chat

import "encoding/json"

// SchemaType names a JSON Schema primitive.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the subset of JSON Schema the generators understand. It
// marshals to standard JSON Schema so it can be passed to providers that
// accept one directly.
type Schema struct {
	Type       SchemaType         `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
}

// Object is shorthand for an object schema.
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// ArrayOf is shorthand for an array schema.
func ArrayOf(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

func String() *Schema  { return &Schema{Type: TypeString} }
func Number() *Schema  { return &Schema{Type: TypeNumber} }
func Boolean() *Schema { return &Schema{Type: TypeBoolean} }

// Enum is a string schema restricted to the given values.
func Enum(values ...string) *Schema {
	return &Schema{Type: TypeString, Enum: values}
}

// Map converts the schema into the generic map form used by providers that
// take response_format.json_schema.
func (s *Schema) Map() map[string]interface{} {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// JSON returns the indented JSON Schema text, for prompt-embedded schemas.
func (s *Schema) JSON() string {
	if s == nil {
		return ""
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
