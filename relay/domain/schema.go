package domain

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// InvalidParam names one rejected field and why.
type InvalidParam struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// MessageRequest is the body of POST /v1/messages.
type MessageRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

const messageRequestSchema = `{
	"type": "object",
	"properties": {
		"conversation_id": {"type": "string", "format": "uuid"},
		"message": {"type": "string", "minLength": 2, "maxLength": 5000}
	},
	"required": ["message"]
}`

// fieldReasons overrides library wording for known fields.
var fieldReasons = map[string]func(value any) string{
	"conversation_id": func(value any) string {
		return fmt.Sprintf("'%v' is not in UUID format", value)
	},
	"message": func(any) string {
		return "message must be at least 2 character and no more than 5,000 characters"
	},
}

// JSONValidator validates documents against a compiled JSON schema.
type JSONValidator struct {
	schema *gojsonschema.Schema
}

// NewJSONValidator compiles schema.
func NewJSONValidator(schema string) (*JSONValidator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &JSONValidator{schema: s}, nil
}

// Validate returns one InvalidParam per offending field, in schema error order.
func (v *JSONValidator) Validate(data []byte) []InvalidParam {
	if !json.Valid(data) {
		return []InvalidParam{{Name: "body", Reason: "request body is not valid JSON"}}
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return []InvalidParam{{Name: "body", Reason: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	seen := make(map[string]bool)
	var params []InvalidParam
	for _, re := range result.Errors() {
		name := re.Field()
		if re.Type() == "required" {
			if p, ok := re.Details()["property"].(string); ok {
				name = p
			}
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		reason := re.Description()
		if f, ok := fieldReasons[name]; ok && re.Type() != "required" {
			reason = f(re.Value())
		} else if re.Type() == "required" {
			reason = "field required"
		}
		params = append(params, InvalidParam{Name: name, Reason: reason})
	}
	return params
}

var messageRequestValidator = mustValidator(messageRequestSchema)

func mustValidator(schema string) *JSONValidator {
	v, err := NewJSONValidator(schema)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseMessageRequest validates and decodes a POST /v1/messages body.
func ParseMessageRequest(data []byte) (MessageRequest, []InvalidParam) {
	if params := messageRequestValidator.Validate(data); len(params) > 0 {
		return MessageRequest{}, params
	}
	var req MessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return MessageRequest{}, []InvalidParam{{Name: "body", Reason: err.Error()}}
	}
	return req, nil
}
