package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dealSchema = JSONSchema{
	Type: "object",
	Properties: map[string]Property{
		"name":     {Type: "string", MinLength: IntPtr(2)},
		"stage":    {Type: "string", Enum: []string{"Discovery", "Proposal", "Negotiation", "Won", "Lost"}},
		"value":    {Type: "number", Minimum: Float64Ptr(0)},
		"closesAt": {Type: "string", Format: "date"},
	},
	Required: []string{"name", "stage", "value"},
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name       string
		input      map[string]interface{}
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "valid deal",
			input:     map[string]interface{}{"name": "Pilot", "stage": "Proposal", "value": 1200.5, "closesAt": "2026-03-01"},
			wantValid: true,
		},
		{
			name:       "missing required",
			input:      map[string]interface{}{"name": "Pilot"},
			wantFields: []string{"stage", "value"},
		},
		{
			name:       "bad enum and negative value",
			input:      map[string]interface{}{"name": "Pilot", "stage": "Closed", "value": -1},
			wantFields: []string{"stage", "value"},
		},
		{
			name:       "short name and bad date",
			input:      map[string]interface{}{"name": "P", "stage": "Won", "value": 0, "closesAt": "March"},
			wantFields: []string{"closesAt", "name"},
		},
		{
			name:       "wrong type",
			input:      map[string]interface{}{"name": "Pilot", "stage": "Won", "value": "ten"},
			wantFields: []string{"value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateInput(tt.input, dealSchema)
			assert.Equal(t, tt.wantValid, result.Valid, result.GetErrorMessages())
			for _, f := range tt.wantFields {
				assert.True(t, result.HasErrors(f), "expected error on %s, got %v", f, result.GetErrorMessages())
			}
		})
	}
}

func TestValidateJSON_NestedArrays(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"companyName": {Type: "string"},
			"contacts": {
				Type: "array",
				Items: &Property{
					Type:       "object",
					Properties: map[string]Property{"name": {Type: "string"}},
					Required:   []string{"name"},
				},
			},
		},
		Required: []string{"companyName"},
	}

	ok := ValidateJSON([]byte(`{"companyName":"Acme","contacts":[{"name":"Jane Doe"}]}`), schema)
	assert.True(t, ok.Valid)

	bad := ValidateJSON([]byte(`{"companyName":"Acme","contacts":[{"title":"CEO"}]}`), schema)
	require.False(t, bad.Valid)
	assert.True(t, bad.HasErrors("contacts.0.name"), bad.GetErrorMessages())

	broken := ValidateJSON([]byte(`{"companyName":`), schema)
	assert.False(t, broken.Valid)
}

func TestSchemaMap(t *testing.T) {
	m := JSONSchema{
		Type:                 "object",
		Properties:           map[string]Property{"query": {Type: "string", Description: "search text"}},
		Required:             []string{"query"},
		AdditionalProperties: BoolPtr(false),
	}.Map()

	assert.Equal(t, "object", m["type"])
	assert.Equal(t, false, m["additionalProperties"])
	props := m["properties"].(map[string]interface{})
	assert.Equal(t, "search text", props["query"].(map[string]interface{})["description"])
}

func TestFieldMessages(t *testing.T) {
	result := ValidateInput(map[string]interface{}{"name": "P", "stage": "Won", "value": 0}, dealSchema)
	msgs := result.FieldMessages()
	assert.Contains(t, msgs, "name")
	assert.Len(t, msgs, 1)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("jane@acme.io"))
	assert.False(t, ValidateEmail("jane@acme"))
	assert.False(t, ValidateEmail(""))
}
