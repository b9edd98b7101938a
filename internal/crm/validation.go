package crm

import (
	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/validation"
	"crm-assistant/internal/models"
)

func CompanySchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"name"},
		Properties: map[string]validation.Property{
			"name":      {Type: "string", MinLength: validation.IntPtr(2), MaxLength: validation.IntPtr(200)},
			"industry":  {Type: "string", MaxLength: validation.IntPtr(100)},
			"geography": {Type: "string", MaxLength: validation.IntPtr(200)},
			"size":      {Type: "string", MaxLength: validation.IntPtr(100)},
			"website":   {Type: "string", MaxLength: validation.IntPtr(500)},
		},
	}
}

func PersonSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"firstName"},
		Properties: map[string]validation.Property{
			"firstName": {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(100)},
			"lastName":  {Type: "string", MaxLength: validation.IntPtr(100)},
			"email":     {Type: "string", Format: "email"},
			"title":     {Type: "string", MaxLength: validation.IntPtr(200)},
			"companyId": {Type: "string", Format: "uuid"},
		},
	}
}

func DealSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"name", "stage", "value", "closesAt", "companyId"},
		Properties: map[string]validation.Property{
			"name":      {Type: "string", MinLength: validation.IntPtr(2)},
			"value":     {Type: "number", Minimum: validation.Float64Ptr(0)},
			"stage":     {Type: "string", Enum: models.DealStages},
			"closesAt":  {Type: "string", Format: "date"},
			"companyId": {Type: "string", Format: "uuid"},
		},
	}
}

func EventSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"type", "date", "companyId"},
		Properties: map[string]validation.Property{
			"type":      {Type: "string", Enum: models.EventTypes},
			"notes":     {Type: "string"},
			"date":      {Type: "string", Format: "date"},
			"companyId": {Type: "string", Format: "uuid"},
		},
	}
}

func SequenceSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"name"},
		Properties: map[string]validation.Property{
			"name": {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(200)},
		},
	}
}

func SequenceEmailSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"day", "subject"},
		Properties: map[string]validation.Property{
			"id":      {Type: "string", Format: "uuid"},
			"day":     {Type: "integer", Minimum: validation.Float64Ptr(0)},
			"subject": {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(300)},
		},
	}
}

// check validates input against schema and reports failures per field.
func check(input interface{}, schema validation.JSONSchema) error {
	result := validation.ValidateInput(input, schema)
	if result.Valid {
		return nil
	}
	return apperrors.NewValidationError(result.FieldMessages())
}
